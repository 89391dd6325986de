package cfa

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gnolang/reach/internal/analysis/expr"
)

type fileSpec struct {
	Main      string         `yaml:"main"`
	Functions []functionSpec `yaml:"functions"`
}

type functionSpec struct {
	Name     string     `yaml:"name"`
	Params   []string   `yaml:"params"`
	Variadic bool       `yaml:"variadic"`
	Entry    int        `yaml:"entry"`
	Exit     int        `yaml:"exit"`
	Errors   []int      `yaml:"errors"`
	Edges    []edgeSpec `yaml:"edges"`
}

type edgeSpec struct {
	From int    `yaml:"from"`
	To   int    `yaml:"to"`
	Line int    `yaml:"line"`
	Op   string `yaml:"op"`

	// assume
	Expr  string `yaml:"expr"`
	Truth *bool  `yaml:"truth"`

	// assign
	LHS string `yaml:"lhs"`
	RHS string `yaml:"rhs"`

	// declare, function
	Var    string `yaml:"var"`
	Type   string `yaml:"type"`
	Global bool   `yaml:"global"`
	Init   string `yaml:"init"`
	Name   string `yaml:"name"`

	// call
	Callee string   `yaml:"callee"`
	Args   []string `yaml:"args"`
	Result string   `yaml:"result"`
	Usage  string   `yaml:"usage"`

	// multi
	Ops []edgeSpec `yaml:"ops"`
}

// LoadFile reads an automaton from a YAML file.
func LoadFile(path string) (*CFA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load reads an automaton in YAML form. Expressions use Go syntax.
//
//	main: main
//	functions:
//	  - name: main
//	    entry: 1
//	    exit: 4
//	    errors: [3]
//	    edges:
//	      - {from: 1, to: 2, line: 1, op: declare, var: x, type: int, init: "1"}
//	      - {from: 2, to: 3, line: 2, op: assume, expr: "x != 1"}
//	      - {from: 2, to: 4, line: 2, op: assume, expr: "x != 1", truth: false}
func Load(r io.Reader) (*CFA, error) {
	var spec fileSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decoding automaton: %w", err)
	}
	if spec.Main == "" {
		spec.Main = "main"
	}

	b := NewBuilder(spec.Main)

	// functions first, so that call edges can reference any of them
	for _, fs := range spec.Functions {
		if fs.Name == "" {
			return nil, fmt.Errorf("%w: function without name", ErrInvalid)
		}
		if b.cfa.functions[fs.Name] != nil {
			return nil, fmt.Errorf("%w: function %s defined twice", ErrInvalid, fs.Name)
		}
		entry, err := b.NodeWithID(fs.Entry, fs.Name)
		if err != nil {
			return nil, err
		}
		exit, err := b.NodeWithID(fs.Exit, fs.Name)
		if err != nil {
			return nil, err
		}
		b.cfa.functions[fs.Name] = &Function{
			Name:     fs.Name,
			Entry:    entry,
			Exit:     exit,
			Params:   fs.Params,
			Variadic: fs.Variadic,
		}
	}

	for _, fs := range spec.Functions {
		for _, es := range fs.Edges {
			if err := loadEdge(b, fs.Name, es); err != nil {
				return nil, fmt.Errorf("function %s, edge %d->%d: %w", fs.Name, es.From, es.To, err)
			}
		}
		for _, id := range fs.Errors {
			n, err := b.NodeWithID(id, fs.Name)
			if err != nil {
				return nil, err
			}
			n.ErrorLabel = true
		}
	}
	return b.Build()
}

func loadEdge(b *Builder, function string, es edgeSpec) error {
	pred, err := b.NodeWithID(es.From, function)
	if err != nil {
		return err
	}
	succ, err := b.NodeWithID(es.To, function)
	if err != nil {
		return err
	}

	if es.Op == "call" {
		args, err := parseAll(es.Args)
		if err != nil {
			return err
		}
		site, err := callSite(es)
		if err != nil {
			return err
		}
		b.Call(pred, succ, es.Line, es.Callee, args, site)
		return nil
	}

	op, err := operation(pred, succ, es)
	if err != nil {
		return err
	}
	b.Edge(pred, succ, es.Line, op)
	return nil
}

func operation(pred, succ *Node, es edgeSpec) (Operation, error) {
	switch es.Op {
	case "", "blank":
		return &Blank{}, nil

	case "assume":
		cond, err := expr.Parse(es.Expr)
		if err != nil {
			return nil, err
		}
		truth := es.Truth == nil || *es.Truth
		return &Assume{Expr: cond, Truth: truth}, nil

	case "assign":
		lhs, err := expr.Parse(es.LHS)
		if err != nil {
			return nil, err
		}
		if expr.IsCall(es.RHS) {
			callee, args, err := expr.ParseCall(es.RHS)
			if err != nil {
				return nil, err
			}
			return &Statement{LHS: lhs, Call: &Call{Callee: callee, Args: args}}, nil
		}
		rhs, err := expr.Parse(es.RHS)
		if err != nil {
			return nil, err
		}
		return &Statement{LHS: lhs, RHS: rhs}, nil

	case "declare":
		decl := &VariableDecl{Name: es.Var, Type: ParseType(es.Type), Global: es.Global}
		if decl.Name == "" {
			return nil, fmt.Errorf("%w: declaration without variable", ErrInvalid)
		}
		if strings.TrimSpace(es.Type) == "" {
			decl.Type = TypeInt
		}
		if es.Init != "" {
			init, err := expr.Parse(es.Init)
			if err != nil {
				return nil, err
			}
			decl.Init = init
		}
		return &Declaration{Decl: decl}, nil

	case "function":
		if es.Name == "" {
			return nil, fmt.Errorf("%w: function declaration without name", ErrInvalid)
		}
		return &Declaration{Decl: &FunctionDecl{Name: es.Name}}, nil

	case "return":
		ret := &ReturnStatement{}
		if es.Expr != "" {
			v, err := expr.Parse(es.Expr)
			if err != nil {
				return nil, err
			}
			ret.Value = v
		}
		return ret, nil

	case "multi":
		if len(es.Ops) == 0 {
			return nil, fmt.Errorf("%w: empty multi edge", ErrInvalid)
		}
		m := &Multi{}
		for _, sub := range es.Ops {
			if sub.Op == "call" || sub.Op == "multi" {
				return nil, fmt.Errorf("%w: %s inside multi edge", ErrInvalid, sub.Op)
			}
			op, err := operation(pred, succ, sub)
			if err != nil {
				return nil, err
			}
			line := sub.Line
			if line == 0 {
				line = es.Line
			}
			m.Edges = append(m.Edges, &Edge{Pred: pred, Succ: succ, Line: line, Op: op})
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: unknown operation %q", ErrInvalid, es.Op)
	}
}

func callSite(es edgeSpec) (CallSite, error) {
	switch es.Usage {
	case "":
		if es.Result != "" {
			return CallSite{Kind: CallAssign, Target: es.Result}, nil
		}
		return CallSite{Kind: CallIgnore}, nil
	case "assign":
		if es.Result == "" {
			return CallSite{}, fmt.Errorf("%w: assigning call without result", ErrInvalid)
		}
		return CallSite{Kind: CallAssign, Target: es.Result}, nil
	case "ignore":
		return CallSite{Kind: CallIgnore}, nil
	case "expression":
		return CallSite{Kind: CallInExpression}, nil
	default:
		return CallSite{}, fmt.Errorf("%w: unknown call usage %q", ErrInvalid, es.Usage)
	}
}

func parseAll(srcs []string) ([]expr.Expr, error) {
	out := make([]expr.Expr, 0, len(srcs))
	for _, src := range srcs {
		e, err := expr.Parse(src)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
