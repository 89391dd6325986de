package cfa

import (
	"fmt"

	"github.com/gnolang/reach/internal/analysis/expr"
)

// Builder assembles a CFA. Functions must be declared before edges reference
// them; locations get increasing ids.
type Builder struct {
	cfa    *CFA
	nextID int
	byID   map[int]*Node
}

// NewBuilder returns a builder whose main function is main.
func NewBuilder(main string) *Builder {
	return &Builder{
		cfa:    &CFA{Main: main, functions: make(map[string]*Function), resume: make(map[*Edge]*Node)},
		nextID: 1,
		byID:   make(map[int]*Node),
	}
}

// Function declares a function with fresh entry and exit locations.
func (b *Builder) Function(name string, params ...string) *Function {
	f := &Function{
		Name:   name,
		Params: params,
		Entry:  b.Node(name),
		Exit:   b.Node(name),
	}
	b.cfa.functions[name] = f
	return f
}

// Node creates a fresh location inside function.
func (b *Builder) Node(function string) *Node {
	for b.byID[b.nextID] != nil {
		b.nextID++
	}
	n, _ := b.NodeWithID(b.nextID, function)
	return n
}

// NodeWithID creates the location id, or returns it when it already exists
// in the same function.
func (b *Builder) NodeWithID(id int, function string) (*Node, error) {
	if n := b.byID[id]; n != nil {
		if n.Function != function {
			return nil, fmt.Errorf("%w: node %d belongs to %s, not %s", ErrInvalid, id, n.Function, function)
		}
		return n, nil
	}
	n := &Node{ID: id, Function: function}
	b.byID[id] = n
	b.cfa.nodes = append(b.cfa.nodes, n)
	return n, nil
}

// Edge connects pred to succ with op.
func (b *Builder) Edge(pred, succ *Node, line int, op Operation) *Edge {
	e := &Edge{Pred: pred, Succ: succ, Line: line, Op: op}
	pred.leaving = append(pred.leaving, e)
	succ.entering = append(succ.entering, e)
	return e
}

// Blank adds an edge with no effect.
func (b *Builder) Blank(pred, succ *Node, line int) *Edge {
	return b.Edge(pred, succ, line, &Blank{})
}

// Branch adds the pair of assume edges of a two-way branch on cond and
// returns them as (then, else).
func (b *Builder) Branch(pred, then, els *Node, line int, cond expr.Expr) (*Edge, *Edge) {
	return b.Edge(pred, then, line, &Assume{Expr: cond, Truth: true}),
		b.Edge(pred, els, line, &Assume{Expr: cond, Truth: false})
}

// Assign adds "lhs = rhs".
func (b *Builder) Assign(pred, succ *Node, line int, lhs string, rhs expr.Expr) *Edge {
	return b.Edge(pred, succ, line, &Statement{LHS: expr.Ident(lhs), RHS: rhs})
}

// Declare adds a variable declaration.
func (b *Builder) Declare(pred, succ *Node, line int, decl *VariableDecl) *Edge {
	return b.Edge(pred, succ, line, &Declaration{Decl: decl})
}

// Return adds a return statement.
func (b *Builder) Return(pred, succ *Node, line int, value expr.Expr) *Edge {
	return b.Edge(pred, succ, line, &ReturnStatement{Value: value})
}

// Call links the call site pred→succ to callee: a call edge from pred to the
// callee's entry and a return edge from its exit to succ. A callee without
// body becomes a single statement edge.
func (b *Builder) Call(pred, succ *Node, line int, callee string, args []expr.Expr, site CallSite) (*Edge, *Edge) {
	f := b.cfa.functions[callee]
	if f == nil {
		st := &Statement{Call: &Call{Callee: callee, Args: args}}
		if site.Kind == CallAssign {
			st.LHS = expr.Ident(site.Target)
		}
		return b.Edge(pred, succ, line, st), nil
	}
	call := b.Edge(pred, f.Entry, line, &FunctionCall{
		Callee:   callee,
		Caller:   pred.Function,
		Params:   f.Params,
		Variadic: f.Variadic,
		Args:     args,
		Site:     site,
	})
	ret := b.Edge(f.Exit, succ, line, &FunctionReturn{
		Callee: callee,
		Caller: succ.Function,
		Site:   site,
	})
	b.cfa.resume[call] = succ
	return call, ret
}

// Build validates the automaton and fixes the locals visible at every
// location.
func (b *Builder) Build() (*CFA, error) {
	if err := b.cfa.Validate(); err != nil {
		return nil, err
	}
	b.cfa.computeScopes()
	return b.cfa, nil
}
