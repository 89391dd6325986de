package cfa

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/reach/internal/analysis/expr"
)

type edgeView struct {
	From, To int
	Line     int
	Kind     EdgeKind
	Op       string
}

func view(c *CFA) []edgeView {
	var out []edgeView
	for _, e := range c.Edges() {
		out = append(out, edgeView{e.Pred.ID, e.Succ.ID, e.Line, e.Kind(), e.Op.String()})
	}
	return out
}

const program = `
main: main
functions:
  - name: main
    entry: 1
    exit: 6
    errors: [5]
    edges:
      - {from: 1, to: 2, line: 1, op: declare, var: x, type: int, global: true, init: "1"}
      - {from: 2, to: 3, line: 2, op: call, callee: f, args: ["5"], result: r}
      - {from: 3, to: 4, line: 3, op: assume, expr: "r == 5"}
      - {from: 3, to: 6, line: 3, op: assume, expr: "r == 5", truth: false}
      - {from: 4, to: 5, line: 4, op: assign, lhs: x, rhs: "ext(x)"}
      - {from: 5, to: 6, line: 5, op: multi, ops: [{op: assign, lhs: x, rhs: "0"}, {op: blank, line: 6}]}
  - name: f
    params: [a]
    entry: 10
    exit: 12
    edges:
      - {from: 10, to: 11, line: 10, op: function, name: f}
      - {from: 11, to: 12, line: 11, op: return, expr: a}
`

func TestLoad(t *testing.T) {
	t.Parallel()
	c, err := Load(strings.NewReader(program))
	require.NoError(t, err)

	want := []edgeView{
		// entry and exit locations are created before the other ones
		{1, 2, 1, DeclarationEdge, "var x int = 1;"},
		{10, 11, 10, DeclarationEdge, "func f"},
		{12, 3, 2, FunctionReturnEdge, "r = return f"},
		{2, 10, 2, FunctionCallEdge, "f(5)"},
		{3, 4, 3, AssumeEdge, "[(r == 5)]"},
		{3, 6, 3, AssumeEdge, "[!(r == 5)]"},
		{4, 5, 4, StatementEdge, "x = ext(x);"},
		{5, 6, 5, MultiEdge, "x = 0; "},
		{11, 12, 11, ReturnStatementEdge, "return a;"},
	}
	if diff := cmp.Diff(want, view(c)); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, c.Entry().ID)
	require.Len(t, c.ErrorNodes(), 1)
	assert.Equal(t, 5, c.ErrorNodes()[0].ID)
	assert.Equal(t, []string{"f", "main"}, []string{c.Functions()[0].Name, c.Functions()[1].Name})

	call := c.Nodes()[0].Leaving()
	require.Len(t, call, 1)
	decl := call[0].Op.(*Declaration).Decl.(*VariableDecl)
	assert.True(t, decl.Global)
	assert.True(t, expr.Equal(expr.Int(1), decl.Init))

	var callOp *FunctionCall
	for _, e := range c.Edges() {
		if op, ok := e.Op.(*FunctionCall); ok {
			callOp = op
		}
	}
	require.NotNil(t, callOp)
	assert.Equal(t, []string{"a"}, callOp.Params)
	assert.Equal(t, "main", callOp.Caller)
	assert.Equal(t, CallSite{Kind: CallAssign, Target: "r"}, callOp.Site)

	multi := c.Edges()[7].Op.(*Multi)
	require.Len(t, multi.Edges, 2)
	assert.Equal(t, 5, multi.Edges[0].Line, "sub edges inherit the line")
	assert.Equal(t, 6, multi.Edges[1].Line)
}

func TestLoadExternalCallBecomesStatement(t *testing.T) {
	t.Parallel()
	src := `
functions:
  - name: main
    entry: 1
    exit: 3
    edges:
      - {from: 1, to: 2, op: call, callee: rand, result: y}
      - {from: 2, to: 3, op: call, callee: log, args: ["y"]}
`
	c, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	want := []edgeView{
		{1, 2, 0, StatementEdge, "y = rand();"},
		{2, 3, 0, StatementEdge, "log(y);"},
	}
	if diff := cmp.Diff(want, view(c)); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", "functions: [{name: main, entry: 1, exit: 2, bogus: 1}]"},
		{"unknown op", "functions: [{name: main, entry: 1, exit: 2, edges: [{from: 1, to: 2, op: jump}]}]"},
		{"bad expression", "functions: [{name: main, entry: 1, exit: 2, edges: [{from: 1, to: 2, op: assume, expr: 'x +'}]}]"},
		{"missing main", "functions: [{name: f, entry: 1, exit: 2}]"},
		{"node shared by functions", "functions: [{name: main, entry: 1, exit: 2}, {name: f, entry: 2, exit: 3}]"},
		{"duplicate function", "functions: [{name: main, entry: 1, exit: 2}, {name: main, entry: 3, exit: 4}]"},
		{"call inside multi", "functions: [{name: main, entry: 1, exit: 2, edges: [{from: 1, to: 2, op: multi, ops: [{op: call, callee: g}]}]}]"},
		{"assign usage without result", "functions: [{name: main, entry: 1, exit: 2, edges: [{from: 1, to: 2, op: call, callee: g, usage: assign}]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestBuilder(t *testing.T) {
	t.Parallel()
	b := NewBuilder("main")
	main := b.Function("main")
	f := b.Function("f", "a", "b")
	f.Variadic = true

	n1 := b.Node("main")
	b.Declare(main.Entry, n1, 1, &VariableDecl{Name: "x", Type: TypeInt, Global: true})
	n2, n3 := b.Node("main"), b.Node("main")
	then, els := b.Branch(n1, n2, n3, 2, expr.Eq(expr.Ident("x"), expr.Int(0)))
	call, ret := b.Call(n2, main.Exit, 3, "f", []expr.Expr{expr.Int(1), expr.Int(2), expr.Int(3)}, CallSite{Kind: CallIgnore})
	b.Blank(n3, main.Exit, 4)
	b.Return(f.Entry, f.Exit, 5, nil)

	c, err := b.Build()
	require.NoError(t, err)

	assert.True(t, then.Op.(*Assume).Truth)
	assert.False(t, els.Op.(*Assume).Truth)
	assert.Same(t, f.Entry, call.Succ)
	assert.Same(t, f.Exit, ret.Pred)
	assert.True(t, call.Op.(*FunctionCall).Variadic)
	assert.Equal(t, []*Edge{then, els}, n1.Leaving())
	assert.Equal(t, []*Edge{ret, c.Nodes()[len(c.Nodes())-1].Leaving()[0]}, main.Exit.Entering()[:2])
}

func TestValidate(t *testing.T) {
	t.Parallel()

	b := NewBuilder("main")
	main := b.Function("main")
	stray := &Node{ID: 99, Function: "main"}
	b.Edge(main.Entry, stray, 1, &Blank{})
	_, err := b.Build()
	assert.ErrorIs(t, err, ErrInvalid)

	b = NewBuilder("main")
	main = b.Function("main")
	b.Function("f")
	b.Edge(main.Entry, main.Exit, 1, &FunctionCall{Callee: "f"})
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrInvalid, "a call edge must enter its callee")

	b = NewBuilder("start")
	b.Function("main")
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src    string
		want   Type
		scalar bool
	}{
		{"int", TypeInt, true},
		{"uint8", TypeInt, true},
		{"bool", TypeBool, true},
		{"rune", TypeChar, true},
		{"float64", TypeFloat, false},
		{"string", TypeString, false},
		{"*int", TypePointer, false},
		{"[4]int", TypeArray, false},
		{"struct{}", TypeStruct, false},
		{"Foo", TypeOther, false},
	}
	for _, tt := range tests {
		got := ParseType(tt.src)
		assert.Equal(t, tt.want, got, tt.src)
		assert.Equal(t, tt.scalar, got.IsScalar(), tt.src)
	}
}

func TestPrintDot(t *testing.T) {
	t.Parallel()
	c, err := Load(strings.NewReader(program))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.PrintDot(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph cfa {"))
	assert.Contains(t, out, `label="main";`)
	assert.Contains(t, out, "5 [shape=doublecircle, color=red];")
	assert.Contains(t, out, `3 -> 4 [label="3: [(r == 5)]"];`)
	assert.Contains(t, out, `2 -> 10 [label="2: f(5)", style=dashed];`)
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestScopes(t *testing.T) {
	t.Parallel()
	b := NewBuilder("main")
	m := b.Function("main")
	f := b.Function("f", "a")
	n1, n2, n3, n4, n5 := b.Node("main"), b.Node("main"), b.Node("main"), b.Node("main"), b.Node("main")
	f1 := b.Node("f")

	b.Declare(m.Entry, n1, 1, &VariableDecl{Name: "x", Type: TypeInt})
	b.Branch(n1, n2, n3, 2, expr.Ident("x"))
	b.Declare(n2, n3, 3, &VariableDecl{Name: "y", Type: TypeInt})
	b.Call(n3, n4, 4, "f", []expr.Expr{expr.Ident("x")}, CallSite{Kind: CallAssign, Target: "x"})
	b.Declare(n4, n5, 5, &VariableDecl{Name: "w", Type: TypeInt})
	b.Blank(n5, n4, 6)
	b.Blank(n4, m.Exit, 7)
	b.Declare(n4, m.Exit, 8, &VariableDecl{Name: "g", Type: TypeInt, Global: true})

	multi := &Multi{Edges: []*Edge{
		{Pred: f.Entry, Succ: f1, Line: 10, Op: &Declaration{Decl: &VariableDecl{Name: "z", Type: TypeInt}}},
		{Pred: f.Entry, Succ: f1, Line: 10, Op: &Statement{LHS: expr.Ident("z"), RHS: expr.Ident("a")}},
	}}
	b.Edge(f.Entry, f1, 10, multi)
	b.Return(f1, f.Exit, 11, expr.Ident("z"))
	_, err := b.Build()
	require.NoError(t, err)

	tests := []struct {
		node *Node
		name string
		want bool
	}{
		{m.Entry, "x", false},
		{n1, "x", true},
		{n2, "x", true},
		{n3, "y", false},
		{n3, "x", true},
		{n4, "x", true},
		{n4, "y", false},
		{n4, "w", false},
		{n5, "w", true},
		{m.Exit, "g", false},
		{m.Exit, "a", false},
		{f.Entry, "a", true},
		{f.Entry, "z", false},
		{f.Entry, "x", false},
		{f1, "z", true},
		{f.Exit, "z", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.node.Declares(tt.name), "%s at %s", tt.name, tt.node)
	}

	assert.Equal(t, []string{"z"}, DeclaredLocals(multi))
	assert.Empty(t, DeclaredLocals(&Declaration{Decl: &VariableDecl{Name: "g", Global: true}}))
	assert.Empty(t, DeclaredLocals(&Blank{}))
}
