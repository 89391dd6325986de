package cfa

import (
	"fmt"
	"strings"

	"github.com/gnolang/reach/internal/analysis/expr"
)

// EdgeKind classifies edges by the operation they carry.
type EdgeKind int

const (
	BlankEdge EdgeKind = iota
	AssumeEdge
	StatementEdge
	DeclarationEdge
	ReturnStatementEdge
	FunctionCallEdge
	FunctionReturnEdge
	MultiEdge
)

func (k EdgeKind) String() string {
	switch k {
	case BlankEdge:
		return "blank"
	case AssumeEdge:
		return "assume"
	case StatementEdge:
		return "statement"
	case DeclarationEdge:
		return "declaration"
	case ReturnStatementEdge:
		return "return"
	case FunctionCallEdge:
		return "call"
	case FunctionReturnEdge:
		return "function-return"
	case MultiEdge:
		return "multi"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

// Operation is the payload of an edge. The set of implementations is closed.
type Operation interface {
	Kind() EdgeKind
	String() string
	isOperation()
}

// Blank does nothing.
type Blank struct{}

// Assume restricts execution to the states where Expr evaluates to Truth.
type Assume struct {
	Expr  expr.Expr
	Truth bool
}

// Call is a call whose callee has no body in the automaton.
type Call struct {
	Callee string
	Args   []expr.Expr
}

// Statement is an assignment "LHS = RHS", an assignment of an external call
// result "LHS = Call", or a bare call expression when LHS is nil.
type Statement struct {
	LHS  expr.Expr
	RHS  expr.Expr
	Call *Call
}

// Declaration declares a variable or a function.
type Declaration struct {
	Decl Decl
}

// Decl is either *VariableDecl or *FunctionDecl.
type Decl interface {
	isDecl()
	String() string
}

// VariableDecl declares Name with an optional initializer.
type VariableDecl struct {
	Name   string
	Type   Type
	Global bool
	Init   expr.Expr
}

// FunctionDecl declares a function.
type FunctionDecl struct {
	Name string
}

// ReturnStatement is "return Value" inside a function body. Value is nil
// for a bare return.
type ReturnStatement struct {
	Value expr.Expr
}

// CallUsage tells how the result of a call is consumed at its call site.
type CallUsage int

const (
	CallIgnore CallUsage = iota
	CallAssign
	CallInExpression
)

func (u CallUsage) String() string {
	switch u {
	case CallIgnore:
		return "ignore"
	case CallAssign:
		return "assign"
	case CallInExpression:
		return "expression"
	default:
		return fmt.Sprintf("CallUsage(%d)", int(u))
	}
}

// CallSite describes the statement a call appears in. Target is the
// variable receiving the result when Kind is CallAssign.
type CallSite struct {
	Kind   CallUsage
	Target string
}

// FunctionCall enters Callee, binding Args to Params.
type FunctionCall struct {
	Callee   string
	Caller   string
	Params   []string
	Variadic bool
	Args     []expr.Expr
	Site     CallSite
}

// FunctionReturn leaves Callee and resumes Caller after Site.
type FunctionReturn struct {
	Callee string
	Caller string
	Site   CallSite
}

// Multi is a straight-line chain of edges collapsed into one.
type Multi struct {
	Edges []*Edge
}

func (*Blank) Kind() EdgeKind           { return BlankEdge }
func (*Assume) Kind() EdgeKind          { return AssumeEdge }
func (*Statement) Kind() EdgeKind       { return StatementEdge }
func (*Declaration) Kind() EdgeKind     { return DeclarationEdge }
func (*ReturnStatement) Kind() EdgeKind { return ReturnStatementEdge }
func (*FunctionCall) Kind() EdgeKind    { return FunctionCallEdge }
func (*FunctionReturn) Kind() EdgeKind  { return FunctionReturnEdge }
func (*Multi) Kind() EdgeKind           { return MultiEdge }

func (*Blank) isOperation()           {}
func (*Assume) isOperation()          {}
func (*Statement) isOperation()       {}
func (*Declaration) isOperation()     {}
func (*ReturnStatement) isOperation() {}
func (*FunctionCall) isOperation()    {}
func (*FunctionReturn) isOperation()  {}
func (*Multi) isOperation()           {}

func (*VariableDecl) isDecl() {}
func (*FunctionDecl) isDecl() {}

func (*Blank) String() string { return "" }

func (o *Assume) String() string {
	if o.Truth {
		return "[" + o.Expr.String() + "]"
	}
	return "[!" + o.Expr.String() + "]"
}

func (c *Call) String() string {
	return c.Callee + "(" + joinExprs(c.Args) + ")"
}

func (o *Statement) String() string {
	rhs := ""
	switch {
	case o.Call != nil:
		rhs = o.Call.String()
	case o.RHS != nil:
		rhs = o.RHS.String()
	}
	if o.LHS == nil {
		return rhs + ";"
	}
	return o.LHS.String() + " = " + rhs + ";"
}

func (o *Declaration) String() string {
	return o.Decl.String()
}

func (d *VariableDecl) String() string {
	s := "var " + d.Name + " " + d.Type.String()
	if d.Init != nil {
		s += " = " + d.Init.String()
	}
	return s + ";"
}

func (d *FunctionDecl) String() string {
	return "func " + d.Name
}

func (o *ReturnStatement) String() string {
	if o.Value == nil {
		return "return;"
	}
	return "return " + o.Value.String() + ";"
}

func (o *FunctionCall) String() string {
	return o.Callee + "(" + joinExprs(o.Args) + ")"
}

func (o *FunctionReturn) String() string {
	if o.Site.Kind == CallAssign {
		return o.Site.Target + " = return " + o.Callee
	}
	return "return " + o.Callee
}

func (o *Multi) String() string {
	parts := make([]string, len(o.Edges))
	for i, e := range o.Edges {
		parts[i] = e.Op.String()
	}
	return strings.Join(parts, " ")
}

func joinExprs(exprs []expr.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Type is the declared type of a variable.
type Type int

const (
	TypeInt Type = iota
	TypeBool
	TypeChar
	TypeFloat
	TypeString
	TypePointer
	TypeArray
	TypeStruct
	TypeOther
)

var typeNames = map[string]Type{
	"int": TypeInt, "int8": TypeInt, "int16": TypeInt, "int32": TypeInt, "int64": TypeInt,
	"uint": TypeInt, "uint8": TypeInt, "uint16": TypeInt, "uint32": TypeInt, "uint64": TypeInt,
	"bool": TypeBool,
	"byte": TypeChar, "rune": TypeChar, "char": TypeChar,
	"float32": TypeFloat, "float64": TypeFloat,
	"string": TypeString,
}

// ParseType maps a Go type expression onto a Type.
func ParseType(s string) Type {
	s = strings.TrimSpace(s)
	if t, ok := typeNames[s]; ok {
		return t
	}
	switch {
	case strings.HasPrefix(s, "*"):
		return TypePointer
	case strings.HasPrefix(s, "["):
		return TypeArray
	case strings.HasPrefix(s, "struct"):
		return TypeStruct
	}
	return TypeOther
}

// IsScalar reports whether values of t fit a finite integer domain.
func (t Type) IsScalar() bool {
	return t == TypeInt || t == TypeBool || t == TypeChar
}

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeChar:
		return "char"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypePointer:
		return "pointer"
	case TypeArray:
		return "array"
	case TypeStruct:
		return "struct"
	default:
		return "other"
	}
}
