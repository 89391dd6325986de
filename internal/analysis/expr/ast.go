package expr

import (
	"strconv"
)

// Expr represents a side-effect free expression attached to a CFA edge.
// The set of implementations is closed: *Identifier, *Literal, *Binary and *Unary.
type Expr interface {
	isExpr()
	String() string
}

// Identifier is a reference to a program variable. After scoping the name
// is the scoped name ("f.x" for locals, "x" for globals).
type Identifier struct {
	Name string
}

func (*Identifier) isExpr() {}
func (e *Identifier) String() string {
	return e.Name
}

// LiteralKind distinguishes the source shape of a literal.
type LiteralKind int

const (
	_ LiteralKind = iota
	IntLiteral
	BoolLiteral
	CharLiteral
	StringLiteral
	FloatLiteral
)

func (k LiteralKind) String() string {
	switch k {
	case IntLiteral:
		return "int"
	case BoolLiteral:
		return "bool"
	case CharLiteral:
		return "char"
	case StringLiteral:
		return "string"
	case FloatLiteral:
		return "float"
	default:
		return "?"
	}
}

// Literal represents a constant. Value holds the integer value for int,
// bool (0/1) and char literals; Text holds the source text of the others.
type Literal struct {
	Kind  LiteralKind
	Value int64
	Text  string
}

func (*Literal) isExpr() {}
func (e *Literal) String() string {
	switch e.Kind {
	case IntLiteral:
		return strconv.FormatInt(e.Value, 10)
	case BoolLiteral:
		if e.Value != 0 {
			return "true"
		}
		return "false"
	case CharLiteral:
		return strconv.QuoteRune(rune(e.Value))
	case StringLiteral:
		return strconv.Quote(e.Text)
	default:
		return e.Text
	}
}

// BinaryOp represents binary operators.
type BinaryOp int

const (
	_ BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// IsRelational reports whether op compares two integer operands.
func (op BinaryOp) IsRelational() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// IsLogical reports whether op combines two boolean operands.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// Binary represents a binary expression.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*Binary) isExpr() {}
func (e *Binary) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

// UnaryOp represents unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// Unary represents a unary expression.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (*Unary) isExpr() {}
func (e *Unary) String() string {
	return "(" + e.Op.String() + e.Operand.String() + ")"
}

// Helper functions to construct AST nodes

// Ident creates a variable reference expression.
func Ident(name string) *Identifier {
	return &Identifier{Name: name}
}

// Int creates an integer literal expression.
func Int(v int64) *Literal {
	return &Literal{Kind: IntLiteral, Value: v}
}

// Bool creates a boolean literal expression.
func Bool(v bool) *Literal {
	if v {
		return &Literal{Kind: BoolLiteral, Value: 1}
	}
	return &Literal{Kind: BoolLiteral, Value: 0}
}

// Char creates a character literal expression.
func Char(r rune) *Literal {
	return &Literal{Kind: CharLiteral, Value: int64(r)}
}

// Str creates a string literal expression.
func Str(s string) *Literal {
	return &Literal{Kind: StringLiteral, Text: s}
}

// Float creates a floating point literal expression from its source text.
func Float(text string) *Literal {
	return &Literal{Kind: FloatLiteral, Text: text}
}

// Bin creates a binary expression.
func Bin(op BinaryOp, left, right Expr) Expr {
	return &Binary{Op: op, Left: left, Right: right}
}

// Not creates a logical not expression. Double negations cancel out.
func Not(e Expr) Expr {
	if u, ok := e.(*Unary); ok && u.Op == OpNot {
		return u.Operand
	}
	return &Unary{Op: OpNot, Operand: e}
}

// Neg creates an arithmetic negation. Integer literals are folded.
func Neg(e Expr) Expr {
	if lit, ok := e.(*Literal); ok && lit.Kind == IntLiteral {
		return Int(-lit.Value)
	}
	return &Unary{Op: OpNeg, Operand: e}
}

// And creates a logical and expression.
func And(left, right Expr) Expr {
	return &Binary{Op: OpAnd, Left: left, Right: right}
}

// Or creates a logical or expression.
func Or(left, right Expr) Expr {
	return &Binary{Op: OpOr, Left: left, Right: right}
}

// Eq creates an equality expression.
func Eq(left, right Expr) Expr {
	return &Binary{Op: OpEq, Left: left, Right: right}
}

// Neq creates a not-equal expression.
func Neq(left, right Expr) Expr {
	return &Binary{Op: OpNeq, Left: left, Right: right}
}

// Lt creates a less-than expression.
func Lt(left, right Expr) Expr {
	return &Binary{Op: OpLt, Left: left, Right: right}
}
