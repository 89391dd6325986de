package expr

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
)

// ErrSyntax is returned for source text that cannot be turned into an Expr.
var ErrSyntax = errors.New("unsupported expression syntax")

var binaryOps = map[token.Token]BinaryOp{
	token.ADD:  OpAdd,
	token.SUB:  OpSub,
	token.MUL:  OpMul,
	token.QUO:  OpDiv,
	token.REM:  OpMod,
	token.EQL:  OpEq,
	token.NEQ:  OpNeq,
	token.LSS:  OpLt,
	token.LEQ:  OpLte,
	token.GTR:  OpGt,
	token.GEQ:  OpGte,
	token.LAND: OpAnd,
	token.LOR:  OpOr,
}

// Parse parses a C-like expression written in Go syntax, e.g. "x == 1 && !y".
func Parse(src string) (Expr, error) {
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", src, err)
	}
	return convert(node)
}

// ParseCall parses a call such as "f(x, 1)" and returns the callee name
// and its arguments.
func ParseCall(src string) (string, []Expr, error) {
	node, err := parser.ParseExpr(src)
	if err != nil {
		return "", nil, fmt.Errorf("parsing %q: %w", src, err)
	}
	call, ok := node.(*ast.CallExpr)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q is not a call", ErrSyntax, src)
	}
	fn, ok := call.Fun.(*ast.Ident)
	if !ok {
		return "", nil, fmt.Errorf("%w: callee of %q is not a plain name", ErrSyntax, src)
	}
	args := make([]Expr, 0, len(call.Args))
	for _, a := range call.Args {
		arg, err := convert(a)
		if err != nil {
			return "", nil, err
		}
		args = append(args, arg)
	}
	return fn.Name, args, nil
}

// IsCall reports whether src is a call expression.
func IsCall(src string) bool {
	node, err := parser.ParseExpr(src)
	if err != nil {
		return false
	}
	_, ok := node.(*ast.CallExpr)
	return ok
}

func convert(node ast.Expr) (Expr, error) {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return convert(n.X)
	case *ast.Ident:
		switch n.Name {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return Ident(n.Name), nil
	case *ast.BasicLit:
		return convertLiteral(n)
	case *ast.UnaryExpr:
		operand, err := convert(n.X)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.NOT:
			return Not(operand), nil
		case token.SUB:
			return Neg(operand), nil
		case token.ADD:
			return operand, nil
		}
		return nil, fmt.Errorf("%w: unary operator %s", ErrSyntax, n.Op)
	case *ast.BinaryExpr:
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, fmt.Errorf("%w: binary operator %s", ErrSyntax, n.Op)
		}
		left, err := convert(n.X)
		if err != nil {
			return nil, err
		}
		right, err := convert(n.Y)
		if err != nil {
			return nil, err
		}
		return Bin(op, left, right), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrSyntax, node)
	}
}

func convertLiteral(lit *ast.BasicLit) (Expr, error) {
	switch lit.Kind {
	case token.INT:
		v, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: integer %s: %v", ErrSyntax, lit.Value, err)
		}
		return Int(v), nil
	case token.CHAR:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: char %s: %v", ErrSyntax, lit.Value, err)
		}
		return Char([]rune(s)[0]), nil
	case token.STRING:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: string %s: %v", ErrSyntax, lit.Value, err)
		}
		return Str(s), nil
	default:
		return Float(lit.Value), nil
	}
}
