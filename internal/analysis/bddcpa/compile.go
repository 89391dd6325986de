package bddcpa

import (
	"fmt"

	"github.com/gnolang/reach/internal/analysis/bdd"
	"github.com/gnolang/reach/internal/analysis/expr"
)

// compileCached compiles an interned boolean expression, reusing the
// diagram of an earlier compilation of the same node.
func (e *Engine) compileCached(cond expr.Expr) (bdd.Diagram, error) {
	if d, ok := e.compiled[cond]; ok {
		return d, nil
	}
	d, err := e.compileBool(cond)
	if err != nil {
		return bdd.Diagram{}, err
	}
	e.compiled[cond] = d
	return d, nil
}

func (e *Engine) compileBool(x expr.Expr) (bdd.Diagram, error) {
	switch x := x.(type) {
	case *expr.Identifier:
		v, err := e.registry.Lookup(x.Name)
		if err != nil {
			return bdd.Diagram{}, err
		}
		zero, err := e.policy.IndexOf(e.zero)
		if err != nil {
			return bdd.Diagram{}, err
		}
		return v.Is(e.mgr, zero).Not(), nil

	case *expr.Literal:
		truth, err := literalTruth(x)
		if err != nil {
			return bdd.Diagram{}, err
		}
		return e.mgr.Const(truth), nil

	case *expr.Unary:
		if x.Op != expr.OpNot {
			return bdd.Diagram{}, fmt.Errorf("%w: %s in boolean context", ErrUnsupportedExpression, x)
		}
		d, err := e.compileBool(x.Operand)
		if err != nil {
			return bdd.Diagram{}, err
		}
		return d.Not(), nil

	case *expr.Binary:
		switch {
		case x.Op.IsLogical():
			l, err := e.compileBool(x.Left)
			if err != nil {
				return bdd.Diagram{}, err
			}
			r, err := e.compileBool(x.Right)
			if err != nil {
				return bdd.Diagram{}, err
			}
			if x.Op == expr.OpAnd {
				return l.And(r), nil
			}
			return l.Or(r), nil
		case x.Op.IsRelational():
			return e.compileComparison(x)
		}
	}
	return bdd.Diagram{}, fmt.Errorf("%w: %s", ErrUnsupportedExpression, x)
}

func (e *Engine) compileComparison(x *expr.Binary) (bdd.Diagram, error) {
	if x.Op != expr.OpEq && x.Op != expr.OpNeq && !e.policy.OrderPreserving() {
		return bdd.Diagram{}, fmt.Errorf("%w: %s needs an order preserving literal policy", ErrUnsupportedExpression, x)
	}
	l, err := e.compileInt(x.Left)
	if err != nil {
		return bdd.Diagram{}, err
	}
	r, err := e.compileInt(x.Right)
	if err != nil {
		return bdd.Diagram{}, err
	}
	switch x.Op {
	case expr.OpEq:
		return l.EqualTo(r), nil
	case expr.OpNeq:
		return l.EqualTo(r).Not(), nil
	case expr.OpLt:
		return l.LessThan(r), nil
	case expr.OpLte:
		return l.LessOrEqual(r), nil
	case expr.OpGt:
		return r.LessThan(l), nil
	case expr.OpGte:
		return r.LessOrEqual(l), nil
	}
	return bdd.Diagram{}, fmt.Errorf("%w: %s", ErrUnsupportedExpression, x)
}

func (e *Engine) compileInt(x expr.Expr) (bdd.Vector, error) {
	switch x := x.(type) {
	case *expr.Identifier:
		v, err := e.registry.Lookup(x.Name)
		if err != nil {
			return nil, err
		}
		return v.Vector(e.mgr), nil
	case *expr.Literal:
		idx, err := e.policy.IndexOf(x)
		if err != nil {
			return nil, err
		}
		return e.mgr.Constant(e.width, idx), nil
	case *expr.Unary:
		if lit, ok := x.Operand.(*expr.Literal); ok && x.Op == expr.OpNeg && lit.Kind == expr.IntLiteral {
			return e.compileInt(e.exprs.Intern(expr.Neg(lit)))
		}
	}
	return nil, fmt.Errorf("%w: %s in integer context", ErrUnsupportedExpression, x)
}

// checkBool validates a boolean expression and its variables without compiling
// it, so that unsupported assumptions fail on the edge that makes them
// rather than at the next abstraction point.
func (e *Engine) checkBool(x expr.Expr) error {
	switch x := x.(type) {
	case *expr.Identifier:
		if _, err := e.registry.Lookup(x.Name); err != nil {
			return err
		}
		_, err := e.policy.IndexOf(e.zero)
		return err
	case *expr.Literal:
		_, err := literalTruth(x)
		return err
	case *expr.Unary:
		if x.Op == expr.OpNot {
			return e.checkBool(x.Operand)
		}
	case *expr.Binary:
		switch {
		case x.Op.IsLogical():
			if err := e.checkBool(x.Left); err != nil {
				return err
			}
			return e.checkBool(x.Right)
		case x.Op.IsRelational():
			if x.Op != expr.OpEq && x.Op != expr.OpNeq && !e.policy.OrderPreserving() {
				return fmt.Errorf("%w: %s needs an order preserving literal policy", ErrUnsupportedExpression, x)
			}
			if err := e.checkInt(x.Left); err != nil {
				return err
			}
			return e.checkInt(x.Right)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedExpression, x)
}

func (e *Engine) checkInt(x expr.Expr) error {
	switch x := x.(type) {
	case *expr.Identifier:
		_, err := e.registry.Lookup(x.Name)
		return err
	case *expr.Literal:
		_, err := e.policy.IndexOf(x)
		return err
	case *expr.Unary:
		if lit, ok := x.Operand.(*expr.Literal); ok && x.Op == expr.OpNeg && lit.Kind == expr.IntLiteral {
			_, err := e.policy.IndexOf(e.exprs.Intern(expr.Neg(lit)).(*expr.Literal))
			return err
		}
	}
	return fmt.Errorf("%w: %s in integer context", ErrUnsupportedExpression, x)
}

func literalTruth(lit *expr.Literal) (bool, error) {
	switch lit.Kind {
	case expr.IntLiteral, expr.BoolLiteral, expr.CharLiteral:
		return lit.Value != 0, nil
	default:
		return false, fmt.Errorf("%w: %s literal %s in boolean context", ErrUnsupportedLiteral, lit.Kind, lit)
	}
}
