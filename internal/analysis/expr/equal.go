package expr

// Equal reports whether a and b are syntactically identical.
// Interned expressions can be compared by reference instead.
func Equal(a, b Expr) bool {
	if a == b {
		return true
	}
	switch left := a.(type) {
	case *Literal:
		right, ok := b.(*Literal)
		if !ok {
			return false
		}
		return left.Kind == right.Kind && left.Value == right.Value && left.Text == right.Text
	case *Identifier:
		right, ok := b.(*Identifier)
		if !ok {
			return false
		}
		return left.Name == right.Name
	case *Binary:
		right, ok := b.(*Binary)
		if !ok {
			return false
		}
		if left.Op != right.Op {
			return false
		}
		return Equal(left.Left, right.Left) && Equal(left.Right, right.Right)
	case *Unary:
		right, ok := b.(*Unary)
		if !ok {
			return false
		}
		if left.Op != right.Op {
			return false
		}
		return Equal(left.Operand, right.Operand)
	default:
		return false
	}
}

// Implies is a purely syntactic implication check: a implies b when they are
// equal, when a is a conjunction one of whose sides implies b, or when b is a
// disjunction one of whose sides is implied by a.
// A false result does not mean the implication fails semantically.
func Implies(a, b Expr) bool {
	if Equal(a, b) {
		return true
	}
	if or, ok := b.(*Binary); ok && or.Op == OpOr {
		if Implies(a, or.Left) || Implies(a, or.Right) {
			return true
		}
	}
	if and, ok := a.(*Binary); ok && and.Op == OpAnd {
		return Implies(and.Left, b) || Implies(and.Right, b)
	}
	return false
}

// Rewrite returns e with every identifier replaced by fn(identifier).
// Subtrees without identifiers are returned unchanged.
func Rewrite(e Expr, fn func(*Identifier) Expr) Expr {
	switch x := e.(type) {
	case *Identifier:
		return fn(x)
	case *Binary:
		l := Rewrite(x.Left, fn)
		r := Rewrite(x.Right, fn)
		if l == x.Left && r == x.Right {
			return x
		}
		return &Binary{Op: x.Op, Left: l, Right: r}
	case *Unary:
		o := Rewrite(x.Operand, fn)
		if o == x.Operand {
			return x
		}
		return &Unary{Op: x.Op, Operand: o}
	default:
		return e
	}
}
