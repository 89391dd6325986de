package bddcpa

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gnolang/reach/internal/analysis/cfa"
	"github.com/gnolang/reach/internal/analysis/expr"
)

// ConditionBlock maps source lines to the conjunction of the assumptions
// made on that line since the last abstraction point. It is immutable:
// every update returns a new block and existing blocks may be shared between
// states. The zero value is the empty block.
type ConditionBlock struct {
	conds map[int]expr.Expr
}

// Len returns the number of lines in the block.
func (b ConditionBlock) Len() int {
	return len(b.conds)
}

func (b ConditionBlock) IsEmpty() bool {
	return len(b.conds) == 0
}

// Get returns the condition of line.
func (b ConditionBlock) Get(line int) (expr.Expr, bool) {
	e, ok := b.conds[line]
	return e, ok
}

// Lines returns the lines of the block in ascending order.
func (b ConditionBlock) Lines() []int {
	lines := make([]int, 0, len(b.conds))
	for l := range b.conds {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

func (b ConditionBlock) with(line int, e expr.Expr) ConditionBlock {
	conds := make(map[int]expr.Expr, len(b.conds)+1)
	for l, c := range b.conds {
		conds[l] = c
	}
	conds[line] = e
	return ConditionBlock{conds: conds}
}

// Equal reports whether both blocks hold syntactically equal conditions on
// the same lines.
func (b ConditionBlock) Equal(o ConditionBlock) bool {
	if len(b.conds) != len(o.conds) {
		return false
	}
	for l, c := range b.conds {
		oc, ok := o.conds[l]
		if !ok || !expr.Equal(c, oc) {
			return false
		}
	}
	return true
}

// SubsumedBy reports whether every line of o is also in b with a condition
// that syntactically implies o's.
func (b ConditionBlock) SubsumedBy(o ConditionBlock) bool {
	for l, oc := range o.conds {
		c, ok := b.conds[l]
		if !ok || !expr.Implies(c, oc) {
			return false
		}
	}
	return true
}

func (b ConditionBlock) String() string {
	if b.IsEmpty() {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i, l := range b.Lines() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(l))
		sb.WriteString(": ")
		sb.WriteString(b.conds[l].String())
	}
	sb.WriteString("}")
	return sb.String()
}

// isAbstractionPoint reports whether states reaching n must have their
// condition block compiled: every location is one, except those entered and
// left only through assume edges. A location without leaving edges keeps its
// block pending; IsFeasible settles it.
func isAbstractionPoint(n *cfa.Node) bool {
	for _, e := range n.Entering() {
		if e.Kind() != cfa.AssumeEdge {
			return true
		}
	}
	for _, e := range n.Leaving() {
		if e.Kind() != cfa.AssumeEdge {
			return true
		}
	}
	return false
}
