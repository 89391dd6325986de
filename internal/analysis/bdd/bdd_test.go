package bdd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(1000, 500)
	require.NoError(t, err)
	return m
}

func TestConstants(t *testing.T) {
	t.Parallel()
	m := newManager(t)

	assert.True(t, m.True().IsTrue())
	assert.True(t, m.False().IsFalse())
	assert.True(t, m.True().Not().IsFalse())
	assert.Equal(t, "true", m.True().String())
	assert.False(t, Diagram{}.Valid())
}

func TestBooleanAlgebra(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	bits, err := m.Allocate(2)
	require.NoError(t, err)
	a, b := m.Var(bits[0]), m.Var(bits[1])

	assert.True(t, a.And(a.Not()).IsFalse())
	assert.True(t, a.Or(a.Not()).IsTrue())
	assert.True(t, a.And(b).Implies(a))
	assert.False(t, a.Implies(a.And(b)))
	assert.True(t, a.Equiv(b).Equal(a.And(b).Or(a.Not().And(b.Not()))))
	assert.True(t, m.NVar(bits[0]).Equal(a.Not()))
}

func TestExistsForgetsBits(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	bits, err := m.Allocate(2)
	require.NoError(t, err)
	a, b := m.Var(bits[0]), m.Var(bits[1])

	d := a.And(b)
	assert.True(t, d.Exists([]int{bits[0]}).Equal(b))
	assert.True(t, d.Exists(bits).IsTrue())
	assert.True(t, d.Exists(nil).Equal(d))
}

func TestAllocateGrowsVarnum(t *testing.T) {
	t.Parallel()
	m := newManager(t)

	first, err := m.Allocate(initialVarnum - 1)
	require.NoError(t, err)
	assert.Equal(t, 0, first[0])

	more, err := m.Allocate(10)
	require.NoError(t, err)
	assert.Equal(t, []int{63, 64, 65, 66, 67, 68, 69, 70, 71, 72}, more)
	assert.Equal(t, initialVarnum+9, m.Bits())

	// bits beyond the initial capacity are usable
	v := m.Var(more[9])
	assert.False(t, v.IsFalse())
	assert.Greater(t, m.Operations(), int64(0))
}

func TestVectorComparisons(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	width := Width(5)
	require.Equal(t, 3, width)

	bits, err := m.Allocate(width)
	require.NoError(t, err)
	x := m.Vars(bits)

	for value := range 5 {
		c := m.Constant(width, value)
		eq := x.EqualTo(c)
		// exactly one assignment of the three bits satisfies x == value
		assert.Equal(t, int64(1), countOver(eq, bits), "x == %d", value)

		lt := x.LessThan(c)
		assert.Equal(t, int64(value), countOver(lt, bits), "x < %d", value)

		le := x.LessOrEqual(c)
		assert.Equal(t, int64(value+1), countOver(le, bits), "x <= %d", value)
	}
}

func TestVectorEquality(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	xb, err := m.Allocate(2)
	require.NoError(t, err)
	yb, err := m.Allocate(2)
	require.NoError(t, err)
	x, y := m.Vars(xb), m.Vars(yb)

	eq := x.EqualTo(y)
	fixed := eq.And(x.EqualTo(m.Constant(2, 3)))
	assert.True(t, fixed.Implies(y.EqualTo(m.Constant(2, 3))))
	assert.True(t, x.LessThan(y).And(y.LessThan(x)).IsFalse())
}

func TestWidth(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, Width(1))
	assert.Equal(t, 1, Width(2))
	assert.Equal(t, 2, Width(3))
	assert.Equal(t, 2, Width(4))
	assert.Equal(t, 4, Width(16))
	assert.Equal(t, 5, Width(17))
}

// countOver counts the satisfying assignments of d restricted to bits by
// checking every valuation explicitly.
func countOver(d Diagram, bits []int) int64 {
	m := d.m
	var n int64
	for v := 0; v < 1<<len(bits); v++ {
		point := m.True()
		for i, b := range bits {
			if v&(1<<i) != 0 {
				point = point.And(m.Var(b))
			} else {
				point = point.And(m.NVar(b))
			}
		}
		if !d.And(point).IsFalse() {
			n++
		}
	}
	return n
}
