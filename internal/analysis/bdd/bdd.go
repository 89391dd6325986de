// Package bdd wraps the rudd decision diagram library behind a value API.
//
// A Diagram is an immutable handle: every operation returns a new Diagram and
// never modifies its receiver, so diagrams may be shared freely between
// abstract states. Node sharing inside rudd is an implementation detail.
package bdd

import (
	"fmt"

	"github.com/dalzilio/rudd"
)

const initialVarnum = 64

// Manager owns a rudd BDD and hands out boolean variables (bits) in
// allocation order. It is not safe for concurrent use.
type Manager struct {
	set      rudd.Set
	capacity int
	used     int
	ops      int64
}

// NewManager creates a manager whose node table starts with nodes entries
// and whose operation cache holds cache entries.
func NewManager(nodes, cache int) (*Manager, error) {
	set, err := rudd.New(initialVarnum, rudd.Nodesize(nodes), rudd.Cachesize(cache))
	if err != nil {
		return nil, fmt.Errorf("creating bdd: %w", err)
	}
	return &Manager{set: set, capacity: initialVarnum}, nil
}

// Allocate reserves n fresh, consecutive bits and returns their indices.
func (m *Manager) Allocate(n int) ([]int, error) {
	if m.used+n > m.capacity {
		capacity := m.capacity
		for m.used+n > capacity {
			capacity *= 2
		}
		if err := m.set.SetVarnum(capacity); err != nil {
			return nil, fmt.Errorf("growing bdd to %d variables: %w", capacity, err)
		}
		m.capacity = capacity
	}
	bits := make([]int, n)
	for i := range bits {
		bits[i] = m.used + i
	}
	m.used += n
	return bits, nil
}

// Bits returns the number of allocated bits.
func (m *Manager) Bits() int {
	return m.used
}

// Operations returns how many diagrams the manager has produced.
func (m *Manager) Operations() int64 {
	return m.ops
}

func (m *Manager) wrap(n rudd.Node) Diagram {
	if n == nil {
		panic(fmt.Errorf("bdd: %s", m.set.Error()))
	}
	m.ops++
	return Diagram{m: m, n: n}
}

// True returns the constant true diagram.
func (m *Manager) True() Diagram {
	return Diagram{m: m, n: m.set.True()}
}

// False returns the constant false diagram.
func (m *Manager) False() Diagram {
	return Diagram{m: m, n: m.set.False()}
}

// Const returns the constant diagram for v.
func (m *Manager) Const(v bool) Diagram {
	if v {
		return m.True()
	}
	return m.False()
}

// Var returns the diagram of bit i.
func (m *Manager) Var(i int) Diagram {
	return m.wrap(m.set.Ithvar(i))
}

// NVar returns the diagram of the negation of bit i.
func (m *Manager) NVar(i int) Diagram {
	return m.wrap(m.set.NIthvar(i))
}

// Diagram is a boolean function over the manager's bits.
type Diagram struct {
	m *Manager
	n rudd.Node
}

// Valid reports whether d was produced by a manager.
func (d Diagram) Valid() bool {
	return d.m != nil && d.n != nil
}

// And returns d ∧ o.
func (d Diagram) And(o Diagram) Diagram {
	return d.m.wrap(d.m.set.And(d.n, o.n))
}

// Or returns d ∨ o.
func (d Diagram) Or(o Diagram) Diagram {
	return d.m.wrap(d.m.set.Or(d.n, o.n))
}

// Not returns ¬d.
func (d Diagram) Not() Diagram {
	return d.m.wrap(d.m.set.Not(d.n))
}

// Imp returns d ⇒ o.
func (d Diagram) Imp(o Diagram) Diagram {
	return d.m.wrap(d.m.set.Imp(d.n, o.n))
}

// Equiv returns d ⇔ o.
func (d Diagram) Equiv(o Diagram) Diagram {
	return d.m.wrap(d.m.set.Equiv(d.n, o.n))
}

// Exists existentially quantifies the given bits out of d.
func (d Diagram) Exists(bits []int) Diagram {
	if len(bits) == 0 {
		return d
	}
	varset := d.m.wrap(d.m.set.Makeset(bits))
	return d.m.wrap(d.m.set.Exist(d.n, varset.n))
}

// Equal reports whether d and o denote the same function. Diagrams are
// canonical, so this is a constant time node comparison.
func (d Diagram) Equal(o Diagram) bool {
	return d.m.set.Equal(d.n, o.n)
}

// IsTrue reports whether d is a tautology.
func (d Diagram) IsTrue() bool {
	return d.Equal(d.m.True())
}

// IsFalse reports whether d is unsatisfiable.
func (d Diagram) IsFalse() bool {
	return d.Equal(d.m.False())
}

// Implies reports whether d ⇒ o is a tautology.
func (d Diagram) Implies(o Diagram) bool {
	return d.Imp(o).IsTrue()
}

func (d Diagram) String() string {
	switch {
	case !d.Valid():
		return "<invalid>"
	case d.IsTrue():
		return "true"
	case d.IsFalse():
		return "false"
	default:
		return fmt.Sprintf("bdd(%d)", *d.n)
	}
}
