package bdd

// Vector is an unsigned integer encoded as a slice of bit diagrams,
// least significant bit first.
type Vector []Diagram

// Vars returns the vector made of the given bits.
func (m *Manager) Vars(bits []int) Vector {
	v := make(Vector, len(bits))
	for i, b := range bits {
		v[i] = m.Var(b)
	}
	return v
}

// Constant returns the width-bit encoding of value.
func (m *Manager) Constant(width, value int) Vector {
	v := make(Vector, width)
	for i := range v {
		v[i] = m.Const(value&(1<<i) != 0)
	}
	return v
}

// EqualTo returns the diagram of a == b. Both vectors must share a manager
// and width.
func (a Vector) EqualTo(b Vector) Diagram {
	m := a[0].m
	d := m.True()
	for i := range a {
		d = d.And(a[i].Equiv(b[i]))
	}
	return d
}

// LessThan returns the diagram of a < b, comparing unsigned values.
func (a Vector) LessThan(b Vector) Diagram {
	m := a[0].m
	lt := m.False()
	eq := m.True()
	for i := len(a) - 1; i >= 0; i-- {
		lt = lt.Or(eq.And(a[i].Not()).And(b[i]))
		eq = eq.And(a[i].Equiv(b[i]))
	}
	return lt
}

// LessOrEqual returns the diagram of a <= b, comparing unsigned values.
func (a Vector) LessOrEqual(b Vector) Diagram {
	return b.LessThan(a).Not()
}

// Width returns the number of bits needed to encode size distinct values.
func Width(size int) int {
	w := 1
	for (1 << w) < size {
		w++
	}
	return w
}
