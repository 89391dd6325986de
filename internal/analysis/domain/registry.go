package domain

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gnolang/reach/internal/analysis/bdd"
)

// ErrUndeclaredVariable signals a lookup of a name that was never declared.
// It points at an inconsistent CFA rather than an unsupported program.
var ErrUndeclaredVariable = errors.New("undeclared variable")

// ScopedName returns the registry name of a function-local variable.
func ScopedName(function, name string) string {
	return function + "." + name
}

// ReturnVariable returns the synthetic variable holding function's result.
func ReturnVariable(function string) string {
	return ScopedName(function, "return")
}

// Variable is the finite-domain encoding of one scoped variable: a block of
// Width() bits holding an index in [0, Size).
type Variable struct {
	Name string
	Size int
	Bits []int
}

// Width returns the number of bits of the encoding.
func (v *Variable) Width() int {
	return len(v.Bits)
}

// Vector returns the bit vector of v.
func (v *Variable) Vector(m *bdd.Manager) bdd.Vector {
	return m.Vars(v.Bits)
}

// Is returns the diagram asserting that v holds index.
func (v *Variable) Is(m *bdd.Manager, index int) bdd.Diagram {
	return v.Vector(m).EqualTo(m.Constant(v.Width(), index))
}

// Registry maps scoped names to their encodings and records the locals of
// every function. It only ever grows: bit allocation order is observable
// through the diagrams, so names are never removed or re-encoded.
type Registry struct {
	mu     sync.RWMutex
	mgr    *bdd.Manager
	vars   map[string]*Variable
	order  []string
	locals map[string]map[string]struct{}
}

// NewRegistry creates an empty registry allocating bits from m.
func NewRegistry(m *bdd.Manager) *Registry {
	return &Registry{
		mgr:    m,
		vars:   make(map[string]*Variable),
		locals: make(map[string]map[string]struct{}),
	}
}

// Declare returns the encoding of name, allocating it on first sight.
// The boolean result reports whether the variable is new. Forgetting the old
// value of a re-declared variable is up to the caller.
func (r *Registry) Declare(name string, size int) (*Variable, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.vars[name]; ok {
		return v, false, nil
	}
	bits, err := r.mgr.Allocate(bdd.Width(size))
	if err != nil {
		return nil, false, fmt.Errorf("declaring %s: %w", name, err)
	}
	v := &Variable{Name: name, Size: size, Bits: bits}
	r.vars[name] = v
	r.order = append(r.order, name)
	return v, true, nil
}

// Lookup returns the encoding of a declared variable.
func (r *Registry) Lookup(name string) (*Variable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndeclaredVariable, name)
	}
	return v, nil
}

// AddLocal records scopedName as a local of function.
func (r *Registry) AddLocal(function, scopedName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.locals[function]
	if !ok {
		set = make(map[string]struct{})
		r.locals[function] = set
	}
	set[scopedName] = struct{}{}
}

// Locals returns the scoped names of function's locals, sorted.
func (r *Registry) Locals(function string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.locals[function]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns all declared names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of declared variables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vars)
}

// Bits collects the bits of the named variables. Unknown names are skipped.
func (r *Registry) Bits(names ...string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bits []int
	for _, name := range names {
		if v, ok := r.vars[name]; ok {
			bits = append(bits, v.Bits...)
		}
	}
	return bits
}
