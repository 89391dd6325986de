package domain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gnolang/reach/internal/analysis/expr"
)

// ErrUnsupportedLiteral is returned for literals a policy cannot encode.
var ErrUnsupportedLiteral = errors.New("unsupported literal")

// Policy abstracts literals into small indices of a fixed-size domain.
// Two literals denoting the same value map to the same index.
type Policy interface {
	// MaxDomainSize is the size of every variable domain.
	MaxDomainSize() int
	// IndexOf returns the domain index of lit.
	IndexOf(lit *expr.Literal) (int, error)
	// OrderPreserving reports whether index order follows value order,
	// which makes relational comparisons expressible.
	OrderPreserving() bool
}

// literalValue returns the integer denoted by lit.
func literalValue(lit *expr.Literal) (int64, error) {
	switch lit.Kind {
	case expr.IntLiteral, expr.BoolLiteral, expr.CharLiteral:
		return lit.Value, nil
	default:
		return 0, fmt.Errorf("%w: %s literal %s", ErrUnsupportedLiteral, lit.Kind, lit)
	}
}

// IntervalPolicy maps the values [Min, Min+Size) onto the indices [0, Size)
// keeping their order. Literals outside the interval are rejected.
type IntervalPolicy struct {
	min  int64
	size int

	mu   sync.Mutex
	memo map[*expr.Literal]int
}

// NewIntervalPolicy creates an interval policy.
func NewIntervalPolicy(min int64, size int) *IntervalPolicy {
	return &IntervalPolicy{
		min:  min,
		size: size,
		memo: make(map[*expr.Literal]int),
	}
}

func (p *IntervalPolicy) MaxDomainSize() int {
	return p.size
}

func (p *IntervalPolicy) OrderPreserving() bool {
	return true
}

func (p *IntervalPolicy) IndexOf(lit *expr.Literal) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.memo[lit]; ok {
		return idx, nil
	}
	v, err := literalValue(lit)
	if err != nil {
		return 0, err
	}
	if v < p.min || v >= p.min+int64(p.size) {
		return 0, fmt.Errorf("%w: %s outside [%d, %d)", ErrUnsupportedLiteral, lit, p.min, p.min+int64(p.size))
	}
	idx := int(v - p.min)
	p.memo[lit] = idx
	return idx, nil
}

// EnumerationPolicy hands out indices to values in order of first sight.
// Zero always gets index 0 so that "x != 0" tests stay expressible.
// Indices carry no order.
type EnumerationPolicy struct {
	size int

	mu      sync.Mutex
	indices map[int64]int
	memo    map[*expr.Literal]int
}

// NewEnumerationPolicy creates an enumeration policy with room for size
// distinct values.
func NewEnumerationPolicy(size int) *EnumerationPolicy {
	return &EnumerationPolicy{
		size:    size,
		indices: map[int64]int{0: 0},
		memo:    make(map[*expr.Literal]int),
	}
}

func (p *EnumerationPolicy) MaxDomainSize() int {
	return p.size
}

func (p *EnumerationPolicy) OrderPreserving() bool {
	return false
}

func (p *EnumerationPolicy) IndexOf(lit *expr.Literal) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.memo[lit]; ok {
		return idx, nil
	}
	v, err := literalValue(lit)
	if err != nil {
		return 0, err
	}
	idx, ok := p.indices[v]
	if !ok {
		if len(p.indices) >= p.size {
			return 0, fmt.Errorf("%w: %s exceeds the %d distinct values of the domain", ErrUnsupportedLiteral, lit, p.size)
		}
		idx = len(p.indices)
		p.indices[v] = idx
	}
	p.memo[lit] = idx
	return idx, nil
}
