// Package bddcpa is a reachability domain that tracks the values of program
// variables with binary decision diagrams.
//
// Each variable ranges over a small finite domain whose indices come from a
// literal policy; its index is encoded in a block of diagram bits. An
// abstract state is a diagram over all those bits plus a condition block:
// assumptions met since the last abstraction point that have not been
// compiled into the diagram yet. Deferring them lets a run of branches be
// compiled in one go.
//
// The Engine exposes the transfer relation and the lattice operators a
// worklist driver needs. It is not safe for concurrent use; independent
// analyses use independent engines.
package bddcpa

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/reach/internal/analysis/bdd"
	"github.com/gnolang/reach/internal/analysis/cfa"
	"github.com/gnolang/reach/internal/analysis/domain"
	"github.com/gnolang/reach/internal/analysis/expr"
	"github.com/gnolang/reach/internal/analysis/stats"
)

// Engine owns everything a run shares between states: the diagram manager,
// the variable registry and the expression cache.
type Engine struct {
	cfg      Config
	policy   domain.Policy
	mgr      *bdd.Manager
	registry *domain.Registry
	exprs    *expr.Cache
	compiled map[expr.Expr]bdd.Diagram
	width    int
	zero     *expr.Literal

	stats  *stats.Statistics
	logger *zap.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg Config, policy domain.Policy, opts ...Option) (*Engine, error) {
	if policy == nil {
		return nil, errors.New("bddcpa: nil literal policy")
	}
	if policy.MaxDomainSize() < 1 {
		return nil, fmt.Errorf("bddcpa: domain size %d", policy.MaxDomainSize())
	}
	mgr, err := bdd.NewManager(cfg.BDDNodes, cfg.BDDCache)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		policy:   policy,
		mgr:      mgr,
		registry: domain.NewRegistry(mgr),
		exprs:    expr.NewCache(),
		compiled: make(map[expr.Expr]bdd.Diagram),
		width:    bdd.Width(policy.MaxDomainSize()),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.stats == nil {
		e.stats = stats.New()
	}
	e.zero = e.exprs.Intern(expr.Int(0)).(*expr.Literal)

	e.stats.Gauge("domains", "Declared variable domains.", func() float64 { return float64(e.registry.Len()) })
	e.stats.Gauge("bits", "Allocated diagram variables.", func() float64 { return float64(e.mgr.Bits()) })
	e.stats.Gauge("interned", "Interned expressions.", func() float64 { return float64(e.exprs.Len()) })
	e.stats.Gauge("intern_hit_rate", "Fraction of expression lookups answered by the cache.", e.exprs.HitRate)
	e.stats.Gauge("diagrams", "Diagrams produced.", func() float64 { return float64(e.mgr.Operations()) })
	e.stats.Gauge("compiled", "Compiled assumptions.", func() float64 { return float64(len(e.compiled)) })
	return e, nil
}

// InitialState returns the state at the program entry: nothing is known.
func (e *Engine) InitialState(entry *cfa.Node) *State {
	e.logger.Debug("initial state",
		zap.Stringer("entry", entry),
		zap.Bool("blocking", e.cfg.Blocking),
		zap.Stringer("merge", e.cfg.Merge),
	)
	return e.newState(e.mgr.True(), ConditionBlock{})
}

// IsFeasible reports whether s describes at least one concrete state once
// its pending assumptions are taken into account. A block that cannot be
// compiled counts as feasible.
func (e *Engine) IsFeasible(s *State) bool {
	c := s.clone()
	if err := c.compileConditionBlock(); err != nil {
		e.logger.Debug("feasibility check kept pending block", zap.Error(err))
		return !s.diagram.IsFalse()
	}
	return !c.diagram.IsFalse()
}

// Values returns the domain indices name may hold in s.
func (e *Engine) Values(s *State, name string) ([]int, error) {
	v, err := e.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	c := s.clone()
	if err := c.compileConditionBlock(); err != nil {
		return nil, err
	}
	var out []int
	for idx := 0; idx < v.Size; idx++ {
		if !c.diagram.And(v.Is(e.mgr, idx)).IsFalse() {
			out = append(out, idx)
		}
	}
	return out, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Registry returns the variable registry of the run.
func (e *Engine) Registry() *domain.Registry { return e.registry }

// Manager returns the diagram manager of the run.
func (e *Engine) Manager() *bdd.Manager { return e.mgr }

// Statistics returns the counters of the run.
func (e *Engine) Statistics() *stats.Statistics { return e.stats }
