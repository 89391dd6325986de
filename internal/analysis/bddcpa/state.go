package bddcpa

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gnolang/reach/internal/analysis/bdd"
	"github.com/gnolang/reach/internal/analysis/cfa"
	"github.com/gnolang/reach/internal/analysis/domain"
	"github.com/gnolang/reach/internal/analysis/expr"
)

// State is an abstract state: a diagram over the bits of all declared
// variables plus the assumptions not yet compiled into it. Published states
// are never modified; the transfer relation works on clones.
type State struct {
	eng     *Engine
	diagram bdd.Diagram
	block   ConditionBlock
	// merged holds the states Merge folded into this one.
	merged map[*State]struct{}
}

func (e *Engine) newState(d bdd.Diagram, block ConditionBlock) *State {
	return &State{eng: e, diagram: d, block: block}
}

// Diagram returns the committed part of the state.
func (s *State) Diagram() bdd.Diagram {
	return s.diagram
}

// Block returns the pending assumptions.
func (s *State) Block() ConditionBlock {
	return s.block
}

// MergedFrom reports whether o was folded into s by Merge.
func (s *State) MergedFrom(o *State) bool {
	_, ok := s.merged[o]
	return ok
}

func (s *State) String() string {
	return fmt.Sprintf("(%s, %s)", s.diagram, s.block)
}

func (s *State) clone() *State {
	return &State{eng: s.eng, diagram: s.diagram, block: s.block}
}

// assignConstant makes name hold lit.
func (s *State) assignConstant(name string, lit *expr.Literal) error {
	e := s.eng
	v, err := e.registry.Lookup(name)
	if err != nil {
		return err
	}
	idx, err := e.policy.IndexOf(lit)
	if err != nil {
		return err
	}
	if idx >= v.Size {
		return fmt.Errorf("%w: index %d of %s exceeds the domain of %s", ErrUnsupportedLiteral, idx, lit, name)
	}
	s.diagram = s.diagram.Exists(v.Bits).And(v.Is(e.mgr, idx))
	return nil
}

// assignVariable makes dst equal to src.
func (s *State) assignVariable(src, dst string) error {
	if src == dst {
		return nil
	}
	e := s.eng
	from, err := e.registry.Lookup(src)
	if err != nil {
		return err
	}
	to, err := e.registry.Lookup(dst)
	if err != nil {
		return err
	}
	if from.Width() != to.Width() {
		return fmt.Errorf("%w: %s and %s have different domains", ErrUnsupportedStatement, src, dst)
	}
	eq := to.Vector(e.mgr).EqualTo(from.Vector(e.mgr))
	s.diagram = s.diagram.Exists(to.Bits).And(eq)
	return nil
}

// undefineVariable forgets everything known about name.
func (s *State) undefineVariable(name string) error {
	v, err := s.eng.registry.Lookup(name)
	if err != nil {
		return err
	}
	s.diagram = s.diagram.Exists(v.Bits)
	return nil
}

// forget quantifies all the named variables out at once.
func (s *State) forget(names ...string) {
	s.diagram = s.diagram.Exists(s.eng.registry.Bits(names...))
}

// conjunctToConditionBlock ANDs cond into the entry of line.
func (s *State) conjunctToConditionBlock(line int, cond expr.Expr) {
	e := s.eng
	if prev, ok := s.block.Get(line); ok {
		cond = e.exprs.Intern(expr.And(prev, cond))
	}
	s.block = s.block.with(line, cond)
	e.stats.Assumptions.Add(1)
	e.stats.ObservePending(s.block.Len())
}

// disjunctConditionBlocks ORs the entries of lines present in both blocks.
// Lines missing from either block are dropped, so an empty other empties
// the block.
func (s *State) disjunctConditionBlocks(other ConditionBlock) {
	if other.IsEmpty() {
		s.block = ConditionBlock{}
		return
	}
	conds := make(map[int]expr.Expr)
	for line, c := range s.block.conds {
		oc, ok := other.conds[line]
		if !ok {
			continue
		}
		if expr.Equal(c, oc) {
			conds[line] = c
			continue
		}
		conds[line] = s.eng.exprs.Intern(expr.Or(c, oc))
	}
	s.block = ConditionBlock{conds: conds}
}

// compileConditionBlock moves the pending assumptions into the diagram.
// Lines are compiled from the last to the first.
func (s *State) compileConditionBlock() error {
	if s.block.IsEmpty() {
		return nil
	}
	e := s.eng
	defer e.stats.Abstraction.Start()()

	lines := s.block.Lines()
	sort.Sort(sort.Reverse(sort.IntSlice(lines)))

	acc := e.mgr.True()
	for _, line := range lines {
		cond, _ := s.block.Get(line)
		d, err := e.compileCached(cond)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		acc = acc.And(d)
	}
	s.diagram = s.diagram.And(acc)
	e.logger.Debug("abstraction",
		zap.Int("lines", len(lines)),
		zap.Bool("infeasible", s.diagram.IsFalse()),
	)
	s.block = ConditionBlock{}
	e.stats.Abstractions.Add(1)
	return nil
}

// scope resolves identifiers as seen from one edge: to the local of the
// function when one is visible at the edge's origin, to the global
// otherwise. Visibility is fixed by the automaton.
type scope struct {
	function string
	at       *cfa.Node
	// locals declared by earlier parts of a multi edge
	declared map[string]struct{}
}

func scopeOf(edge *cfa.Edge) *scope {
	return &scope{function: edge.Pred.Function, at: edge.Pred}
}

func (sc *scope) resolve(name string) string {
	if _, ok := sc.declared[name]; ok || sc.at.Declares(name) {
		return domain.ScopedName(sc.function, name)
	}
	return name
}

func (sc *scope) declare(name string) {
	if sc.declared == nil {
		sc.declared = make(map[string]struct{})
	}
	sc.declared[name] = struct{}{}
}

// rewrite replaces the identifiers of cond by the names they denote.
func (sc *scope) rewrite(cond expr.Expr) expr.Expr {
	return expr.Rewrite(cond, func(id *expr.Identifier) expr.Expr {
		name := sc.resolve(id.Name)
		if name == id.Name {
			return id
		}
		return expr.Ident(name)
	})
}

// declare ensures name exists with the policy's domain size, forgetting
// its old value when it was declared before.
func (s *State) declare(name string) (*domain.Variable, error) {
	e := s.eng
	v, created, err := e.registry.Declare(name, e.policy.MaxDomainSize())
	if err != nil {
		return nil, err
	}
	if !created {
		s.diagram = s.diagram.Exists(v.Bits)
	}
	return v, nil
}
