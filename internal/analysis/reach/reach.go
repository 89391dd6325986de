// Package reach computes the reachable abstract states of a control-flow
// automaton with a worklist, merging and covering states location by
// location until nothing new appears.
package reach

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/reach/internal/analysis/bddcpa"
	"github.com/gnolang/reach/internal/analysis/cfa"
)

// ErrIterationLimit is returned when the worklist was not drained within
// the configured number of iterations.
var ErrIterationLimit = errors.New("iteration limit reached")

// Domain is the abstract domain driven by Run. *bddcpa.Engine implements it.
type Domain interface {
	InitialState(entry *cfa.Node) *bddcpa.State
	Successors(s *bddcpa.State, edge *cfa.Edge) ([]*bddcpa.State, error)
	Merge(s1, s2 *bddcpa.State) *bddcpa.State
	IsLessOrEqual(s1, s2 *bddcpa.State) bool
	IsFeasible(s *bddcpa.State) bool
}

type Options struct {
	// MaxIterations bounds the number of states taken from the worklist.
	// Zero means no bound.
	MaxIterations int
}

// Diagnostic records a path abandoned because of a construct the domain
// cannot represent.
type Diagnostic struct {
	Edge *cfa.Edge
	Err  error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %v", d.Edge.Line, d.Err)
}

type Result struct {
	// Reached holds the states of every location, merged and covered.
	Reached     map[*cfa.Node][]*bddcpa.State
	Diagnostics []Diagnostic
	Iterations  int
	// Complete is set when the worklist was drained and no path was
	// abandoned, so that the reached states cover every execution.
	Complete bool
	// ErrorsReachable lists the error locations with a feasible state.
	ErrorsReachable []*cfa.Node
}

// States returns the number of reached states.
func (r *Result) States() int {
	n := 0
	for _, states := range r.Reached {
		n += len(states)
	}
	return n
}

type entry struct {
	node  *cfa.Node
	state *bddcpa.State
}

// Run explores graph from its main entry. Configuration errors of the
// domain abandon the path they occur on and are reported as diagnostics;
// any other error aborts the run. On cancellation or when the iteration
// limit is hit, the partial result is returned along with the error.
func Run(ctx context.Context, logger *zap.Logger, d Domain, graph *cfa.CFA, opts Options) (*Result, error) {
	start := graph.Entry()
	if start == nil {
		return nil, fmt.Errorf("%w: no entry", cfa.ErrInvalid)
	}

	res := &Result{Reached: make(map[*cfa.Node][]*bddcpa.State)}
	initial := d.InitialState(start)
	res.Reached[start] = []*bddcpa.State{initial}
	waitlist := []entry{{start, initial}}
	// states replaced by a merge are skipped when they come up
	dead := make(map[*bddcpa.State]bool)

	for len(waitlist) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if opts.MaxIterations > 0 && res.Iterations >= opts.MaxIterations {
			return res, fmt.Errorf("%w after %d iterations", ErrIterationLimit, res.Iterations)
		}

		cur := waitlist[0]
		waitlist = waitlist[1:]
		if dead[cur.state] {
			continue
		}
		res.Iterations++

		for _, edge := range cur.node.Leaving() {
			succs, err := d.Successors(cur.state, edge)
			if err != nil {
				if bddcpa.IsConfigurationError(err) {
					logger.Debug("path abandoned", zap.Int("line", edge.Line), zap.Error(err))
					res.Diagnostics = append(res.Diagnostics, Diagnostic{Edge: edge, Err: err})
					continue
				}
				return res, err
			}

			loc := edge.Succ
			for _, succ := range succs {
				reached := res.Reached[loc]
				for i, r := range reached {
					merged := d.Merge(succ, r)
					if merged == r {
						continue
					}
					dead[r] = true
					reached[i] = merged
					waitlist = append(waitlist, entry{loc, merged})
				}
				if covered(d, succ, reached) {
					continue
				}
				res.Reached[loc] = append(reached, succ)
				waitlist = append(waitlist, entry{loc, succ})
			}
		}
	}

	for _, n := range graph.ErrorNodes() {
		for _, s := range res.Reached[n] {
			if d.IsFeasible(s) {
				res.ErrorsReachable = append(res.ErrorsReachable, n)
				logger.Debug("error location reachable", zap.Stringer("node", n))
				break
			}
		}
	}
	res.Complete = len(res.Diagnostics) == 0
	return res, nil
}

func covered(d Domain, s *bddcpa.State, reached []*bddcpa.State) bool {
	for _, r := range reached {
		if d.IsLessOrEqual(s, r) {
			return true
		}
	}
	return false
}
