package reach

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/reach/internal/analysis/bddcpa"
	"github.com/gnolang/reach/internal/analysis/cfa"
	"github.com/gnolang/reach/internal/analysis/domain"
)

func load(t *testing.T, src string) *cfa.CFA {
	t.Helper()
	graph, err := cfa.Load(strings.NewReader(src))
	require.NoError(t, err)
	return graph
}

func engine(t *testing.T) *bddcpa.Engine {
	t.Helper()
	e, err := bddcpa.NewEngine(bddcpa.DefaultConfig(), domain.NewIntervalPolicy(0, 8))
	require.NoError(t, err)
	return e
}

const safe = `
functions:
  - name: main
    entry: 1
    exit: 5
    errors: [4]
    edges:
      - {from: 1, to: 2, line: 1, op: declare, var: x, type: int, init: "1"}
      - {from: 2, to: 4, line: 2, op: assume, expr: "x != 1"}
      - {from: 2, to: 3, line: 2, op: assume, expr: "x != 1", truth: false}
      - {from: 3, to: 5, line: 3, op: blank}
`

const unsafe = `
functions:
  - name: main
    entry: 1
    exit: 5
    errors: [4]
    edges:
      - {from: 1, to: 2, line: 1, op: declare, var: x, type: int}
      - {from: 2, to: 6, line: 2, op: call, callee: input, result: x}
      - {from: 6, to: 4, line: 3, op: assume, expr: "x != 1"}
      - {from: 6, to: 3, line: 3, op: assume, expr: "x != 1", truth: false}
      - {from: 3, to: 5, line: 4, op: blank}
`

const loop = `
functions:
  - name: main
    entry: 1
    exit: 6
    errors: [5]
    edges:
      - {from: 1, to: 2, line: 1, op: declare, var: i, type: int, init: "0"}
      - {from: 2, to: 3, line: 2, op: assume, expr: "i < 5"}
      - {from: 3, to: 2, line: 3, op: call, callee: next, result: i}
      - {from: 2, to: 4, line: 2, op: assume, expr: "i < 5", truth: false}
      - {from: 4, to: 5, line: 4, op: assume, expr: "i > 7"}
      - {from: 4, to: 6, line: 4, op: assume, expr: "i > 7", truth: false}
`

func TestRunSafeProgram(t *testing.T) {
	t.Parallel()
	graph := load(t, safe)

	res, err := Run(context.Background(), zap.NewNop(), engine(t), graph, Options{})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Empty(t, res.ErrorsReachable)
	// the error location holds a state whose block only turns out false
	// once it is compiled
	assert.Len(t, res.Reached[graph.ErrorNodes()[0]], 1)
}

func TestRunUnsafeProgram(t *testing.T) {
	t.Parallel()
	graph := load(t, unsafe)

	res, err := Run(context.Background(), zap.NewNop(), engine(t), graph, Options{})
	require.NoError(t, err)
	require.Len(t, res.ErrorsReachable, 1)
	assert.Equal(t, 4, res.ErrorsReachable[0].ID)
}

func TestRunLoopReachesFixpoint(t *testing.T) {
	t.Parallel()
	graph := load(t, loop)
	e := engine(t)

	res, err := Run(context.Background(), zap.NewNop(), e, graph, Options{MaxIterations: 100})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Empty(t, res.ErrorsReachable)
	assert.Less(t, res.Iterations, 20)

	var head *cfa.Node
	for _, n := range graph.Nodes() {
		if n.ID == 2 {
			head = n
		}
	}
	require.NotNil(t, head)
	require.Len(t, res.Reached[head], 1, "loop head states are merged")
	vs, err := e.Values(res.Reached[head][0], "main.i")
	require.NoError(t, err)
	assert.Len(t, vs, 8)
}

// shadowed calls f twice; f writes the global g before declaring a local g,
// so g is 1 after either call.
const shadowed = `
functions:
  - name: main
    entry: 1
    exit: 7
    errors: [6]
    edges:
      - {from: 1, to: 2, line: 1, op: declare, var: g, type: int, global: true, init: "0"}
      - {from: 2, to: 3, line: 2, op: call, callee: f}
      - {from: 3, to: 4, line: 3, op: assign, lhs: g, rhs: "2"}
      - {from: 4, to: 5, line: 4, op: call, callee: f}
      - {from: 5, to: 6, line: 5, op: assume, expr: "g != 1"}
      - {from: 5, to: 7, line: 5, op: assume, expr: "g != 1", truth: false}
  - name: f
    entry: 10
    exit: 12
    edges:
      - {from: 10, to: 11, line: 10, op: assign, lhs: g, rhs: "1"}
      - {from: 11, to: 12, line: 11, op: declare, var: g, type: int}
`

func TestRunLocalDeclaredAfterUse(t *testing.T) {
	t.Parallel()
	graph := load(t, shadowed)

	res, err := Run(context.Background(), zap.NewNop(), engine(t), graph, Options{MaxIterations: 100})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Empty(t, res.ErrorsReachable)
}

// selfLoop pends a growing block on a location only reached through assume
// edges, including one from itself.
const selfLoop = `
functions:
  - name: main
    entry: 1
    exit: 5
    errors: [6]
    edges:
      - {from: 1, to: 2, line: 1, op: declare, var: x, type: int, global: true}
      - {from: 2, to: 3, line: 2, op: blank}
      - {from: 3, to: 4, line: 3, op: assume, expr: "x < 5"}
      - {from: 4, to: 4, line: 4, op: assume, expr: "x != 2"}
      - {from: 4, to: 6, line: 4, op: assume, expr: "x != 2", truth: false}
      - {from: 3, to: 5, line: 3, op: assume, expr: "x < 5", truth: false}
`

func TestRunMergeModesTerminate(t *testing.T) {
	t.Parallel()
	for _, mode := range []bddcpa.MergeMode{bddcpa.MergeEqual, bddcpa.MergeAlways} {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()
			cfg := bddcpa.DefaultConfig()
			cfg.Merge = mode
			e, err := bddcpa.NewEngine(cfg, domain.NewIntervalPolicy(0, 8))
			require.NoError(t, err)

			graph := load(t, selfLoop)
			res, err := Run(context.Background(), zap.NewNop(), e, graph, Options{MaxIterations: 1000})
			require.NoError(t, err)
			assert.True(t, res.Complete)
			assert.Less(t, res.Iterations, 20)
			require.Len(t, res.ErrorsReachable, 1)
			assert.Equal(t, 6, res.ErrorsReachable[0].ID)
		})
	}
}

func TestRunMergeAlwaysLoop(t *testing.T) {
	t.Parallel()
	cfg := bddcpa.DefaultConfig()
	cfg.Merge = bddcpa.MergeAlways
	e, err := bddcpa.NewEngine(cfg, domain.NewIntervalPolicy(0, 8))
	require.NoError(t, err)

	res, err := Run(context.Background(), zap.NewNop(), e, load(t, loop), Options{MaxIterations: 100})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Empty(t, res.ErrorsReachable)
	assert.Less(t, res.Iterations, 20)
}

func TestRunRecordsDiagnostics(t *testing.T) {
	t.Parallel()
	graph := load(t, `
functions:
  - name: main
    entry: 1
    exit: 3
    edges:
      - {from: 1, to: 2, line: 1, op: declare, var: s, type: string}
      - {from: 1, to: 3, line: 2, op: blank}
`)
	res, err := Run(context.Background(), zap.NewNop(), engine(t), graph, Options{})
	require.NoError(t, err)
	assert.False(t, res.Complete)
	require.Len(t, res.Diagnostics, 1)
	assert.ErrorIs(t, res.Diagnostics[0].Err, bddcpa.ErrUnsupportedType)
	assert.Contains(t, res.Diagnostics[0].String(), "line 1")
	assert.Len(t, res.Reached[graph.Function("main").Exit], 1)
}

func TestRunAbortsOnInvariantViolation(t *testing.T) {
	t.Parallel()
	graph := load(t, `
functions:
  - name: main
    entry: 1
    exit: 2
    edges:
      - {from: 1, to: 2, line: 1, op: assign, lhs: ghost, rhs: "1"}
`)
	_, err := Run(context.Background(), zap.NewNop(), engine(t), graph, Options{})
	assert.ErrorIs(t, err, domain.ErrUndeclaredVariable)
}

func TestRunIterationLimit(t *testing.T) {
	t.Parallel()
	res, err := Run(context.Background(), zap.NewNop(), engine(t), load(t, loop), Options{MaxIterations: 2})
	assert.ErrorIs(t, err, ErrIterationLimit)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Iterations)
	assert.False(t, res.Complete)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, zap.NewNop(), engine(t), load(t, loop), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

type mockDomain struct {
	mock.Mock
}

func (m *mockDomain) InitialState(entry *cfa.Node) *bddcpa.State {
	return m.Called(entry).Get(0).(*bddcpa.State)
}

func (m *mockDomain) Successors(s *bddcpa.State, edge *cfa.Edge) ([]*bddcpa.State, error) {
	args := m.Called(s, edge)
	return args.Get(0).([]*bddcpa.State), args.Error(1)
}

func (m *mockDomain) Merge(s1, s2 *bddcpa.State) *bddcpa.State {
	return m.Called(s1, s2).Get(0).(*bddcpa.State)
}

func (m *mockDomain) IsLessOrEqual(s1, s2 *bddcpa.State) bool {
	return m.Called(s1, s2).Bool(0)
}

func (m *mockDomain) IsFeasible(s *bddcpa.State) bool {
	return m.Called(s).Bool(0)
}

func same[T any](want *T) any {
	return mock.MatchedBy(func(got *T) bool { return got == want })
}

func TestRunReplacesMergedStates(t *testing.T) {
	t.Parallel()
	b := cfa.NewBuilder("main")
	m := b.Function("main")
	e1 := b.Blank(m.Entry, m.Exit, 1)
	e2 := b.Blank(m.Entry, m.Exit, 2)
	graph, err := b.Build()
	require.NoError(t, err)

	initial, s1, s2, s12 := new(bddcpa.State), new(bddcpa.State), new(bddcpa.State), new(bddcpa.State)

	d := new(mockDomain)
	d.On("InitialState", m.Entry).Return(initial)
	d.On("Successors", same(initial), same(e1)).Return([]*bddcpa.State{s1}, nil)
	d.On("Successors", same(initial), same(e2)).Return([]*bddcpa.State{s2}, nil)
	d.On("Successors", same(s12), mock.Anything).Return([]*bddcpa.State{}, nil).Maybe()
	d.On("Merge", same(s2), same(s1)).Return(s12)
	d.On("IsLessOrEqual", same(s2), same(s12)).Return(true)

	res, err := Run(context.Background(), zap.NewNop(), d, graph, Options{})
	require.NoError(t, err)

	assert.Equal(t, []*bddcpa.State{s12}, res.Reached[m.Exit])
	assert.Equal(t, 2, res.Iterations, "the replaced state is never expanded")
	assert.Equal(t, 2, res.States())
	d.AssertExpectations(t)
}
