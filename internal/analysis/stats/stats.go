// Package stats collects the counters and phase timers of an analysis run.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Timer accumulates the wall time spent in one phase.
type Timer struct {
	total atomic.Int64
	count atomic.Int64
}

// Start starts a measurement; calling the returned function stops it.
//
//	defer s.Transfer.Start()()
func (t *Timer) Start() func() {
	start := time.Now()
	return func() {
		t.total.Add(int64(time.Since(start)))
		t.count.Add(1)
	}
}

// Total returns the accumulated time.
func (t *Timer) Total() time.Duration {
	return time.Duration(t.total.Load())
}

// Count returns the number of finished measurements.
func (t *Timer) Count() int64 {
	return t.count.Load()
}

// Statistics is safe for concurrent use.
type Statistics struct {
	Transfers    atomic.Int64
	Infeasible   atomic.Int64
	Abstractions atomic.Int64
	Assumptions  atomic.Int64
	Joins        atomic.Int64
	Merges       atomic.Int64
	StopChecks   atomic.Int64
	pendingMax   atomic.Int64

	Transfer    Timer
	Abstraction Timer
	Join        Timer
	Merge       Timer
	Stop        Timer

	mu     sync.Mutex
	gauges map[string]gauge
}

type gauge struct {
	help string
	fn   func() float64
}

// New returns zeroed statistics.
func New() *Statistics {
	return &Statistics{gauges: make(map[string]gauge)}
}

// ObservePending raises the pending-assumption high-water mark to n.
func (s *Statistics) ObservePending(n int) {
	v := int64(n)
	for {
		cur := s.pendingMax.Load()
		if v <= cur || s.pendingMax.CompareAndSwap(cur, v) {
			return
		}
	}
}

// PendingMax returns the largest number of pending assumptions seen in one
// condition block.
func (s *Statistics) PendingMax() int64 {
	return s.pendingMax.Load()
}

// Gauge registers a value sampled at report time, such as the number of
// declared domains.
func (s *Statistics) Gauge(name, help string, fn func() float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gauges[name] = gauge{help: help, fn: fn}
}

func (s *Statistics) sampleGauges() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.gauges))
	for name, g := range s.gauges {
		out[name] = g.fn()
	}
	return out
}

func (s *Statistics) gaugeNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.gauges))
	for name := range s.gauges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot is a point-in-time copy of the statistics.
type Snapshot struct {
	Transfers    int64              `json:"transfers"`
	Infeasible   int64              `json:"infeasible"`
	Abstractions int64              `json:"abstractions"`
	Assumptions  int64              `json:"assumptions"`
	PendingMax   int64              `json:"pending_max"`
	Joins        int64              `json:"joins"`
	Merges       int64              `json:"merges"`
	StopChecks   int64              `json:"stop_checks"`
	Timers       map[string]Phase   `json:"timers"`
	Gauges       map[string]float64 `json:"gauges"`
}

type Phase struct {
	Count   int64         `json:"count"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

func (s *Statistics) timers() map[string]*Timer {
	return map[string]*Timer{
		"transfer":    &s.Transfer,
		"abstraction": &s.Abstraction,
		"join":        &s.Join,
		"merge":       &s.Merge,
		"stop":        &s.Stop,
	}
}

// Snapshot copies the current values.
func (s *Statistics) Snapshot() Snapshot {
	snap := Snapshot{
		Transfers:    s.Transfers.Load(),
		Infeasible:   s.Infeasible.Load(),
		Abstractions: s.Abstractions.Load(),
		Assumptions:  s.Assumptions.Load(),
		PendingMax:   s.PendingMax(),
		Joins:        s.Joins.Load(),
		Merges:       s.Merges.Load(),
		StopChecks:   s.StopChecks.Load(),
		Timers:       make(map[string]Phase),
		Gauges:       s.sampleGauges(),
	}
	for name, t := range s.timers() {
		snap.Timers[name] = Phase{Count: t.Count(), Elapsed: t.Total()}
	}
	return snap
}
