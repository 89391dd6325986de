package stats

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	t.Parallel()
	var timer Timer
	stop := timer.Start()
	time.Sleep(time.Millisecond)
	stop()
	timer.Start()()

	assert.Equal(t, int64(2), timer.Count())
	assert.GreaterOrEqual(t, timer.Total(), time.Millisecond)
}

func TestObservePendingKeepsMaximum(t *testing.T) {
	t.Parallel()
	s := New()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.ObservePending(n)
		}(i)
	}
	wg.Wait()
	s.ObservePending(3)
	assert.Equal(t, int64(49), s.PendingMax())
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	s := New()
	s.Transfers.Add(4)
	s.Infeasible.Add(1)
	s.Merges.Add(2)
	s.Gauge("domains", "Declared domains.", func() float64 { return 3 })
	s.Join.Start()()

	snap := s.Snapshot()
	assert.Equal(t, int64(4), snap.Transfers)
	assert.Equal(t, int64(1), snap.Infeasible)
	assert.Equal(t, int64(2), snap.Merges)
	assert.Equal(t, 3.0, snap.Gauges["domains"])
	assert.Equal(t, int64(1), snap.Timers["join"].Count)
	assert.Len(t, snap.Timers, 5)
}

func TestCollector(t *testing.T) {
	t.Parallel()
	s := New()
	s.Transfers.Add(7)
	s.ObservePending(5)
	s.Gauge("bits", "Allocated bits.", func() float64 { return 12 })

	reg := prometheus.NewPedanticRegistry()
	c, err := Register(reg, s, prometheus.Labels{"file": "a.yaml"})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] = m.GetGauge().GetValue()
			}
			assert.Equal(t, "a.yaml", m.GetLabel()[0].GetValue())
		}
	}
	assert.Equal(t, 7.0, values["reach_engine_transfers_total"])
	assert.Equal(t, 5.0, values["reach_engine_pending_max"])
	assert.Equal(t, 12.0, values["reach_engine_bits"])
	assert.Contains(t, values, "reach_phase_seconds_total")

	// later increments are visible on the next scrape
	s.Transfers.Add(1)
	families, err = reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "reach_engine_transfers_total" {
			assert.Equal(t, 8.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}

	assert.True(t, reg.Unregister(c))
	_, err = Register(reg, s, prometheus.Labels{"file": "a.yaml"})
	assert.NoError(t, err)
}

func TestPrint(t *testing.T) {
	color.NoColor = true
	s := New()
	s.Abstractions.Add(2)
	s.Gauge("interned", "Interned expressions.", func() float64 { return 9 })

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, s.Snapshot()))
	out := buf.String()
	assert.Contains(t, out, "abstractions")
	assert.Contains(t, out, "interned")
	assert.Contains(t, out, "timers")
	assert.Contains(t, out, "(0 calls)")
}
