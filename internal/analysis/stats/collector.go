package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reach"

type counter struct {
	desc *prometheus.Desc
	load func() int64
}

// Collector exposes a Statistics value to Prometheus. Values are read at
// scrape time, so one collector follows a run while it progresses.
type Collector struct {
	stats    *Statistics
	labels   prometheus.Labels
	counters []counter
	seconds  *prometheus.Desc
	calls    *prometheus.Desc
}

// NewCollector returns a collector for s. constLabels distinguish the runs
// registered in the same registry, typically by file name.
func NewCollector(s *Statistics, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "engine", name), help, nil, constLabels)
	}
	c := &Collector{
		stats:  s,
		labels: constLabels,
		counters: []counter{
			{desc("transfers_total", "Edges processed by the transfer relation."), s.Transfers.Load},
			{desc("infeasible_total", "Edges whose successor diagram was false."), s.Infeasible.Load},
			{desc("abstractions_total", "Condition blocks compiled into the diagram."), s.Abstractions.Load},
			{desc("assumptions_total", "Assumptions pushed into condition blocks."), s.Assumptions.Load},
			{desc("joins_total", "Join operations."), s.Joins.Load},
			{desc("merges_total", "Merge operations."), s.Merges.Load},
			{desc("stop_checks_total", "Partial order checks."), s.StopChecks.Load},
		},
		seconds: prometheus.NewDesc(prometheus.BuildFQName(namespace, "phase", "seconds_total"),
			"Time spent per engine phase.", []string{"phase"}, constLabels),
		calls: prometheus.NewDesc(prometheus.BuildFQName(namespace, "phase", "calls_total"),
			"Measurements per engine phase.", []string{"phase"}, constLabels),
	}
	return c
}

func (c *Collector) gaugeDesc(name string) *prometheus.Desc {
	c.stats.mu.Lock()
	help := c.stats.gauges[name].help
	c.stats.mu.Unlock()
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "engine", name), help, nil, c.labels)
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, ctr := range c.counters {
		ch <- ctr.desc
	}
	ch <- c.seconds
	ch <- c.calls
	ch <- prometheus.NewDesc(prometheus.BuildFQName(namespace, "engine", "pending_max"),
		"Largest condition block observed.", nil, c.labels)
	for _, name := range c.stats.gaugeNames() {
		ch <- c.gaugeDesc(name)
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, ctr := range c.counters {
		ch <- prometheus.MustNewConstMetric(ctr.desc, prometheus.CounterValue, float64(ctr.load()))
	}
	for name, t := range c.stats.timers() {
		ch <- prometheus.MustNewConstMetric(c.seconds, prometheus.CounterValue, t.Total().Seconds(), name)
		ch <- prometheus.MustNewConstMetric(c.calls, prometheus.CounterValue, float64(t.Count()), name)
	}
	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(prometheus.BuildFQName(namespace, "engine", "pending_max"),
			"Largest condition block observed.", nil, c.labels),
		prometheus.GaugeValue, float64(c.stats.PendingMax()))
	values := c.stats.sampleGauges()
	for _, name := range c.stats.gaugeNames() {
		ch <- prometheus.MustNewConstMetric(c.gaugeDesc(name), prometheus.GaugeValue, values[name])
	}
}

// Register registers a collector for s in reg and returns it, so that it
// can be unregistered once the run it follows is superseded.
func Register(reg prometheus.Registerer, s *Statistics, constLabels prometheus.Labels) (*Collector, error) {
	c := NewCollector(s, constLabels)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
