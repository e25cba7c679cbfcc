package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ResourceStat is one per-type row of cache occupancy.
type ResourceStat struct {
	Type     string
	Count    int
	MemoryKB uint64
}

type statsFn func() []ResourceStat

type cacheCollector struct {
	fetch statsFn

	entries  *prometheus.Desc
	memoryKB *prometheus.Desc
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.memoryKB
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.fetch() {
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Count), s.Type)
		ch <- prometheus.MustNewConstMetric(c.memoryKB, prometheus.GaugeValue, float64(s.MemoryKB), s.Type)
	}
}

// Metrics holds the resource counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	loads    *prometheus.CounterVec
	hits     *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewMetrics registers the cache gauges and load counters on reg. fetch is
// called on every scrape, so it must be safe to call from the scraping goroutine.
func NewMetrics(reg prometheus.Registerer, fetch func() []ResourceStat) (*Metrics, error) {
	collector := &cacheCollector{
		fetch: fetch,
		entries: prometheus.NewDesc(
			"anima_resource_cache_entries",
			"Number of cached resources per type",
			[]string{"type"}, nil,
		),
		memoryKB: prometheus.NewDesc(
			"anima_resource_cache_memory_kb",
			"Self-reported memory of cached resources per type, in KB",
			[]string{"type"}, nil,
		),
	}
	m := &Metrics{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_resource_loads_total",
			Help: "Resources imported from disk",
		}, []string{"type"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_resource_cache_hits_total",
			Help: "Load requests served from the cache",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_resource_load_failures_total",
			Help: "Load requests that failed to import",
		}, []string{"type"}),
	}
	for _, c := range []prometheus.Collector{collector, m.loads, m.hits, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Loaded(resourceType string) {
	if m != nil {
		m.loads.WithLabelValues(resourceType).Inc()
	}
}

func (m *Metrics) Hit(resourceType string) {
	if m != nil {
		m.hits.WithLabelValues(resourceType).Inc()
	}
}

func (m *Metrics) Failed(resourceType string) {
	if m != nil {
		m.failures.WithLabelValues(resourceType).Inc()
	}
}
