package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QueryCacheMetrics counts query cache outcomes per cache name.
type QueryCacheMetrics struct {
	hits       *prometheus.CounterVec
	misses     *prometheus.CounterVec
	failures   *prometheus.CounterVec
	superseded *prometheus.CounterVec
}

// NewQueryCacheMetrics registers the query cache counters on the provided registerer.
func NewQueryCacheMetrics(reg prometheus.Registerer) *QueryCacheMetrics {
	if reg == nil {
		return &QueryCacheMetrics{}
	}
	newVec := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amaia",
			Subsystem: "querycache",
			Name:      name,
			Help:      help,
		}, []string{"cache"})
	}
	m := &QueryCacheMetrics{
		hits:       newVec("hits_total", "Fetches served from a fresh cached value."),
		misses:     newVec("misses_total", "Fetches that started or joined a query."),
		failures:   newVec("failures_total", "Queries that returned an error."),
		superseded: newVec("superseded_total", "Query results discarded because a newer query replaced them."),
	}
	reg.MustRegister(m.hits, m.misses, m.failures, m.superseded)
	return m
}

func (m *QueryCacheMetrics) Hit(cache string) {
	if m == nil || m.hits == nil {
		return
	}
	m.hits.WithLabelValues(normalizeLabel(cache)).Inc()
}

func (m *QueryCacheMetrics) Miss(cache string) {
	if m == nil || m.misses == nil {
		return
	}
	m.misses.WithLabelValues(normalizeLabel(cache)).Inc()
}

func (m *QueryCacheMetrics) Failure(cache string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(cache)).Inc()
}

func (m *QueryCacheMetrics) Superseded(cache string) {
	if m == nil || m.superseded == nil {
		return
	}
	m.superseded.WithLabelValues(normalizeLabel(cache)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
