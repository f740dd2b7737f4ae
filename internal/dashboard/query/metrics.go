package query

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache activity per collection. A nil *Metrics records nothing.
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewMetrics registers the cache counters with reg, reusing collectors that already exist.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits:          counter("cache_hits_total", "Query cache hits"),
		misses:        counter("cache_misses_total", "Query cache misses"),
		invalidations: counter("cache_invalidations_total", "Query cache invalidations"),
	}
	m.hits = register(reg, m.hits)
	m.misses = register(reg, m.misses)
	m.invalidations = register(reg, m.invalidations)
	return m
}

func counter(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nebula",
		Subsystem: "dashboard",
		Name:      name,
		Help:      help,
	}, []string{"collection"})
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) hit(collection string) {
	if m != nil {
		m.hits.WithLabelValues(collection).Inc()
	}
}

func (m *Metrics) miss(collection string) {
	if m != nil {
		m.misses.WithLabelValues(collection).Inc()
	}
}

func (m *Metrics) invalidation(collection string) {
	if m != nil {
		m.invalidations.WithLabelValues(collection).Inc()
	}
}
