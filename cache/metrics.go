package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the response cache.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	expired   prometheus.Counter
	evicted   prometheus.Counter
	refreshed prometheus.Counter
	entries   prometheus.Gauge
}

// NewMetrics creates the cache collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqbot",
			Subsystem: "response_cache",
			Name:      "hits_total",
			Help:      "Lookups answered from the cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqbot",
			Subsystem: "response_cache",
			Name:      "misses_total",
			Help:      "Lookups that found no valid entry.",
		}),
		sets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqbot",
			Subsystem: "response_cache",
			Name:      "sets_total",
			Help:      "Responses written to the cache.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqbot",
			Subsystem: "response_cache",
			Name:      "expired_total",
			Help:      "Entries removed because their TTL elapsed.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqbot",
			Subsystem: "response_cache",
			Name:      "evicted_total",
			Help:      "Entries removed to respect the entry limit.",
		}),
		refreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arqbot",
			Subsystem: "response_cache",
			Name:      "refreshed_total",
			Help:      "Entries whose expiration was pushed back.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arqbot",
			Subsystem: "response_cache",
			Name:      "entries",
			Help:      "Entries currently held in the cache.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.sets, m.expired, m.evicted, m.refreshed, m.entries)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) set() {
	if m != nil {
		m.sets.Inc()
	}
}

func (m *Metrics) expire(n int) {
	if m != nil && n > 0 {
		m.expired.Add(float64(n))
	}
}

func (m *Metrics) evict() {
	if m != nil {
		m.evicted.Inc()
	}
}

func (m *Metrics) refresh() {
	if m != nil {
		m.refreshed.Inc()
	}
}

func (m *Metrics) size(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}
