// Package promhook counts stash hook events with Prometheus.
package promhook

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/stash"
)

// Hooks exposes one counter vector for events plus gauges describing the last
// persisted cache mapping. Register it with Collectors.
type Hooks struct {
	Events         *prometheus.CounterVec
	CacheEntries   *prometheus.GaugeVec
	CacheBlobBytes *prometheus.GaugeVec
}

var _ stash.Hooks = (*Hooks)(nil)

const (
	EventCorrupt      = "corrupt_entry"
	EventRejected     = "serialization_rejected"
	EventExpired      = "expired_read"
	EventReserved     = "reserved_key_rejected"
	EventPersisted    = "cache_persisted"
	EventLoaded       = "cache_loaded"
	EventCacheCreated = "cache_created"
)

// New builds the collectors under namespace (e.g. "myapp").
func New(namespace string) *Hooks {
	return &Hooks{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stash",
			Name:      "events_total",
			Help:      "Total number of stash events by kind",
		}, []string{"event"}),
		CacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stash",
			Name:      "cache_entries",
			Help:      "Entries in the last persisted or loaded cache mapping",
		}, []string{"key"}),
		CacheBlobBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stash",
			Name:      "cache_blob_bytes",
			Help:      "Encoded size of the last persisted cache mapping",
		}, []string{"key"}),
	}
}

// Collectors returns everything to register.
func (h *Hooks) Collectors() []prometheus.Collector {
	return []prometheus.Collector{h.Events, h.CacheEntries, h.CacheBlobBytes}
}

// MustRegister registers the collectors on reg.
func (h *Hooks) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(h.Collectors()...)
}

func (h *Hooks) CorruptEntry(string, error) { h.Events.WithLabelValues(EventCorrupt).Inc() }
func (h *Hooks) SerializationRejected(string, error) {
	h.Events.WithLabelValues(EventRejected).Inc()
}
func (h *Hooks) ExpiredRead(string)         { h.Events.WithLabelValues(EventExpired).Inc() }
func (h *Hooks) ReservedKeyRejected(string) { h.Events.WithLabelValues(EventReserved).Inc() }

func (h *Hooks) CachePersisted(key string, entries, bytes int) {
	h.Events.WithLabelValues(EventPersisted).Inc()
	h.CacheEntries.WithLabelValues(key).Set(float64(entries))
	h.CacheBlobBytes.WithLabelValues(key).Set(float64(bytes))
}

func (h *Hooks) CacheLoaded(key string, entries int, created bool) {
	h.Events.WithLabelValues(EventLoaded).Inc()
	if created {
		h.Events.WithLabelValues(EventCacheCreated).Inc()
	}
	h.CacheEntries.WithLabelValues(key).Set(float64(entries))
}
