package metrics

import "github.com/prometheus/client_golang/prometheus"

// BroadcastMetrics records realtime fan-out outcomes.
type BroadcastMetrics struct {
	published *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	gauge     prometheus.Gauge
}

// NewBroadcastMetrics registers the broadcaster metrics on the provided registerer.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	if reg == nil {
		return &BroadcastMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_events_published",
		Help: "Events delivered to subscriber buffers.",
	}, []string{"event"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_events_dropped",
		Help: "Events evicted from full subscriber buffers.",
	}, []string{"event"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_subscribers",
		Help: "Currently connected realtime subscribers.",
	})
	reg.MustRegister(published, dropped, gauge)
	return &BroadcastMetrics{
		published: published,
		dropped:   dropped,
		gauge:     gauge,
	}
}

// IncPublished increments the delivered counter for the named event type.
func (m *BroadcastMetrics) IncPublished(event string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncDropped increments the dropped counter for the named event type.
func (m *BroadcastMetrics) IncDropped(event string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(event)).Inc()
}

// SubscriberConnected bumps the subscriber gauge.
func (m *BroadcastMetrics) SubscriberConnected() {
	if m == nil || m.gauge == nil {
		return
	}
	m.gauge.Inc()
}

// SubscriberDisconnected lowers the subscriber gauge.
func (m *BroadcastMetrics) SubscriberDisconnected() {
	if m == nil || m.gauge == nil {
		return
	}
	m.gauge.Dec()
}
