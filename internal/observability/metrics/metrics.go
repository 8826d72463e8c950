package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for booking flows.
type SchedulingMetrics struct {
	createdTotal    *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	conflictTotal   prometheus.Counter
	availability    prometheus.Histogram
	chatAccessTotal *prometheus.CounterVec
	outboxDelivered *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		createdTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Booking creation attempts by source and result",
		}, []string{"source", "result"}),
		transitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "transition_total",
			Help:      "Booking status transitions",
		}, []string{"from", "to", "result"}),
		conflictTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "conflict_total",
			Help:      "Reservations rejected because the interval was taken",
		}),
		availability: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scheduler",
			Subsystem: "availability",
			Name:      "query_seconds",
			Help:      "Latency of availability queries",
			Buckets:   prometheus.DefBuckets,
		}),
		chatAccessTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "chat",
			Name:      "access_total",
			Help:      "Chat window checks",
		}, []string{"permitted"}),
		outboxDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "outbox",
			Name:      "delivered_total",
			Help:      "Outbox events handed to delivery handlers",
		}, []string{"event_type", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.createdTotal, m.transitionTotal, m.conflictTotal, m.availability, m.chatAccessTotal, m.outboxDelivered)
	return m
}

func (m *SchedulingMetrics) ObserveCreated(source, result string) {
	if m == nil {
		return
	}
	m.createdTotal.WithLabelValues(source, result).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(from, to, result).Inc()
}

func (m *SchedulingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictTotal.Inc()
}

func (m *SchedulingMetrics) ObserveAvailability(seconds float64) {
	if m == nil {
		return
	}
	m.availability.Observe(seconds)
}

func (m *SchedulingMetrics) ObserveChatAccess(permitted bool) {
	if m == nil {
		return
	}
	label := "false"
	if permitted {
		label = "true"
	}
	m.chatAccessTotal.WithLabelValues(label).Inc()
}

func (m *SchedulingMetrics) ObserveOutboxDelivery(eventType, result string) {
	if m == nil {
		return
	}
	m.outboxDelivered.WithLabelValues(eventType, result).Inc()
}
