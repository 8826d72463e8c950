package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)
	m.ObserveCreated("self-service", "ok")
	m.ObserveCreated("self-service", "ok")
	m.ObserveTransition("pending", "confirmed", "ok")
	m.ObserveConflict()
	m.ObserveAvailability(0.02)
	m.ObserveChatAccess(true)
	m.ObserveOutboxDelivery("booking.created.v1", "ok")

	if got := testutil.ToFloat64(m.createdTotal.WithLabelValues("self-service", "ok")); got != 2 {
		t.Fatalf("expected 2 creations, got %v", got)
	}
	if got := testutil.ToFloat64(m.conflictTotal); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
	if got := testutil.ToFloat64(m.chatAccessTotal.WithLabelValues("true")); got != 1 {
		t.Fatalf("expected 1 permitted chat check, got %v", got)
	}
}

func TestSchedulingMetricsNilSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveCreated("self-service", "ok")
	m.ObserveTransition("pending", "cancelled", "ok")
	m.ObserveConflict()
	m.ObserveAvailability(0.1)
	m.ObserveChatAccess(false)
	m.ObserveOutboxDelivery("booking.deleted.v1", "error")
}
