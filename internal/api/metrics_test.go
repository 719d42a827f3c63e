package api

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m.RequestsTotal == nil {
		t.Error("RequestsTotal not initialized")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration not initialized")
	}
	if m.RefreshesTotal == nil {
		t.Error("RefreshesTotal not initialized")
	}
}

func TestMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestsTotal.WithLabelValues("GET", "200").Inc()
	count := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "200"))
	if count != 1 {
		t.Errorf("RequestsTotal = %v, want 1", count)
	}

	m.RefreshesTotal.WithLabelValues(refreshOutcomeSuccess).Inc()
	refreshes := testutil.ToFloat64(m.RefreshesTotal.WithLabelValues(refreshOutcomeSuccess))
	if refreshes != 1 {
		t.Errorf("RefreshesTotal = %v, want 1", refreshes)
	}

	m.RequestDuration.WithLabelValues("GET").Observe(0.05)
	gathered, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range gathered {
		if strings.Contains(mf.GetName(), "request_duration") {
			found = true
			break
		}
	}
	if !found {
		t.Error("request_duration histogram not found in gathered metrics")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.observeRequest("GET", "200", 0.01)
	m.countRefresh(refreshOutcomeFailure)
}
