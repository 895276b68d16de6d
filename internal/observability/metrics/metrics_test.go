package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCallMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCallMetrics(reg)
	m.ObserveAttempt("conversational", "real_call_initiated")
	m.ObserveFallback()
	m.ObserveProviderLatency("relay", 0.5)
	m.ObserveReminder("placed")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestCallMetricsNilSafe(t *testing.T) {
	var m *CallMetrics
	m.ObserveAttempt("relay", "failed")
	m.ObserveFallback()
	m.ObserveProviderLatency("tts", 0.1)
	m.ObserveReminder("failed")
}
