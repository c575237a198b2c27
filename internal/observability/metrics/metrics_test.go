package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestWorkflowMetricsObserve(t *testing.T) {
	m := NewWorkflowMetrics(prometheus.NewRegistry())
	m.ObserveTransition("pending", "accepted")
	m.ObserveDerivation("created")
	m.ObserveReminder("24h", "sent")
	m.ObserveSweepLatency(0.02)
}

func TestWorkflowMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkflowMetrics(reg)
	m.ObserveTransition("accepted", "completed")
}

func TestWorkflowMetricsNilSafe(t *testing.T) {
	var m *WorkflowMetrics
	m.ObserveTransition("pending", "accepted")
	m.ObserveDerivation("created")
	m.ObserveReminder("1h", "failed")
	m.ObserveSweepLatency(0.1)
}
