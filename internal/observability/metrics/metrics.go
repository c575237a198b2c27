package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkflowMetrics exposes counters/histograms for the appointment workflow.
type WorkflowMetrics struct {
	transitionsTotal *prometheus.CounterVec
	derivationsTotal *prometheus.CounterVec
	remindersTotal   *prometheus.CounterVec
	sweepLatency     prometheus.Histogram
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	m := &WorkflowMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetclinic",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Total appointment status transitions",
		}, []string{"from", "to"}),
		derivationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetclinic",
			Subsystem: "healthrecords",
			Name:      "derivations_total",
			Help:      "Total health record derivations",
		}, []string{"outcome"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetclinic",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Total appointment reminders dispatched",
		}, []string{"kind", "status"}),
		sweepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vetclinic",
			Subsystem: "reminders",
			Name:      "sweep_latency_seconds",
			Help:      "Latency of one reminder sweep",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.derivationsTotal, m.remindersTotal, m.sweepLatency)
	return m
}

func (m *WorkflowMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *WorkflowMetrics) ObserveDerivation(outcome string) {
	if m == nil {
		return
	}
	m.derivationsTotal.WithLabelValues(outcome).Inc()
}

func (m *WorkflowMetrics) ObserveReminder(kind, status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(kind, status).Inc()
}

func (m *WorkflowMetrics) ObserveSweepLatency(seconds float64) {
	if m == nil {
		return
	}
	m.sweepLatency.Observe(seconds)
}
