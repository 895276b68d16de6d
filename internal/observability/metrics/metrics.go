package metrics

import "github.com/prometheus/client_golang/prometheus"

// CallMetrics exposes counters/histograms for outbound call flows.
type CallMetrics struct {
	attemptsTotal   *prometheus.CounterVec
	fallbackTotal   prometheus.Counter
	providerLatency *prometheus.HistogramVec
	remindersTotal  *prometheus.CounterVec
}

func NewCallMetrics(reg prometheus.Registerer) *CallMetrics {
	m := &CallMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callcenter",
			Subsystem: "dialer",
			Name:      "attempts_total",
			Help:      "Total outbound call attempts",
		}, []string{"strategy", "status"}),
		fallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "callcenter",
			Subsystem: "dialer",
			Name:      "fallback_total",
			Help:      "Total plan-limitation fallbacks from conversational to relay",
		}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "callcenter",
			Subsystem: "dialer",
			Name:      "provider_latency_seconds",
			Help:      "Latency of provider API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callcenter",
			Subsystem: "reminder",
			Name:      "processed_total",
			Help:      "Total reminder batch placements",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attemptsTotal, m.fallbackTotal, m.providerLatency, m.remindersTotal)
	return m
}

func (m *CallMetrics) ObserveAttempt(strategy, status string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(strategy, status).Inc()
}

func (m *CallMetrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.fallbackTotal.Inc()
}

func (m *CallMetrics) ObserveProviderLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *CallMetrics) ObserveReminder(outcome string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(outcome).Inc()
}
