package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for booking chat flows.
type BookingMetrics struct {
	repliesTotal    *prometheus.CounterVec
	panelsTotal     *prometheus.CounterVec
	webhookTotal    *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
	refusedTotal    *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	identifierClash prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pawcare",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Assistant replies by classified directive kind",
		}, []string{"directive"}),
		panelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pawcare",
			Subsystem: "chat",
			Name:      "panels_presented_total",
			Help:      "Interactive panels presented after a reply",
		}, []string{"panel"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pawcare",
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Workflow webhook calls by outcome",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pawcare",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of workflow webhook calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		refusedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pawcare",
			Subsystem: "chat",
			Name:      "refused_submissions_total",
			Help:      "Submissions refused without a network call",
		}, []string{"reason"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pawcare",
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Conversations currently held by the registry",
		}),
		identifierClash: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pawcare",
			Subsystem: "chat",
			Name:      "identifier_conflicts_total",
			Help:      "Replies carrying a session or conversation id that differs from the known one",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.repliesTotal, m.panelsTotal, m.webhookTotal, m.webhookLatency,
		m.refusedTotal, m.activeSessions, m.identifierClash)
	return m
}

func (m *BookingMetrics) ObserveReply(directive string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(directive).Inc()
}

func (m *BookingMetrics) ObservePanel(panel string) {
	if m == nil {
		return
	}
	m.panelsTotal.WithLabelValues(panel).Inc()
}

func (m *BookingMetrics) ObserveWebhook(status string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(status).Inc()
	m.webhookLatency.WithLabelValues(status).Observe(seconds)
}

func (m *BookingMetrics) ObserveRefused(reason string) {
	if m == nil {
		return
	}
	m.refusedTotal.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveIdentifierConflict() {
	if m == nil {
		return
	}
	m.identifierClash.Inc()
}

func (m *BookingMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
