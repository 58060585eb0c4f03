package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters/histograms for the conversation flow.
type BotMetrics struct {
	inboundTotal   *prometheus.CounterVec
	repliesTotal   *prometheus.CounterVec
	sessionsTotal  *prometheus.CounterVec
	searchLatency  *prometheus.HistogramVec
	webhookLatency *prometheus.HistogramVec
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotbot",
			Subsystem: "webhook",
			Name:      "inbound_events_total",
			Help:      "Total inbound webhook events",
		}, []string{"event_type", "status"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotbot",
			Subsystem: "messaging",
			Name:      "replies_total",
			Help:      "Total replies sent, by message kind",
		}, []string{"kind", "status"}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spotbot",
			Subsystem: "conversation",
			Name:      "sessions_total",
			Help:      "Conversation lifecycle events",
		}, []string{"outcome"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spotbot",
			Subsystem: "places",
			Name:      "search_latency_seconds",
			Help:      "Latency of nearby place searches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"search_type"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spotbot",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of webhook event processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.repliesTotal, m.sessionsTotal, m.searchLatency, m.webhookLatency)
	return m
}

func (m *BotMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *BotMetrics) ObserveReply(kind, status string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveSession records a lifecycle event: "started", "completed", "reset".
func (m *BotMetrics) ObserveSession(outcome string) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BotMetrics) ObserveSearchLatency(searchType string, seconds float64) {
	if m == nil {
		return
	}
	m.searchLatency.WithLabelValues(searchType).Observe(seconds)
}

func (m *BotMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}
