package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

var Module = fx.Module("observability.metrics",
	fx.Provide(func() *Metrics {
		return New(prometheus.DefaultRegisterer)
	}),
)

// Metrics holds payment-flow counters.
type Metrics struct {
	paymentTransitions *prometheus.CounterVec
	webhookEvents      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		paymentTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enroll_payment_transitions_total",
			Help: "Payment status transitions by channel and resulting status.",
		}, []string{"channel", "status"}),
		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enroll_webhook_events_total",
			Help: "Webhook deliveries by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
}

func (m *Metrics) RecordPaymentTransition(channel string, status string) {
	if m == nil {
		return
	}
	m.paymentTransitions.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) RecordWebhookEvent(provider string, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(provider, outcome).Inc()
}
