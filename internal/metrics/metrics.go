package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	registry *prometheus.Registry

	webhookEvents    *prometheus.CounterVec
	remindersSent    prometheus.Counter
	remindersSkipped prometheus.Counter
	intentsCreated   prometheus.Counter
}

func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubpay_webhook_events_total",
			Help: "Gateway webhook events by type and outcome.",
		}, []string{"event_type", "result"}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubpay_reminders_sent_total",
			Help: "Payment reminders delivered to members.",
		}),
		remindersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubpay_reminders_skipped_total",
			Help: "Payment reminders suppressed by the rolling rate limit.",
		}),
		intentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubpay_charge_intents_created_total",
			Help: "Charge intents created at the gateway.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.webhookEvents,
		m.remindersSent,
		m.remindersSkipped,
		m.intentsCreated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordWebhookEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(strings.TrimSpace(eventType), result).Inc()
}

func (m *Metrics) RecordReminderSent() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}

func (m *Metrics) RecordReminderSkipped() {
	if m == nil {
		return
	}
	m.remindersSkipped.Inc()
}

func (m *Metrics) RecordIntentCreated() {
	if m == nil {
		return
	}
	m.intentsCreated.Inc()
}
