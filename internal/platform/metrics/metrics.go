package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RemindersSent        *prometheus.CounterVec
	EscalationsSent      prometheus.Counter
	NotifyFailures       *prometheus.CounterVec
	SchedulerPassSeconds prometheus.Histogram
	HiresProcessed       prometheus.Counter
}

// New registers the hiretrack collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RemindersSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hiretrack_reminders_sent_total",
			Help: "Total reminders sent, by kind (legal, devops)",
		}, []string{"kind"}),
		EscalationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "hiretrack_escalations_sent_total",
			Help: "Total overdue escalations sent",
		}),
		NotifyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hiretrack_notify_failures_total",
			Help: "Total notification delivery failures, by kind",
		}, []string{"kind"}),
		SchedulerPassSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hiretrack_scheduler_pass_duration_seconds",
			Help:    "Duration of one reminder scheduler pass",
			Buckets: prometheus.DefBuckets,
		}),
		HiresProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "hiretrack_scheduler_hires_processed_total",
			Help: "Total open hires inspected by the scheduler",
		}),
	}
}

func (m *Metrics) IncrementReminder(kind string) {
	m.RemindersSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementEscalation() {
	m.EscalationsSent.Inc()
}

func (m *Metrics) IncrementNotifyFailure(kind string) {
	m.NotifyFailures.WithLabelValues(kind).Inc()
}
