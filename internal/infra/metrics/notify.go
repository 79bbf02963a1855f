package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal, auditStreamTotal) }

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Activation notifications by channel and outcome.",
		},
		[]string{"channel", "outcome"}, // channel=smtp|telegram, outcome=sent|failed
	)

	auditStreamTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_stream_messages_total",
			Help: "Audit entries forwarded to the external stream.",
		},
		[]string{"outcome"},
	)
)

func IncNotification(channel string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	notificationsTotal.WithLabelValues(norm(channel), outcome).Inc()
}

func IncAuditStream(err error) {
	outcome := "published"
	if err != nil {
		outcome = "failed"
	}
	auditStreamTotal.WithLabelValues(outcome).Inc()
}
