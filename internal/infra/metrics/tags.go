package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(tagResolutions, tagActivations, paymentNormalizations, tagsCreated, tagInventory) }

var (
	tagResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tag_resolutions_total",
			Help: "Redirect decisions by kind.",
		},
		[]string{"decision"}, // permanent | activation | not_found
	)

	tagActivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tag_activations_total",
			Help: "Activation attempts by outcome.",
		},
		[]string{"outcome"}, // success | invalid | blocked | already_active | duplicate | not_available | internal
	)

	paymentNormalizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_normalizations_total",
			Help: "Payment handle normalizations per provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	tagsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tags_created_total",
			Help: "Tags created, by source (redirect, activate, activate_page, import, generate).",
		},
		[]string{"source"},
	)

	tagInventory = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tags_by_status",
			Help: "Current number of tags per status, refreshed periodically.",
		},
		[]string{"status"},
	)
)

func IncResolution(decision string) {
	tagResolutions.WithLabelValues(norm(decision)).Inc()
}

func IncActivation(outcome string) {
	tagActivations.WithLabelValues(norm(outcome)).Inc()
}

func IncNormalization(provider string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "rejected"
	}
	paymentNormalizations.WithLabelValues(norm(provider), outcome).Inc()
}

func IncTagCreated(source string) {
	tagsCreated.WithLabelValues(norm(source)).Inc()
}

// SetTagInventory replaces the per-status gauges with a fresh snapshot.
func SetTagInventory(byStatus map[string]int) {
	tagInventory.Reset()
	for status, n := range byStatus {
		tagInventory.WithLabelValues(norm(status)).Set(float64(n))
	}
}
