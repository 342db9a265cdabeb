package metrics

import "github.com/prometheus/client_golang/prometheus"

// InteractionMetrics tracks the interaction pipeline. It implements
// app.InteractionObserver.
type InteractionMetrics struct {
	Outcomes    *prometheus.CounterVec
	Magnitude   prometheus.Histogram
	Criticals   prometheus.Counter
	PostHocBans prometheus.Counter
}

func NewInteractionMetrics(reg prometheus.Registerer) *InteractionMetrics {
	m := &InteractionMetrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Total number of interaction attempts, by outcome.",
		}, []string{"outcome"}),
		Magnitude: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interaction_magnitude",
			Help:      "Rolled magnitude of recorded interactions.",
			Buckets:   []float64{10, 25, 50, 75, 100, 150, 200},
		}),
		Criticals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_criticals_total",
			Help:      "Total number of critical rolls.",
		}),
		PostHocBans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_post_hoc_bans_total",
			Help:      "Total number of bans imposed after a successful interaction.",
		}),
	}

	reg.MustRegister(m.Outcomes, m.Magnitude, m.Criticals, m.PostHocBans)
	return m
}

func (m *InteractionMetrics) ObserveOutcome(status string) {
	m.Outcomes.WithLabelValues(status).Inc()
}

func (m *InteractionMetrics) ObserveRoll(magnitude float64, critical bool) {
	m.Magnitude.Observe(magnitude)
	if critical {
		m.Criticals.Inc()
	}
}

func (m *InteractionMetrics) ObservePostHocBan() {
	m.PostHocBans.Inc()
}
