package metrics

import "github.com/prometheus/client_golang/prometheus"

// NicknameMetrics tracks the display-name cache. It implements
// nickname.Observer.
type NicknameMetrics struct {
	Lookups   *prometheus.CounterVec
	Evictions *prometheus.CounterVec
}

func NewNicknameMetrics(reg prometheus.Registerer) *NicknameMetrics {
	m := &NicknameMetrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nickname_cache",
			Name:      "lookups_total",
			Help:      "Total number of nickname cache lookups, by result.",
		}, []string{"result"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nickname_cache",
			Name:      "evictions_total",
			Help:      "Total number of evicted nickname cache entries, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Lookups, m.Evictions)
	return m
}

func (m *NicknameMetrics) ObserveLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.Lookups.WithLabelValues(result).Inc()
}

func (m *NicknameMetrics) ObserveEviction(reason string, n int) {
	m.Evictions.WithLabelValues(reason).Add(float64(n))
}
