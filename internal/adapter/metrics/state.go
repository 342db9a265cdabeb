package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegisterStateGauges exposes the size of in-process state, read at scrape
// time.
func RegisterStateGauges(reg prometheus.Registerer, trackedActors, cachedNames func() int) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "tracked_actors",
			Help:      "Number of actors with attempt or ban state.",
		}, func() float64 { return float64(trackedActors()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "nickname",
			Name:      "cache_entries",
			Help:      "Number of cached display names.",
		}, func() float64 { return float64(cachedNames()) }),
	)
}
