package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ibtikar", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ibtikar", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ibtikar", Name: "auth_events_total", Help: "Auth operations by kind and outcome."},
		[]string{"kind", "outcome"},
	)
	LiveFeeds = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "ibtikar", Name: "message_feeds_active", Help: "Currently open live message feeds."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthEvents)
	reg.MustRegister(LiveFeeds)
}
