package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)

	PointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_awarded_total",
			Help: "Points credited to wallets, by ledger action",
		},
		[]string{"action"},
	)
	AwardsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_awards_rejected_total",
			Help: "Award requests refused by the guard, by reason",
		},
		[]string{"reason"},
	)
	CategoriesSwept = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "category_expiry_total",
			Help: "Expired categories handled by the sweep, by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
	prometheus.MustRegister(PointsAwarded)
	prometheus.MustRegister(AwardsRejected)
	prometheus.MustRegister(CategoriesSwept)
}
