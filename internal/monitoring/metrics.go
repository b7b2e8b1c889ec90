package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Accrual outcomes used as the "outcome" label.
const (
	OutcomeAccrued     = "accrued"
	OutcomeNoSlab      = "no_slab"
	OutcomeNotReferred = "not_referred"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AccrualsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_accruals_total",
			Help: "Investment events processed by the accrual engine",
		},
		[]string{"outcome"},
	)

	// Float is fine here; the ledger itself never leaves decimal.
	CommissionAccruedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_commission_accrued_total",
			Help: "Sum of marginal commission accrued",
		},
	)

	ReferralsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referrals_created_total",
			Help: "Referral records created",
		},
	)

	ReferralsPaidTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referrals_marked_paid_total",
			Help: "Referrals marked as paid",
		},
	)
)
