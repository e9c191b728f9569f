// Package metrics registers the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimsTotal counts claim attempts by final outcome: won, seat_taken,
	// timeout, broker_error, store_error or invalid.
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_claims_total",
			Help: "Seat claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	// VerifyDuration observes how long the verification scan of the seat's
	// stream took, including timed-out scans.
	VerifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "claim_verification_seconds",
			Help:    "Duration of claim verification scans",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// CancelsTotal counts cancellation attempts by outcome: cancelled,
	// not_found, forbidden, broker_error or store_error.
	CancelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_cancels_total",
			Help: "Reservation cancellation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ViewEvents counts events folded into the materialized seat view.
	ViewEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_view_events_total",
			Help: "Seat events applied by the materialized view",
		},
		[]string{"action"},
	)

	// ViewTopics tracks how many play streams the view is consuming.
	ViewTopics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seat_view_topics",
			Help: "Play topics currently consumed by the materialized view",
		},
	)
)
