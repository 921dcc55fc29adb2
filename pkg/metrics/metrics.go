// Package metrics exposes Prometheus collectors for the chit fund core.
// Collectors register on the default registry; the embedding application
// serves them however it serves the rest of its metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitfund_payments_recorded_total",
			Help: "Total number of contributions marked completed",
		},
	)

	BidsPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chitfund_bids_placed_total",
			Help: "Total number of bids accepted",
		},
	)

	RoundsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chitfund_rounds_settled_total",
			Help: "Total number of rounds settled, by trigger",
		},
		[]string{"trigger"}, // "bidding" or "terminal"
	)

	SettlementPool = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chitfund_settlement_pool_amount",
			Help:    "Pooled amount distributed per settled round",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8),
		},
	)
)
