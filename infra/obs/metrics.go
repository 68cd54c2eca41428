// Package obs exposes the daemon's prometheus metrics.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ops counts committed operations by kind and outcome.
	Ops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aquadex",
		Name:      "ops_total",
		Help:      "State-changing operations by kind and outcome.",
	}, []string{"op", "outcome"})

	// Fills counts matched fills by taker side.
	Fills = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aquadex",
		Name:      "fills_total",
		Help:      "Fills recorded in the trade log by taker side.",
	}, []string{"side"})

	// FeeVolume accumulates gross taker fees in pricing token units.
	FeeVolume = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aquadex",
		Name:      "fee_volume_total",
		Help:      "Gross taker fees charged, pricing token base units.",
	})

	// WalAppends counts journal records written.
	WalAppends = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aquadex",
		Name:      "wal_appends_total",
		Help:      "Operation journal records appended.",
	})

	// SnapshotDuration observes snapshot commit latency.
	SnapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aquadex",
		Name:      "snapshot_duration_seconds",
		Help:      "Region snapshot commit latency.",
		Buckets:   prometheus.DefBuckets,
	})
)
