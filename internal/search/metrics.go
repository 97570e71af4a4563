package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TraversalsTotal counts traversals.
	// Labels: method (efficient, exhaustive, unscored_all_nodes)
	TraversalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecfs",
			Subsystem: "search",
			Name:      "traversals_total",
			Help:      "Total number of resource traversals by method",
		},
		[]string{"method"},
	)

	// TraversalDuration tracks how long traversals take.
	TraversalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vecfs",
			Subsystem: "search",
			Name:      "traversal_duration_seconds",
			Help:      "Duration of resource traversals in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// NodesVisited tracks how many nodes a traversal scored or enumerated.
	NodesVisited = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vecfs",
			Subsystem: "search",
			Name:      "nodes_visited",
			Help:      "Number of nodes visited per traversal",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)
