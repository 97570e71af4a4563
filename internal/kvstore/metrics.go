package kvstore

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts store operations.
	// Labels: op (get, iterate, commit), topic, result (success, not_found, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecfs",
			Subsystem: "kvstore",
			Name:      "operations_total",
			Help:      "Total number of key-value operations by result",
		},
		[]string{"op", "topic", "result"},
	)

	// BatchSize tracks the number of operations per committed batch.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vecfs",
			Subsystem: "kvstore",
			Name:      "batch_size",
			Help:      "Number of operations per batch commit",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

func observe(op string, topic Topic, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	OperationsTotal.WithLabelValues(op, string(topic), result).Inc()
}
