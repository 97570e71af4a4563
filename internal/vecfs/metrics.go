package vecfs

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts filesystem operations.
	// Labels: op, result (success, not_found, invalid, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecfs",
			Subsystem: "fs",
			Name:      "operations_total",
			Help:      "Total number of filesystem operations by result",
		},
		[]string{"op", "result"},
	)

	// OperationDuration tracks filesystem operation latency.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vecfs",
			Subsystem: "fs",
			Name:      "operation_duration_seconds",
			Help:      "Duration of filesystem operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrPathNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidPathType), errors.Is(err, ErrPathExists):
		return "invalid"
	default:
		return "error"
	}
}

func observe(op string, start time.Time, err error) {
	OperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
