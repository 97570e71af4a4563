package vrkai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodecOperationsTotal counts encode and decode calls.
	// Labels: format (vrkai, vrpack), op (encode, decode), result (success, error)
	CodecOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecfs",
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Total number of codec operations by result",
		},
		[]string{"format", "op", "result"},
	)

	// CompressionRatio tracks uncompressed/compressed size per VRKai encode.
	CompressionRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vecfs",
			Subsystem: "codec",
			Name:      "compression_ratio",
			Help:      "Ratio of JSON size to lz4 block size",
			Buckets:   []float64{1, 1.5, 2, 3, 4, 6, 8, 12, 16},
		},
	)
)

func observe(format, op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	CodecOperationsTotal.WithLabelValues(format, op, result).Inc()
}
