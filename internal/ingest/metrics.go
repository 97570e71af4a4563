package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vecfs",
		Subsystem: "ingest",
		Name:      "files_total",
		Help:      "Files processed into resources, by file type and result",
	}, []string{"type", "result"})

	chunksPerFile = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vecfs",
		Subsystem: "ingest",
		Name:      "chunks_per_file",
		Help:      "Number of text nodes produced per file",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)
