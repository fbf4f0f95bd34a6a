package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_ingests_total",
		Help: "Document ingests by outcome.",
	}, []string{"status"})

	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_queries_total",
		Help: "Hybrid search queries by outcome.",
	}, []string{"status"})

	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rag_ingest_duration_seconds",
		Help:    "End-to-end ingest latency.",
		Buckets: prometheus.DefBuckets,
	})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rag_query_duration_seconds",
		Help:    "End-to-end query latency.",
		Buckets: prometheus.DefBuckets,
	})
)
