package metrics

import "github.com/prometheus/client_golang/prometheus"

// Document pipeline Prometheus metrics.
var (
	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenderdex",
			Name:      "ingest_total",
			Help:      "Total number of document ingestions",
		},
		[]string{"mode", "status"}, // mode: "tree" / "pages" / "degenerate"
	)

	IngestChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tenderdex",
			Name:      "ingest_chunks",
			Help:      "Chunks produced per ingested document",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	ExtractionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenderdex",
			Name:      "extraction_total",
			Help:      "Total number of summary extractions",
		},
		[]string{"source"}, // "llm" / "heuristic" / "cache"
	)

	RetrievalDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tenderdex",
			Name:      "retrieval_degraded_total",
			Help:      "Retrievals served by length-ranked fallback",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestTotal)
	prometheus.MustRegister(IngestChunks)
	prometheus.MustRegister(ExtractionTotal)
	prometheus.MustRegister(RetrievalDegradedTotal)
	pipelineMetricsRegistered = true
}
