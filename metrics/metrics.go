package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Threading metrics
var (
	MessagesAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threadscope_messages_analyzed_total",
			Help: "Total number of messages passed through thread reconstruction",
		},
	)

	ThreadsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threadscope_threads_built_total",
			Help: "Total number of root threads produced",
		},
	)

	RecoveredInputs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadscope_recovered_inputs_total",
			Help: "Messages whose malformed headers were recovered during reconstruction",
		},
		[]string{"kind"}, // duplicate, cycle, unresolved, missing_id
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threadscope_analysis_duration_seconds",
			Help:    "Duration of a complete parse, reconstruct, aggregate and serialize run",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Service metrics
var (
	AnalysesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threadscope_analyses_stored_total",
			Help: "Total number of analysis documents persisted",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadscope_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
)
