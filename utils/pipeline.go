package utils

import (
	"time"

	"threadscope/metrics"
	"threadscope/models"
)

// AnalyzeOptions tunes a pipeline run
type AnalyzeOptions struct {
	Workers int              // concurrent tree aggregation, <= 1 means sequential
	Logger  *Logger          // defaults to Log
	Now     func() time.Time // clock for the processing timestamp
}

// Analyze runs parse, reconstruct, aggregate and serialize over raws. It
// never fails; an empty input yields an empty document.
func Analyze(raws []models.RawMessage, opts AnalyzeOptions) *models.Document {
	logger := opts.Logger
	if logger == nil {
		logger = Log
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	start := time.Now()

	messages := make([]*models.Message, 0, len(raws))
	for _, raw := range raws {
		messages = append(messages, models.ParseMessage(raw))
	}

	forest := NewThreadBuilder().WithLogger(logger).BuildForest(messages)
	AggregateForest(forest, opts.Workers)
	doc := BuildDocument(forest, now())

	metrics.MessagesAnalyzed.Add(float64(len(messages)))
	metrics.ThreadsBuilt.Add(float64(len(forest.Trees)))
	metrics.RecoveredInputs.WithLabelValues("duplicate").Add(float64(len(forest.Diagnostics.Duplicates)))
	metrics.RecoveredInputs.WithLabelValues("cycle").Add(float64(len(forest.Diagnostics.CyclesBroken)))
	metrics.RecoveredInputs.WithLabelValues("unresolved").Add(float64(len(forest.Diagnostics.Unresolved)))
	metrics.RecoveredInputs.WithLabelValues("missing_id").Add(float64(forest.Diagnostics.MissingIDs))
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	logger.Info("Processed %d threads with %d total messages", doc.Summary.TotalThreads, doc.Summary.TotalMessages)
	return doc
}
