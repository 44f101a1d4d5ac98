package models

import "time"

// AnalysisMeta is the index entry for a stored analysis document
type AnalysisMeta struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	TotalThreads  int       `json:"total_threads"`
	TotalMessages int       `json:"total_messages"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewAnalysisMeta derives the index entry for doc
func NewAnalysisMeta(id, source string, doc *Document, createdAt time.Time) AnalysisMeta {
	return AnalysisMeta{
		ID:            id,
		Source:        source,
		TotalThreads:  doc.Summary.TotalThreads,
		TotalMessages: doc.Summary.TotalMessages,
		CreatedAt:     createdAt,
	}
}
