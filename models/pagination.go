package models

// PaginatedThreads represents a page of thread records from one analysis
type PaginatedThreads struct {
	AnalysisID   string         `json:"analysis_id"`
	Threads      []ThreadRecord `json:"threads"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	TotalPages   int            `json:"total_pages"`
	TotalThreads int            `json:"total_threads"`
	HasNext      bool           `json:"has_next"`
	HasPrev      bool           `json:"has_prev"`
}

// NewPaginatedThreads slices threads to the requested page. Out of range
// pages are clamped to the nearest valid one.
func NewPaginatedThreads(analysisID string, threads []ThreadRecord, page, pageSize int) *PaginatedThreads {
	if pageSize < 1 {
		pageSize = 20
	}
	total := len(threads)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	return &PaginatedThreads{
		AnalysisID:   analysisID,
		Threads:      threads[start:end],
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		TotalThreads: total,
		HasNext:      page < totalPages,
		HasPrev:      page > 1,
	}
}
