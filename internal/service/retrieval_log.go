package service

import "context"

// RetrievalLogResult captures a single result entry for logging.
type RetrievalLogResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Similarity float64 `json:"similarity"`
}

// RetrievalLogEntry captures a retrieval request and its results. The query
// text itself is not stored.
type RetrievalLogEntry struct {
	OwnerID       string
	QueryLength   int
	Limit         int
	Threshold     float64
	ContextLength int
	DurationMs    int
	Error         string
	Results       []RetrievalLogResult
}

// RetrievalLogRepository persists retrieval logs.
type RetrievalLogRepository interface {
	CreateRetrievalLog(ctx context.Context, entry RetrievalLogEntry) (string, error)
}
