package domain

// ReindexState is a step of a single-document reindex.
type ReindexState string

const (
	ReindexStateExtracting ReindexState = "extracting"
	ReindexStateChunking   ReindexState = "chunking"
	ReindexStateEmbedding  ReindexState = "embedding"
	ReindexStatePersisting ReindexState = "persisting"
	ReindexStateDone       ReindexState = "done"
	ReindexStateFailed     ReindexState = "failed"
)

// ReindexResult reports the outcome of indexing one document.
type ReindexResult struct {
	DocumentID    string
	ChunksCreated int
	State         ReindexState
	// Skipped is set when the document had no text and nothing was changed.
	Skipped bool
}

// ReindexSummary is the aggregate outcome of a corpus-wide reindex.
type ReindexSummary struct {
	SuccessCount   int
	ErrorCount     int
	TotalDocuments int
}
