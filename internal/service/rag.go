package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/pagination"
	"github.com/cloo-solutions/notewise/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// Default retrieval policy.
const (
	DefaultChatLimit           = 5
	DefaultDashboardLimit      = 3
	DefaultSimilarityThreshold = 0.3
)

// RAGPolicy holds the caller-overridable retrieval defaults.
type RAGPolicy struct {
	ChunkSize           int
	MinContentLength    int
	MaxContextLength    int
	DefaultLimit        int
	SimilarityThreshold float64
}

// DefaultRAGPolicy returns the shipped defaults.
func DefaultRAGPolicy() RAGPolicy {
	return RAGPolicy{
		ChunkSize:           DefaultChunkSize,
		MinContentLength:    DefaultMinContentLength,
		MaxContextLength:    DefaultMaxContextLength,
		DefaultLimit:        DefaultChatLimit,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// RetrieveInput is a retrieval request. Zero Limit and MaxContextLength and a
// nil Threshold fall back to the policy.
type RetrieveInput struct {
	Query            string
	OwnerID          string
	Limit            int
	Threshold        *float64
	MaxContextLength int
}

// RetrieveOutput is the assembled context and where it came from.
type RetrieveOutput struct {
	Context string
	// UsedDocumentIDs lists each source document once, in rank order.
	UsedDocumentIDs []string
	Results         []domain.RetrievalResult
}

// ListIndexInput pages through indexed documents.
type ListIndexInput struct {
	OwnerID string
	Cursor  string
	Limit   int
}

// RAGService is the entry point for indexing and retrieval.
type RAGService struct {
	docs     DocumentSource
	store    ChunkStore
	embedder TextEmbedder
	indexer  *Indexer
	search   *SearchEngine
	logs     RetrievalLogRepository
	policy   RAGPolicy
}

// NewRAGService wires the pipeline. logs may be nil.
func NewRAGService(docs DocumentSource, store ChunkStore, embedder TextEmbedder, indexer *Indexer, logs RetrievalLogRepository, policy RAGPolicy) *RAGService {
	return &RAGService{
		docs:     docs,
		store:    store,
		embedder: embedder,
		indexer:  indexer,
		search:   NewSearchEngine(store),
		logs:     logs,
		policy:   policy,
	}
}

// Policy returns the service's retrieval defaults.
func (s *RAGService) Policy() RAGPolicy {
	return s.policy
}

// IndexDocument rebuilds the index for one document. It is safe to call
// repeatedly. A document without text is skipped, not failed.
func (s *RAGService) IndexDocument(ctx context.Context, documentID, ownerID string) (*domain.ReindexResult, error) {
	doc, err := s.docs.GetDocument(ctx, documentID, ownerID)
	if err != nil {
		return nil, err
	}

	result, err := s.indexer.ReindexDocument(ctx, ReindexInput{
		DocumentID: doc.ID,
		OwnerID:    ownerID,
		Title:      doc.Title,
		Source:     doc.Source,
		Content:    doc.Content,
	})
	if errors.Is(err, domain.ErrExtractionEmpty) {
		result.Skipped = true
		return result, nil
	}
	return result, err
}

// RemoveDocumentIndex drops every chunk of a document. Removing an
// unindexed document succeeds.
func (s *RAGService) RemoveDocumentIndex(ctx context.Context, documentID, ownerID string) error {
	if documentID == "" || ownerID == "" {
		return domain.ErrMissingRequiredField
	}
	return s.store.DeleteChunks(ctx, documentID, ownerID)
}

// ReindexAll rebuilds every document of ownerID.
func (s *RAGService) ReindexAll(ctx context.Context, ownerID string) (*domain.ReindexSummary, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	return s.indexer.ReindexAllForOwner(ctx, ownerID)
}

// ListIndex pages through the owner's indexed documents.
func (s *RAGService) ListIndex(ctx context.Context, in ListIndexInput) (*IndexPage, error) {
	cursor, err := pagination.DecodeCursor(in.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.store.ListIndexedDocuments(ctx, in.OwnerID, cursor, in.Limit)
}

// RetrieveContext finds the owner's most relevant chunks for a query and
// renders them as prompt context. When embedding or search fails the output
// is empty and the error is returned alongside it, so callers can carry on
// without context.
func (s *RAGService) RetrieveContext(ctx context.Context, in RetrieveInput) (*RetrieveOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "rag.retrieve_context", telemetry.SpanAttributes{
		OwnerID:   in.OwnerID,
		Operation: "retrieve",
	})
	defer span.End()

	start := time.Now()
	out := &RetrieveOutput{UsedDocumentIDs: []string{}, Results: []domain.RetrievalResult{}}

	limit := in.Limit
	if limit <= 0 {
		limit = s.policy.DefaultLimit
	}
	threshold := s.policy.SimilarityThreshold
	if in.Threshold != nil {
		threshold = *in.Threshold
	}
	maxLen := in.MaxContextLength
	if maxLen <= 0 {
		maxLen = s.policy.MaxContextLength
	}

	entry := RetrievalLogEntry{
		OwnerID:     in.OwnerID,
		QueryLength: utf8.RuneCountInString(in.Query),
		Limit:       limit,
		Threshold:   threshold,
	}

	query := strings.TrimSpace(in.Query)
	if query == "" || in.OwnerID == "" {
		return out, domain.ErrMissingRequiredField
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.SetError(err)
		s.record(ctx, entry, start, err)
		return out, err
	}

	results, err := s.search.Search(ctx, embedding, in.OwnerID, limit, threshold)
	if err != nil {
		span.SetError(err)
		s.record(ctx, entry, start, err)
		return out, err
	}

	var included int
	out.Results = results
	out.Context, included = buildContext(results, maxLen)
	out.UsedDocumentIDs = usedDocumentIDs(results[:included])

	entry.ContextLength = utf8.RuneCountInString(out.Context)
	for _, r := range results {
		entry.Results = append(entry.Results, RetrievalLogResult{
			ChunkID:    r.Chunk.ID,
			DocumentID: r.Chunk.DocumentID,
			Similarity: r.Similarity,
		})
	}
	s.record(ctx, entry, start, nil)
	span.SetData("result_count", len(results))

	return out, nil
}

func (s *RAGService) record(ctx context.Context, entry RetrievalLogEntry, start time.Time, err error) {
	if s.logs == nil {
		return
	}
	entry.DurationMs = int(time.Since(start).Milliseconds())
	if err != nil {
		entry.Error = err.Error()
	}
	if _, logErr := s.logs.CreateRetrievalLog(context.WithoutCancel(ctx), entry); logErr != nil {
		log.Warn().Err(logErr).Str("owner_id", entry.OwnerID).Msg("failed to record retrieval log")
	}
}

func usedDocumentIDs(results []domain.RetrievalResult) []string {
	ids := make([]string, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if _, ok := seen[r.Chunk.DocumentID]; ok {
			continue
		}
		seen[r.Chunk.DocumentID] = struct{}{}
		ids = append(ids, r.Chunk.DocumentID)
	}
	return ids
}
