package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/extract"
	"github.com/cloo-solutions/notewise/internal/telemetry"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultMinContentLength is the shortest extracted text worth indexing.
const DefaultMinContentLength = 10

// TextEmbedder turns text into vectors.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexerConfig controls the reindex pipeline.
type IndexerConfig struct {
	ChunkSize        int
	MinContentLength int
	// Concurrency bounds how many documents ReindexAllForOwner processes at once.
	Concurrency int
	// EmbeddingModel is recorded in chunk metadata when set.
	EmbeddingModel string
}

// ReindexInput is one document to index.
type ReindexInput struct {
	DocumentID string
	OwnerID    string
	Title      string
	Source     string
	Content    json.RawMessage
}

// Indexer turns documents into stored chunks.
type Indexer struct {
	docs     DocumentSource
	store    ChunkStore
	embedder TextEmbedder
	cfg      IndexerConfig
	locks    *keyedMutex
}

// NewIndexer creates an Indexer.
func NewIndexer(docs DocumentSource, store ChunkStore, embedder TextEmbedder, cfg IndexerConfig) *Indexer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = DefaultMinContentLength
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Indexer{
		docs:     docs,
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		locks:    newKeyedMutex(),
	}
}

// ReindexDocument extracts, chunks and embeds a document, then replaces its
// stored chunks. The store is untouched unless every chunk was embedded, so
// a failure leaves the previous index in place. Calls for the same document
// are serialised.
func (i *Indexer) ReindexDocument(ctx context.Context, in ReindexInput) (*domain.ReindexResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.reindex_document", telemetry.SpanAttributes{
		OwnerID:    in.OwnerID,
		DocumentID: in.DocumentID,
		Operation:  "reindex",
	})
	defer span.End()

	unlock := i.locks.Lock(in.DocumentID)
	defer unlock()

	result := &domain.ReindexResult{DocumentID: in.DocumentID}
	logger := log.With().Str("document_id", in.DocumentID).Str("owner_id", in.OwnerID).Logger()

	fail := func(err error) (*domain.ReindexResult, error) {
		logger.Debug().Err(err).Str("state", string(result.State)).Msg("reindex failed")
		result.State = domain.ReindexStateFailed
		return result, err
	}

	result.State = domain.ReindexStateExtracting
	text := extract.FromJSON(in.Content)
	if text == "" {
		return fail(domain.ErrExtractionEmpty)
	}
	if utf8.RuneCountInString(text) < i.cfg.MinContentLength {
		return fail(domain.ErrContentTooShort)
	}

	result.State = domain.ReindexStateChunking
	chunks := ChunkText(text, i.cfg.ChunkSize)
	if len(chunks) == 0 {
		return fail(domain.ErrExtractionEmpty)
	}

	result.State = domain.ReindexStateEmbedding
	vectors, err := i.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return fail(fmt.Errorf("embed chunks: %w", err))
	}
	if len(vectors) != len(chunks) {
		return fail(&domain.EmbeddingServiceError{
			Index: len(vectors),
			Err:   fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(chunks)),
		})
	}

	inputs := make([]domain.ChunkInput, len(chunks))
	for idx, chunk := range chunks {
		metadata := domain.Metadata{
			domain.MetadataTitle:       in.Title,
			domain.MetadataChunkIndex:  idx,
			domain.MetadataTotalChunks: len(chunks),
		}
		if in.Source != "" {
			metadata[domain.MetadataSource] = in.Source
		}
		if i.cfg.EmbeddingModel != "" {
			metadata[domain.MetadataEmbeddingModel] = i.cfg.EmbeddingModel
		}
		inputs[idx] = domain.ChunkInput{Text: chunk, Embedding: vectors[idx], Metadata: metadata}
	}

	result.State = domain.ReindexStatePersisting
	if err := i.store.ReplaceChunks(ctx, in.DocumentID, in.OwnerID, inputs); err != nil {
		span.SetError(err)
		return fail(fmt.Errorf("replace chunks: %w", err))
	}

	result.State = domain.ReindexStateDone
	result.ChunksCreated = len(inputs)
	span.SetData("chunks_created", result.ChunksCreated)
	logger.Debug().Int("chunks", result.ChunksCreated).Msg("document reindexed")
	return result, nil
}

// ReindexAllForOwner reindexes every document of ownerID. A failing document
// is counted and never stops the others. The error is non-nil only when the
// documents could not be listed.
func (i *Indexer) ReindexAllForOwner(ctx context.Context, ownerID string) (*domain.ReindexSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.reindex_all", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		Operation: "reindex_all",
	})
	defer span.End()

	docs, err := i.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var success, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(i.cfg.Concurrency)

	for _, doc := range docs {
		g.Go(func() error {
			_, err := i.ReindexDocument(ctx, ReindexInput{
				DocumentID: doc.ID,
				OwnerID:    ownerID,
				Title:      doc.Title,
				Source:     doc.Source,
				Content:    doc.Content,
			})
			if err != nil {
				failed.Add(1)
				log.Warn().Err(err).Str("document_id", doc.ID).Str("owner_id", ownerID).Msg("document reindex failed")
				return nil
			}
			success.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	summary := &domain.ReindexSummary{
		SuccessCount:   int(success.Load()),
		ErrorCount:     int(failed.Load()),
		TotalDocuments: len(docs),
	}
	span.SetData("success_count", summary.SuccessCount)
	span.SetData("error_count", summary.ErrorCount)
	log.Info().
		Str("owner_id", ownerID).
		Int("success", summary.SuccessCount).
		Int("errors", summary.ErrorCount).
		Int("total", summary.TotalDocuments).
		Msg("owner reindex finished")
	return summary, nil
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
