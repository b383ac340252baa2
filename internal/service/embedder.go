package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/notewise/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbedderConfig controls how the embedder talks to the upstream service.
type EmbedderConfig struct {
	// Dimension is the vector length every result must have. Zero disables the check.
	Dimension int
	// Concurrency bounds in-flight calls in EmbedBatch.
	Concurrency int
	// RatePerSecond limits upstream calls. Zero means unlimited.
	RatePerSecond float64
}

// Embedder issues one upstream call per text and validates the result.
type Embedder struct {
	client      EmbeddingClient
	dimension   int
	concurrency int
	limiter     *rate.Limiter
}

// NewEmbedder creates an Embedder over client.
func NewEmbedder(client EmbeddingClient, cfg EmbedderConfig) *Embedder {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Embedder{
		client:      client,
		dimension:   cfg.Dimension,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// Embed returns the embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedOne(ctx, text)
	if err != nil {
		return nil, domain.NewEmbeddingServiceError(text, err)
	}
	return vec, nil
}

// EmbedBatch embeds every text and returns the vectors in input order. The
// first failure cancels the remaining calls and no partial result is returned.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.embedOne(gctx, text)
			if err != nil {
				return &domain.EmbeddingServiceError{Index: i, Text: text, Err: err}
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (e *Embedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	vec, err := e.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, errors.New("no embedding returned")
	}
	if e.dimension > 0 && len(vec) != e.dimension {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), e.dimension)
	}
	return vec, nil
}
