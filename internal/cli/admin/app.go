package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/notewise/internal/config"
	"github.com/cloo-solutions/notewise/internal/database"
	"github.com/cloo-solutions/notewise/internal/logging"
	"github.com/cloo-solutions/notewise/internal/ollama"
	"github.com/cloo-solutions/notewise/internal/openai"
	"github.com/cloo-solutions/notewise/internal/repository"
	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/cloo-solutions/notewise/internal/storage"
	"github.com/cloo-solutions/notewise/internal/vectorstore/memory"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"
)

// modelClient serves both embeddings and chat completions.
type modelClient interface {
	service.EmbeddingClient
	service.CompletionClient
}

// app holds the wired services shared by every command.
type app struct {
	cfg  *config.Config
	pool *pgxpool.Pool

	docs     service.DocumentRepositoryInterface
	txRunner service.TxRunner
	jobRepo  *repository.IndexJobRepository

	rag    *service.RAGService
	chat   *service.ChatService
	upload *service.UploadService
	jobs   *service.IndexJobService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var store service.ChunkStore
	var logs service.RetrievalLogRepository

	if cfg.UseMemoryStore() {
		memStore, err := memory.New(cfg.EmbeddingDimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory store: %w", err)
		}
		store = memStore
		a.docs = memory.NewDocuments()
		log.Warn().Msg("using in-memory vector store; nothing survives a restart")
	} else {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.pool = pool
		store = repository.NewChunkRepository(pool, cfg.EmbeddingDimensions)
		logs = repository.NewRetrievalLogRepository(pool)
		a.docs = repository.NewDocumentRepository(pool)
		a.txRunner = repository.NewTxRunner(pool)
		a.jobRepo = repository.NewIndexJobRepository(pool)
	}

	client, err := newModelClient(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	embedder := service.NewEmbedder(client, service.EmbedderConfig{
		Dimension:     cfg.EmbeddingDimensions,
		Concurrency:   cfg.EmbedConcurrency,
		RatePerSecond: cfg.EmbedRateLimit,
	})
	indexer := service.NewIndexer(a.docs, store, embedder, service.IndexerConfig{
		ChunkSize:        cfg.ChunkSize,
		MinContentLength: cfg.MinContentLength,
		Concurrency:      cfg.ReindexConcurrency,
		EmbeddingModel:   cfg.EmbeddingModel,
	})
	a.rag = service.NewRAGService(a.docs, store, embedder, indexer, logs, cfg.RAGPolicy())
	a.chat = service.NewChatService(a.rag, a.docs, client, cfg.DashboardLimit)

	var objects service.ObjectStorage
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Info().Str("bucket", cfg.S3Bucket).Msg("upload archive ready")
		objects = s3Client
	}
	a.upload = service.NewUploadService(a.docs, a.rag, objects, a.txRunner)

	if a.jobRepo != nil {
		a.jobs = service.NewIndexJobService(a.docs, a.jobRepo)
	}

	return a, nil
}

func newModelClient(cfg *config.Config) (modelClient, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOllama:
		client, err := ollama.NewClient(ollama.Config{
			ServerURL:      cfg.OllamaURL,
			EmbeddingModel: cfg.EmbeddingModel,
			ChatModel:      cfg.ChatModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return client, nil
	default:
		if !cfg.HasOpenAI() {
			return nil, fmt.Errorf("NOTEWISE_OPENAI_API_KEY is required for the openai provider")
		}
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			ChatModel:           cfg.ChatModel,
		}), nil
	}
}

// requireDatabase rejects commands that need persisted notes.
func (a *app) requireDatabase() error {
	if a.pool == nil {
		return fmt.Errorf("this command requires NOTEWISE_VECTOR_BACKEND=postgres")
	}
	return nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Debug)
	return newApp(ctx, cfg)
}
