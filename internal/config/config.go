package config

import (
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	APIToken    string `envconfig:"API_TOKEN"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	DatabaseURL   string `envconfig:"DATABASE_URL"`
	VectorBackend string `envconfig:"VECTOR_BACKEND" default:"postgres"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"notewise-uploads"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	OllamaURL           string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	ChatModel           string `envconfig:"CHAT_MODEL"`

	ChunkSize           int     `envconfig:"CHUNK_SIZE" default:"1000"`
	MinContentLength    int     `envconfig:"MIN_CONTENT_LENGTH" default:"10"`
	MaxContextLength    int     `envconfig:"MAX_CONTEXT_LENGTH" default:"3000"`
	ChatLimit           int     `envconfig:"CHAT_LIMIT" default:"5"`
	DashboardLimit      int     `envconfig:"DASHBOARD_LIMIT" default:"3"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.3"`

	EmbedConcurrency   int           `envconfig:"EMBED_CONCURRENCY" default:"4"`
	EmbedRateLimit     float64       `envconfig:"EMBED_RATE_LIMIT" default:"0"`
	ReindexConcurrency int           `envconfig:"REINDEX_CONCURRENCY" default:"2"`
	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("NOTEWISE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks combinations envconfig tags cannot express.
func (c *Config) Validate() error {
	switch c.VectorBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("required key NOTEWISE_DATABASE_URL missing value")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid NOTEWISE_VECTOR_BACKEND %q", c.VectorBackend)
	}

	switch c.EmbeddingProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("invalid NOTEWISE_EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}

	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("NOTEWISE_EMBEDDING_DIMENSIONS must be positive")
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("NOTEWISE_SIMILARITY_THRESHOLD must be within [-1, 1]")
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) UseMemoryStore() bool {
	return c.VectorBackend == BackendMemory
}

// RAGPolicy maps the tuning knobs onto the service defaults.
func (c *Config) RAGPolicy() service.RAGPolicy {
	return service.RAGPolicy{
		ChunkSize:           c.ChunkSize,
		MinContentLength:    c.MinContentLength,
		MaxContextLength:    c.MaxContextLength,
		DefaultLimit:        c.ChatLimit,
		SimilarityThreshold: c.SimilarityThreshold,
	}
}
