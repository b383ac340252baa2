// Package ollama serves embeddings and chat completions from a local Ollama
// server through langchaingo.
package ollama

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultModel produces 768-dimension embeddings.
const DefaultModel = "nomic-embed-text"

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoCompletion is returned when the model produced no choices
	ErrNoCompletion = errors.New("no completion returned")
)

// QueryEmbedder is the part of embeddings.Embedder the client uses.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config configures the Ollama client.
type Config struct {
	ServerURL      string
	EmbeddingModel string
	ChatModel      string
}

// Client wraps a langchaingo embedder and chat model.
type Client struct {
	embedder QueryEmbedder
	chat     llms.Model
}

// NewClient connects to the Ollama server described by cfg.
func NewClient(cfg Config) (*Client, error) {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultModel
	}

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	chat := llms.Model(llm)
	if cfg.ChatModel != "" && cfg.ChatModel != model {
		chatLLM, err := ollama.New(
			ollama.WithServerURL(cfg.ServerURL),
			ollama.WithModel(cfg.ChatModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama chat model: %w", err)
		}
		chat = chatLLM
	}

	return &Client{embedder: embedder, chat: chat}, nil
}

// GenerateEmbedding embeds text with the configured model.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	return embedding, nil
}

// Complete returns the model's reply to user under the given system instruction.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if user == "" {
		return "", ErrEmptyText
	}

	messages := make([]llms.MessageContent, 0, 2)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, user))

	resp, err := c.chat.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return resp.Choices[0].Content, nil
}
