package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cloo-solutions/notewise/internal/api"
	"github.com/cloo-solutions/notewise/internal/api/middleware"
	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/rs/zerolog/log"
)

type ContextService interface {
	RetrieveContext(ctx context.Context, in service.RetrieveInput) (*service.RetrieveOutput, error)
}

type ChatService interface {
	Chat(ctx context.Context, in service.ChatInput) (*service.ChatOutput, error)
}

type ContextHandler struct {
	svc  ContextService
	chat ChatService
}

// NewContextHandler creates a ContextHandler. chat may be nil when no
// completion model is configured.
func NewContextHandler(svc ContextService, chat ChatService) *ContextHandler {
	return &ContextHandler{svc: svc, chat: chat}
}

type RetrieveRequest struct {
	Query            string   `json:"query"`
	Limit            int      `json:"limit,omitempty"`
	Threshold        *float64 `json:"threshold,omitempty"`
	MaxContextLength int      `json:"max_context_length,omitempty"`
}

type RetrievedChunkResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

type RetrieveResponse struct {
	Context         string                    `json:"context"`
	UsedDocumentIDs []string                  `json:"used_document_ids"`
	Results         []*RetrievedChunkResponse `json:"results"`
	// Degraded is set when retrieval failed and the context is empty.
	Degraded bool `json:"degraded,omitempty"`
}

type ChatRequest struct {
	Message        string   `json:"message"`
	ContextNoteIDs []string `json:"context_note_ids,omitempty"`
}

type ChatResponse struct {
	Message        string   `json:"message"`
	ContextUsed    bool     `json:"context_used"`
	ContextNoteIDs []string `json:"context_note_ids"`
}

func (h *ContextHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit < 0 {
		api.Error(w, http.StatusBadRequest, "limit must not be negative")
		return
	}
	if req.Threshold != nil && (*req.Threshold < -1 || *req.Threshold > 1) {
		api.Error(w, http.StatusBadRequest, "threshold must be between -1 and 1")
		return
	}

	out, err := h.svc.RetrieveContext(r.Context(), service.RetrieveInput{
		Query:            req.Query,
		OwnerID:          ownerID,
		Limit:            req.Limit,
		Threshold:        req.Threshold,
		MaxContextLength: req.MaxContextLength,
	})

	resp := RetrieveResponse{UsedDocumentIDs: []string{}, Results: []*RetrievedChunkResponse{}}
	if err != nil {
		if isValidation(err) {
			api.HandleError(w, err)
			return
		}
		log.Warn().Err(err).Str("owner_id", ownerID).Msg("retrieval degraded to empty context")
		resp.Degraded = true
		api.Success(w, http.StatusOK, resp)
		return
	}

	resp.Context = out.Context
	resp.UsedDocumentIDs = append(resp.UsedDocumentIDs, out.UsedDocumentIDs...)
	for _, res := range out.Results {
		resp.Results = append(resp.Results, &RetrievedChunkResponse{
			ChunkID:    res.Chunk.ID,
			DocumentID: res.Chunk.DocumentID,
			Title:      res.Chunk.Metadata.String(domain.MetadataTitle),
			Text:       res.Chunk.Text,
			Similarity: res.Similarity,
		})
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *ContextHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.chat == nil {
		api.Error(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	out, err := h.chat.Chat(r.Context(), service.ChatInput{
		OwnerID:        ownerID,
		Message:        req.Message,
		ContextNoteIDs: req.ContextNoteIDs,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{
		Message:        out.Answer,
		ContextUsed:    out.ContextUsed,
		ContextNoteIDs: out.ContextNoteIDs,
	})
}

func isValidation(err error) bool {
	var domainErr *domain.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodeValidation
}
