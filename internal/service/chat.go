package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/extract"
	"github.com/rs/zerolog/log"
)

// selectedNoteExcerpt is how much of each explicitly selected note goes into
// the prompt.
const selectedNoteExcerpt = 500

const selectedNotesIntro = "Here is relevant information from your selected notes:\n\n"

// CompletionClient generates a reply from a system prompt and a user turn.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatInput is one chat turn.
type ChatInput struct {
	OwnerID string
	Message string
	// ContextNoteIDs pins the context to these notes and skips retrieval.
	ContextNoteIDs []string
}

// ChatOutput is the model's answer and the notes it was shown.
type ChatOutput struct {
	Answer         string
	ContextUsed    bool
	ContextNoteIDs []string
}

// ChatService answers questions grounded in the owner's notes.
type ChatService struct {
	rag   *RAGService
	docs  DocumentSource
	llm   CompletionClient
	limit int
}

// NewChatService creates a ChatService. limit is the number of retrieved
// chunks; zero uses DefaultDashboardLimit.
func NewChatService(rag *RAGService, docs DocumentSource, llm CompletionClient, limit int) *ChatService {
	if limit <= 0 {
		limit = DefaultDashboardLimit
	}
	return &ChatService{rag: rag, docs: docs, llm: llm, limit: limit}
}

// Chat answers a message. Retrieval problems never fail the turn; the model
// then answers from general knowledge.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "message is required")
	}
	if in.OwnerID == "" {
		return nil, domain.ErrMissingRequiredField
	}

	var (
		notes   string
		noteIDs []string
		err     error
	)
	if len(in.ContextNoteIDs) > 0 {
		notes, noteIDs, err = s.selectedContext(ctx, in.OwnerID, in.ContextNoteIDs)
		if err != nil {
			return nil, err
		}
	} else {
		out, err := s.rag.RetrieveContext(ctx, RetrieveInput{Query: message, OwnerID: in.OwnerID, Limit: s.limit})
		if err != nil {
			log.Warn().Err(err).Str("owner_id", in.OwnerID).Msg("retrieval failed, answering without notes")
		}
		notes, noteIDs = out.Context, out.UsedDocumentIDs
	}
	if noteIDs == nil {
		noteIDs = []string{}
	}

	answer, err := s.llm.Complete(ctx, systemPrompt(notes), "User question: "+message)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, domain.ErrCompletionUnavailable.Message, err)
	}

	return &ChatOutput{
		Answer:         answer,
		ContextUsed:    notes != "",
		ContextNoteIDs: noteIDs,
	}, nil
}

// selectedContext renders the start of each requested note. Notes that are
// missing or belong to someone else are left out.
func (s *ChatService) selectedContext(ctx context.Context, ownerID string, ids []string) (string, []string, error) {
	var b strings.Builder
	used := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		doc, err := s.docs.GetDocument(ctx, id, ownerID)
		if err != nil {
			if isNotVisible(err) {
				continue
			}
			return "", nil, fmt.Errorf("load note %s: %w", id, err)
		}

		if b.Len() == 0 {
			b.WriteString(selectedNotesIntro)
		}
		fmt.Fprintf(&b, "[Note: %s]\n", doc.Title)
		if text := extract.FromJSON(doc.Content); text != "" {
			b.WriteString(truncateRunes(text, selectedNoteExcerpt))
			b.WriteString("\n\n")
		}
		used = append(used, doc.ID)
	}
	return b.String(), used, nil
}

func isNotVisible(err error) bool {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == domain.ErrCodeNotFound || domainErr.Code == domain.ErrCodeForbidden
}

func systemPrompt(notes string) string {
	var b strings.Builder
	b.WriteString("You are a helpful AI assistant that helps users with their notes and questions.\n")
	if notes != "" {
		b.WriteString("Use the following context from the user's notes to answer their question:\n\n")
		b.WriteString(notes)
		b.WriteString("\n\n")
	}
	b.WriteString("If you use information from the notes, mention it naturally in your response.\n")
	b.WriteString("If the question cannot be answered with the provided context or is a simple question, answer based on your general knowledge.\n")
	b.WriteString("Be concise, helpful, and friendly.")
	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
