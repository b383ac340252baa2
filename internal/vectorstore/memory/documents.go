package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cloo-solutions/notewise/internal/domain"
)

// Documents is an in-process note repository paired with Store when no
// database is configured.
type Documents struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
}

func NewDocuments() *Documents {
	return &Documents{docs: make(map[string]*domain.Document)}
}

func (d *Documents) Create(_ context.Context, doc *domain.Document) error {
	if err := domain.ValidateDocument(doc); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.docs[doc.ID]; ok {
		return domain.NewDomainError(domain.ErrCodeInvalidOperation, "document already exists")
	}
	d.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (d *Documents) GetDocument(_ context.Context, documentID, ownerID string) (*domain.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.docs[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	if doc.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return cloneDocument(doc), nil
}

// ListByOwner returns the owner's notes, most recently updated first.
func (d *Documents) ListByOwner(_ context.Context, ownerID string) ([]*domain.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*domain.Document
	for _, doc := range d.docs {
		if doc.OwnerID == ownerID {
			out = append(out, cloneDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func cloneDocument(doc *domain.Document) *domain.Document {
	c := *doc
	c.Content = append([]byte(nil), doc.Content...)
	c.Tags = append([]string(nil), doc.Tags...)
	return &c
}
