package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository reads and creates notes.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	if err := domain.ValidateDocument(d); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	content := []byte(d.Content)
	if len(content) == 0 {
		content = []byte("{}")
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO notes (id, owner_id, title, content, source, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.OwnerID, d.Title, content, d.Source, tags, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// GetDocument returns the note only if ownerID owns it.
func (r *DocumentRepository) GetDocument(ctx context.Context, documentID, ownerID string) (*domain.Document, error) {
	var d domain.Document
	var content []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, title, content, source, tags, created_at, updated_at
		 FROM notes WHERE id = $1`,
		documentID,
	).Scan(&d.ID, &d.OwnerID, &d.Title, &content, &d.Source, &d.Tags, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if d.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	d.Content = content
	return &d, nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, title, content, source, tags, created_at, updated_at
		 FROM notes WHERE owner_id = $1 ORDER BY updated_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		var content []byte
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Title, &content, &d.Source, &d.Tags, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Content = content
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}
