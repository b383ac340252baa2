//go:build integration

package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const testDimension = 768

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)
	return pool
}

// basis returns a unit vector along axis i, optionally tilted towards axis j.
func basis(i int, tilt ...int) []float32 {
	v := make([]float32, testDimension)
	v[i] = 1
	for _, j := range tilt {
		v[j] = 1
	}
	return v
}

func createNote(ctx context.Context, t *testing.T, repo *DocumentRepository, ownerID, title, text string) *domain.Document {
	t.Helper()

	content, err := json.Marshal(domain.NewTextDocument(text))
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &domain.Document{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		Tags:      []string{"travel"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, doc))
	return doc
}
