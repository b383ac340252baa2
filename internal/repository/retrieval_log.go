package repository

import (
	"context"
	"encoding/json"

	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RetrievalLogRepository stores retrieval logs for relevance tuning.
type RetrievalLogRepository struct {
	pool *pgxpool.Pool
}

func NewRetrievalLogRepository(pool *pgxpool.Pool) *RetrievalLogRepository {
	return &RetrievalLogRepository{pool: pool}
}

func (r *RetrievalLogRepository) CreateRetrievalLog(ctx context.Context, entry service.RetrievalLogEntry) (string, error) {
	results := entry.Results
	if results == nil {
		results = []service.RetrievalLogResult{}
	}
	resultsJSON, _ := json.Marshal(results)

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO retrieval_logs (owner_id, query_length, result_limit, threshold, results, result_count, context_length, duration_ms, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		entry.OwnerID,
		entry.QueryLength,
		entry.Limit,
		entry.Threshold,
		resultsJSON,
		len(entry.Results),
		entry.ContextLength,
		entry.DurationMs,
		nullableString(entry.Error),
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
