package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/creatorhub/settlement-engine/internal/models"
)

// SweepWatermarkRepository persists the "last sweep" record per period so a
// restarted scheduler never depends on in-memory state.
type SweepWatermarkRepository struct {
	db *sql.DB
}

func NewSweepWatermarkRepository(db *sql.DB) *SweepWatermarkRepository {
	return &SweepWatermarkRepository{db: db}
}

func (r *SweepWatermarkRepository) Get(ctx context.Context, period string) (*models.SweepWatermark, error) {
	var w models.SweepWatermark
	var completedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT period, started_at, completed_at, authors_total, authors_settled, authors_failed
		FROM sweep_watermarks WHERE period = $1
	`, period).Scan(&w.Period, &w.StartedAt, &completedAt, &w.AuthorsTotal, &w.AuthorsSettled, &w.AuthorsFailed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		w.CompletedAt = &completedAt.Time
	}
	return &w, nil
}

func (r *SweepWatermarkRepository) Record(ctx context.Context, w *models.SweepWatermark) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sweep_watermarks (period, started_at, completed_at, authors_total, authors_settled, authors_failed)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (period) DO UPDATE SET
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			authors_total = EXCLUDED.authors_total,
			authors_settled = EXCLUDED.authors_settled,
			authors_failed = EXCLUDED.authors_failed
	`, w.Period, w.StartedAt, w.CompletedAt, w.AuthorsTotal, w.AuthorsSettled, w.AuthorsFailed)
	return err
}
