package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/creatorhub/settlement-engine/internal/models"
)

type RevenueEventRepository struct {
	db *sql.DB
}

func NewRevenueEventRepository(db *sql.DB) *RevenueEventRepository {
	return &RevenueEventRepository{db: db}
}

const revenueEventColumns = `id, author_id, article_id, channel, gross_amount, fee_rate,
	platform_fee, creator_amount, review_status, occurred_at, settlement_id, created_at`

func (r *RevenueEventRepository) Insert(ctx context.Context, event *models.RevenueEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revenue_events (`+revenueEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		event.ID, event.AuthorID, uuidOrNil(event.ArticleID), event.Channel,
		event.GrossAmount, event.FeeRate, event.PlatformFee, event.CreatorAmount,
		event.ReviewStatus, event.OccurredAt, uuidOrNil(event.SettlementID), event.CreatedAt,
	)
	return err
}

func (r *RevenueEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RevenueEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+revenueEventColumns+` FROM revenue_events WHERE id = $1
	`, id)
	return scanRevenueEvent(row)
}

func (r *RevenueEventRepository) ListByAuthorSince(ctx context.Context, authorID uuid.UUID, since time.Time) ([]models.RevenueEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+revenueEventColumns+` FROM revenue_events
		WHERE author_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at DESC
	`, authorID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRevenueEvents(rows)
}

func (r *RevenueEventRepository) ListClaimable(ctx context.Context, authorID uuid.UUID, from, to time.Time, settlementID uuid.UUID) ([]models.RevenueEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+revenueEventColumns+` FROM revenue_events
		WHERE author_id = $1
		  AND occurred_at >= $2 AND occurred_at < $3
		  AND review_status = $4
		  AND (settlement_id IS NULL OR settlement_id = $5)
		ORDER BY occurred_at
	`, authorID, from, to, models.ReviewAccepted, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRevenueEvents(rows)
}

// ClaimForSettlement stamps the settlement onto the listed events only. A
// period predicate here would also grab events accepted between enumeration
// and claim, claiming money the settlement totals never counted.
func (r *RevenueEventRepository) ClaimForSettlement(ctx context.Context, eventIDs []uuid.UUID, settlementID uuid.UUID) (int64, error) {
	ids := make([]string, len(eventIDs))
	for i, id := range eventIDs {
		ids[i] = id.String()
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE revenue_events
		SET settlement_id = $1
		WHERE id = ANY($2) AND settlement_id IS NULL
	`, settlementID, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *RevenueEventRepository) DistinctUnclaimedAuthors(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT author_id FROM revenue_events
		WHERE occurred_at >= $1 AND occurred_at < $2
		  AND review_status = $3
		  AND settlement_id IS NULL
	`, from, to, models.ReviewAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		authors = append(authors, id)
	}
	return authors, rows.Err()
}

func (r *RevenueEventRepository) UpdateReviewStatus(ctx context.Context, id uuid.UUID, from, to models.ReviewStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE revenue_events
		SET review_status = $1
		WHERE id = $2 AND review_status = $3 AND settlement_id IS NULL
	`, to, id, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *RevenueEventRepository) LifetimeCreatorTotal(ctx context.Context, authorID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(creator_amount), 0) FROM revenue_events
		WHERE author_id = $1 AND review_status = $2
	`, authorID, models.ReviewAccepted).Scan(&total)
	return total, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRevenueEvent(row rowScanner) (*models.RevenueEvent, error) {
	var ev models.RevenueEvent
	var articleID, settlementID uuid.NullUUID
	err := row.Scan(
		&ev.ID, &ev.AuthorID, &articleID, &ev.Channel, &ev.GrossAmount, &ev.FeeRate,
		&ev.PlatformFee, &ev.CreatorAmount, &ev.ReviewStatus, &ev.OccurredAt,
		&settlementID, &ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if articleID.Valid {
		ev.ArticleID = &articleID.UUID
	}
	if settlementID.Valid {
		ev.SettlementID = &settlementID.UUID
	}
	return &ev, nil
}

func collectRevenueEvents(rows *sql.Rows) ([]models.RevenueEvent, error) {
	var events []models.RevenueEvent
	for rows.Next() {
		ev, err := scanRevenueEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func uuidOrNil(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}
