package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/creatorhub/settlement-engine/internal/models"
)

type SettlementRepository struct {
	db *sql.DB
}

func NewSettlementRepository(db *sql.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

const settlementColumns = `id, author_id, settlement_year, settlement_month, gross_total,
	platform_fee_total, creator_total, subscription_total, donation_total,
	paid_reading_total, bonus_total, status, processed_at, paid_at, created_at, updated_at`

func (r *SettlementRepository) GetByPeriod(ctx context.Context, authorID uuid.UUID, year int, month time.Month) (*models.Settlement, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+settlementColumns+` FROM settlements
		WHERE author_id = $1 AND settlement_year = $2 AND settlement_month = $3
	`, authorID, year, int(month))
	s, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SettlementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+settlementColumns+` FROM settlements WHERE id = $1
	`, id)
	return scanSettlement(row)
}

// Upsert writes the settlement totals. The unique constraint on
// (author_id, settlement_year, settlement_month) makes concurrent first-time
// inserts collapse into one row, and the status guard keeps closed settlements
// immutable even if a stale retry reaches this far.
func (r *SettlementRepository) Upsert(ctx context.Context, s *models.Settlement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settlements (`+settlementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (author_id, settlement_year, settlement_month) DO UPDATE SET
			gross_total = EXCLUDED.gross_total,
			platform_fee_total = EXCLUDED.platform_fee_total,
			creator_total = EXCLUDED.creator_total,
			subscription_total = EXCLUDED.subscription_total,
			donation_total = EXCLUDED.donation_total,
			paid_reading_total = EXCLUDED.paid_reading_total,
			bonus_total = EXCLUDED.bonus_total,
			status = EXCLUDED.status,
			processed_at = EXCLUDED.processed_at,
			updated_at = NOW()
		WHERE settlements.status IN ($17, $18)
	`,
		s.ID, s.AuthorID, s.Year, int(s.Month), s.GrossTotal,
		s.PlatformFeeTotal, s.CreatorTotal, s.SubscriptionTotal, s.DonationTotal,
		s.PaidReadingTotal, s.BonusTotal, s.Status, s.ProcessedAt, s.PaidAt,
		s.CreatedAt, s.UpdatedAt,
		models.SettlementPending, models.SettlementProcessing,
	)
	return err
}

func (r *SettlementRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.SettlementStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE settlements
		SET status = $1,
			processed_at = CASE WHEN $1 = 'completed' THEN COALESCE(processed_at, NOW()) ELSE processed_at END,
			paid_at = CASE WHEN $1 = 'paid' THEN NOW() ELSE paid_at END,
			updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SettlementRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit int) ([]models.Settlement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+settlementColumns+` FROM settlements
		WHERE author_id = $1
		ORDER BY settlement_year DESC, settlement_month DESC
		LIMIT $2
	`, authorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, *s)
	}
	return settlements, rows.Err()
}

func (r *SettlementRepository) SumCreatorTotals(ctx context.Context, authorID uuid.UUID, statuses []models.SettlementStatus) (int64, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(creator_total), 0) FROM settlements
		WHERE author_id = $1 AND status = ANY($2)
	`, authorID, pq.Array(names)).Scan(&total)
	return total, err
}

func scanSettlement(row rowScanner) (*models.Settlement, error) {
	var s models.Settlement
	var month int
	var processedAt, paidAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.AuthorID, &s.Year, &month, &s.GrossTotal,
		&s.PlatformFeeTotal, &s.CreatorTotal, &s.SubscriptionTotal, &s.DonationTotal,
		&s.PaidReadingTotal, &s.BonusTotal, &s.Status, &processedAt, &paidAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Month = time.Month(month)
	if processedAt.Valid {
		s.ProcessedAt = &processedAt.Time
	}
	if paidAt.Valid {
		s.PaidAt = &paidAt.Time
	}
	return &s, nil
}
