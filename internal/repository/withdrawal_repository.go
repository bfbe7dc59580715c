package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/creatorhub/settlement-engine/internal/models"
)

type WithdrawalRepository struct {
	db *sql.DB
}

func NewWithdrawalRepository(db *sql.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

const withdrawalColumns = `id, user_id, request_amount, fee, actual_amount, method, status,
	payout_details, requested_at, processed_at, completed_at, rejected_at,
	rejection_reason, created_at, updated_at`

func (r *WithdrawalRepository) Insert(ctx context.Context, w *models.WithdrawalRequest) error {
	details, err := json.Marshal(w.PayoutDetails)
	if err != nil {
		return fmt.Errorf("marshal payout details: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO withdrawal_requests (`+withdrawalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		w.ID, w.UserID, w.RequestAmount, w.Fee, w.ActualAmount, w.Method, w.Status,
		details, w.RequestedAt, w.ProcessedAt, w.CompletedAt, w.RejectedAt,
		w.RejectionReason, w.CreatedAt, w.UpdatedAt,
	)
	return err
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1
	`, id)
	return scanWithdrawal(row)
}

// TransitionStatus is the compare-and-swap on withdrawal status. The target
// status decides which timestamp column gets stamped.
func (r *WithdrawalRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.WithdrawalStatus, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET status = $1,
			processed_at = CASE WHEN $1 = 'processing' THEN $2 ELSE processed_at END,
			completed_at = CASE WHEN $1 = 'completed' THEN $2 ELSE completed_at END,
			updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, to, at, id, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *WithdrawalRepository) MarkRejected(ctx context.Context, id uuid.UUID, from models.WithdrawalStatus, reason string, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET status = $1, rejected_at = $2, rejection_reason = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`, models.WithdrawalRejected, at, reason, id, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *WithdrawalRepository) SumHeldAmounts(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(actual_amount), 0) FROM withdrawal_requests
		WHERE user_id = $1 AND status NOT IN ($2, $3, $4)
	`, userID, models.WithdrawalRejected, models.WithdrawalCancelled, models.WithdrawalFailed).Scan(&total)
	return total, err
}

func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WithdrawalRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY requested_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *w)
	}
	return requests, rows.Err()
}

func scanWithdrawal(row rowScanner) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	var details []byte
	var processedAt, completedAt, rejectedAt sql.NullTime
	var rejectionReason sql.NullString
	err := row.Scan(
		&w.ID, &w.UserID, &w.RequestAmount, &w.Fee, &w.ActualAmount, &w.Method, &w.Status,
		&details, &w.RequestedAt, &processedAt, &completedAt, &rejectedAt,
		&rejectionReason, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &w.PayoutDetails); err != nil {
		return nil, fmt.Errorf("unmarshal payout details: %w", err)
	}
	if processedAt.Valid {
		w.ProcessedAt = &processedAt.Time
	}
	if completedAt.Valid {
		w.CompletedAt = &completedAt.Time
	}
	if rejectedAt.Valid {
		w.RejectedAt = &rejectedAt.Time
	}
	if rejectionReason.Valid {
		w.RejectionReason = &rejectionReason.String
	}
	return &w, nil
}
