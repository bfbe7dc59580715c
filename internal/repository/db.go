package repository

import "database/sql"

// InitDB creates the ledger tables. Settlement uniqueness per author-month and
// the partial index on unclaimed events back the engine's idempotency guards.
func InitDB(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS revenue_events (
			id UUID PRIMARY KEY,
			author_id UUID NOT NULL,
			article_id UUID,
			channel VARCHAR(32) NOT NULL,
			gross_amount BIGINT NOT NULL CHECK (gross_amount >= 0),
			fee_rate DOUBLE PRECISION NOT NULL,
			platform_fee BIGINT NOT NULL,
			creator_amount BIGINT NOT NULL,
			review_status VARCHAR(32) NOT NULL DEFAULT 'accepted',
			occurred_at TIMESTAMPTZ NOT NULL,
			settlement_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_revenue_events_author_occurred
			ON revenue_events(author_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_revenue_events_unclaimed
			ON revenue_events(occurred_at) WHERE settlement_id IS NULL`,
		`CREATE TABLE IF NOT EXISTS settlements (
			id UUID PRIMARY KEY,
			author_id UUID NOT NULL,
			settlement_year INT NOT NULL,
			settlement_month INT NOT NULL,
			gross_total BIGINT NOT NULL DEFAULT 0,
			platform_fee_total BIGINT NOT NULL DEFAULT 0,
			creator_total BIGINT NOT NULL DEFAULT 0,
			subscription_total BIGINT NOT NULL DEFAULT 0,
			donation_total BIGINT NOT NULL DEFAULT 0,
			paid_reading_total BIGINT NOT NULL DEFAULT 0,
			bonus_total BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(32) NOT NULL,
			processed_at TIMESTAMPTZ,
			paid_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_settlements_author_period UNIQUE (author_id, settlement_year, settlement_month)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_author ON settlements(author_id)`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			request_amount BIGINT NOT NULL,
			fee BIGINT NOT NULL,
			actual_amount BIGINT NOT NULL,
			method VARCHAR(32) NOT NULL,
			status VARCHAR(32) NOT NULL,
			payout_details JSONB NOT NULL,
			requested_at TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			rejected_at TIMESTAMPTZ,
			rejection_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_user ON withdrawal_requests(user_id)`,
		`CREATE TABLE IF NOT EXISTS sweep_watermarks (
			period VARCHAR(7) PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			authors_total INT NOT NULL DEFAULT 0,
			authors_settled INT NOT NULL DEFAULT 0,
			authors_failed INT NOT NULL DEFAULT 0
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
