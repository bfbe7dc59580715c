package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/creatorhub/settlement-engine/internal/models"
)

// ErrLockHeld is returned by Locker.Obtain when another holder owns the key.
var ErrLockHeld = errors.New("lock already held")

// RevenueEventRepository is the ledger access for raw revenue events.
type RevenueEventRepository interface {
	Insert(ctx context.Context, event *models.RevenueEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RevenueEvent, error)

	// ListByAuthorSince returns the author's events with occurredAt >= since,
	// newest first. Used to build the fraud-scoring window.
	ListByAuthorSince(ctx context.Context, authorID uuid.UUID, since time.Time) ([]models.RevenueEvent, error)

	// ListClaimable returns accepted events in [from, to) that are either
	// unclaimed or already claimed by settlementID, so a retried settlement
	// run sees the same event set it partially claimed before.
	ListClaimable(ctx context.Context, authorID uuid.UUID, from, to time.Time, settlementID uuid.UUID) ([]models.RevenueEvent, error)

	// ClaimForSettlement stamps settlementID on exactly the given events,
	// skipping any already claimed. Claiming by explicit ID keeps the claimed
	// set identical to the set the caller summed; an event accepted after the
	// enumeration stays unclaimed for a later run. Returns the number of
	// newly claimed events.
	ClaimForSettlement(ctx context.Context, eventIDs []uuid.UUID, settlementID uuid.UUID) (int64, error)

	// DistinctUnclaimedAuthors lists authors with at least one accepted,
	// unclaimed event in [from, to).
	DistinctUnclaimedAuthors(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)

	// UpdateReviewStatus advances an event's fraud review verdict. The update
	// is conditional on the current status so a claim-then-review race cannot
	// silently flip an already settled event.
	UpdateReviewStatus(ctx context.Context, id uuid.UUID, from, to models.ReviewStatus) (int64, error)

	// LifetimeCreatorTotal sums creator amounts of all accepted events for
	// milestone tracking.
	LifetimeCreatorTotal(ctx context.Context, authorID uuid.UUID) (int64, error)
}

// SettlementRepository persists monthly settlements. The aggregator is the
// only writer.
type SettlementRepository interface {
	// GetByPeriod returns nil, nil when no settlement exists yet.
	GetByPeriod(ctx context.Context, authorID uuid.UUID, year int, month time.Month) (*models.Settlement, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error)

	// Upsert inserts the settlement or, when the (author, year, month) row
	// already exists in a non-closed status, replaces its totals. A closed
	// row is never touched.
	Upsert(ctx context.Context, s *models.Settlement) error

	// TransitionStatus performs a compare-and-swap status change and reports
	// the number of rows affected (0 means the precondition failed).
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.SettlementStatus) (int64, error)

	ListByAuthor(ctx context.Context, authorID uuid.UUID, limit int) ([]models.Settlement, error)

	// SumCreatorTotals sums creatorTotal across the author's settlements in
	// the given statuses.
	SumCreatorTotals(ctx context.Context, authorID uuid.UUID, statuses []models.SettlementStatus) (int64, error)
}

// WithdrawalRepository persists withdrawal requests. The withdrawal manager
// is the only writer.
type WithdrawalRepository interface {
	Insert(ctx context.Context, w *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)

	// TransitionStatus performs a compare-and-swap status change, stamping
	// the timestamp column that belongs to the target status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.WithdrawalStatus, at time.Time) (int64, error)

	// MarkRejected is TransitionStatus plus the mandatory rejection reason.
	MarkRejected(ctx context.Context, id uuid.UUID, from models.WithdrawalStatus, reason string, at time.Time) (int64, error)

	// SumHeldAmounts sums actualAmount of the user's requests that still
	// count against the withdrawable balance (not rejected/cancelled/failed).
	SumHeldAmounts(ctx context.Context, userID uuid.UUID) (int64, error)

	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WithdrawalRequest, error)
}

// SweepWatermarkRepository records per-period sweep outcomes.
type SweepWatermarkRepository interface {
	Get(ctx context.Context, period string) (*models.SweepWatermark, error)
	Record(ctx context.Context, w *models.SweepWatermark) error
}

// Notifier hands a payload to the notification dispatcher. Implementations
// must be safe for fire-and-forget use; callers log and swallow errors.
type Notifier interface {
	Publish(ctx context.Context, n models.Notification) error
}

// Lock is a held distributed lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializes money-affecting sections across process instances.
type Locker interface {
	// Obtain returns ErrLockHeld (wrapped) when another holder owns the key.
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}
