package models

import (
	"time"

	"github.com/google/uuid"
)

type SettlementStatus string

const (
	SettlementPending    SettlementStatus = "pending"
	SettlementProcessing SettlementStatus = "processing"
	SettlementCompleted  SettlementStatus = "completed"
	SettlementPaid       SettlementStatus = "paid"
	SettlementFailed     SettlementStatus = "failed"
	SettlementCancelled  SettlementStatus = "cancelled"
)

var settlementTransitions = map[SettlementStatus][]SettlementStatus{
	SettlementPending:    {SettlementProcessing, SettlementFailed, SettlementCancelled},
	SettlementProcessing: {SettlementCompleted, SettlementFailed, SettlementCancelled},
	SettlementCompleted:  {SettlementPaid},
	SettlementPaid:       {},
	SettlementFailed:     {},
	SettlementCancelled:  {},
}

func (s SettlementStatus) CanTransitionTo(to SettlementStatus) bool {
	for _, allowed := range settlementTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Closed reports whether the settlement is finalized and must never be recomputed.
func (s SettlementStatus) Closed() bool {
	return s == SettlementCompleted || s == SettlementPaid
}

// Settlement is the per-author, per-calendar-month rollup of creator revenue.
// Exactly one settlement may exist per (AuthorID, Year, Month).
type Settlement struct {
	ID               uuid.UUID
	AuthorID         uuid.UUID
	Year             int
	Month            time.Month
	GrossTotal       int64
	PlatformFeeTotal int64
	CreatorTotal     int64

	// Per-channel creator-amount breakdown.
	SubscriptionTotal int64
	DonationTotal     int64
	PaidReadingTotal  int64
	BonusTotal        int64

	Status      SettlementStatus
	ProcessedAt *time.Time
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MinimumWithdrawalThreshold is the creator total, in minor units, at which a
// settlement becomes eligible for payout.
const MinimumWithdrawalThreshold int64 = 100_000

func (s *Settlement) EligibleForWithdrawal() bool {
	return s.CreatorTotal >= MinimumWithdrawalThreshold
}

// Period returns the settlement month formatted as "2006-01".
func (s *Settlement) Period() string {
	return time.Date(s.Year, s.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// SettlementSummary aggregates an author's settlement history.
type SettlementSummary struct {
	AuthorID               uuid.UUID
	TotalEarnings          int64
	AverageMonthlyEarnings int64
	SubscriptionTotal      int64
	DonationTotal          int64
	PaidReadingTotal       int64
	BonusTotal             int64
	MonthCount             int
	LastSettledAt          *time.Time
}

// SweepWatermark records the outcome of a monthly sweep for one period so
// scheduler restarts are stateless.
type SweepWatermark struct {
	Period         string // "2006-01"
	StartedAt      time.Time
	CompletedAt    *time.Time
	AuthorsTotal   int
	AuthorsSettled int
	AuthorsFailed  int
}
