package models

import (
	"time"

	"github.com/google/uuid"
)

// ReadingSession is one reader's pass over one article, reported by the
// analytics collaborator. Sessions feed paid-reading revenue only when they
// pass the genuineness rule in the fraud package.
type ReadingSession struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	ArticleID        uuid.UUID
	AuthorID         uuid.UUID
	StartedAt        time.Time
	EndedAt          *time.Time
	DurationSeconds  float64
	ScrollPercentage float64
	InteractionCount int
	DeviceType       string
	Platform         string
}

// Notification is the outbound payload handed to the notification dispatcher.
// Delivery is best-effort and never affects the originating operation.
type Notification struct {
	Type            string            `json:"type"`
	RecipientUserID uuid.UUID         `json:"recipient_user_id"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

const (
	NotificationSettlementCompleted = "settlement_completed"
	NotificationWithdrawalCompleted = "withdrawal_completed"
	NotificationWithdrawalRejected  = "withdrawal_rejected"
	NotificationPayoutEligible      = "payout_eligible"
	NotificationRevenueMilestone    = "revenue_milestone"
)
