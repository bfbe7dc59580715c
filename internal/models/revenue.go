package models

import (
	"time"

	"github.com/google/uuid"
)

type RevenueChannel string

const (
	ChannelSubscription RevenueChannel = "subscription"
	ChannelDonation     RevenueChannel = "donation"
	ChannelPaidReading  RevenueChannel = "paid_reading"
	ChannelBonus        RevenueChannel = "bonus"
)

func (c RevenueChannel) Valid() bool {
	switch c {
	case ChannelSubscription, ChannelDonation, ChannelPaidReading, ChannelBonus:
		return true
	}
	return false
}

// ReviewStatus is the fraud-screening verdict attached to a revenue event.
// Only accepted events are ever aggregated into a settlement.
type ReviewStatus string

const (
	ReviewAccepted     ReviewStatus = "accepted"
	ReviewManualReview ReviewStatus = "manual_review"
	ReviewRejected     ReviewStatus = "rejected"
)

// RevenueEvent is a single monetary event in integer minor units.
// Immutable once created except for SettlementID (stamped exactly once on claim)
// and ReviewStatus (advanced by manual review).
// Invariant: PlatformFee + CreatorAmount == GrossAmount.
type RevenueEvent struct {
	ID            uuid.UUID
	AuthorID      uuid.UUID
	ArticleID     *uuid.UUID
	Channel       RevenueChannel
	GrossAmount   int64
	FeeRate       float64
	PlatformFee   int64
	CreatorAmount int64
	ReviewStatus  ReviewStatus
	OccurredAt    time.Time
	SettlementID  *uuid.UUID
	CreatedAt     time.Time
}
