package models

import (
	"time"

	"github.com/google/uuid"
)

type WithdrawalMethod string

const (
	MethodBankTransfer   WithdrawalMethod = "bank_transfer"
	MethodDigitalWallet  WithdrawalMethod = "digital_wallet"
	MethodCryptocurrency WithdrawalMethod = "cryptocurrency"
)

func (m WithdrawalMethod) Valid() bool {
	switch m {
	case MethodBankTransfer, MethodDigitalWallet, MethodCryptocurrency:
		return true
	}
	return false
}

// MinimumAmount is uniform across methods: 100,000 minor units.
func (m WithdrawalMethod) MinimumAmount() int64 {
	return 100_000
}

func (m WithdrawalMethod) MaximumAmount() int64 {
	switch m {
	case MethodBankTransfer:
		return 10_000_000
	case MethodDigitalWallet:
		return 5_000_000
	case MethodCryptocurrency:
		return 1_000_000
	}
	return 0
}

// Fee is the flat per-method fee in minor units, subtracted from the
// requested amount to produce the actual payout amount.
func (m WithdrawalMethod) Fee() int64 {
	switch m {
	case MethodBankTransfer:
		return 1_500
	case MethodDigitalWallet:
		return 1_000
	case MethodCryptocurrency:
		return 500
	}
	return 0
}

type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalApproved   WithdrawalStatus = "approved"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalRejected   WithdrawalStatus = "rejected"
	WithdrawalCancelled  WithdrawalStatus = "cancelled"
	WithdrawalFailed     WithdrawalStatus = "failed"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:    {WithdrawalApproved, WithdrawalRejected, WithdrawalCancelled},
	WithdrawalApproved:   {WithdrawalProcessing, WithdrawalRejected, WithdrawalCancelled},
	WithdrawalProcessing: {WithdrawalCompleted, WithdrawalFailed},
	WithdrawalCompleted:  {},
	WithdrawalRejected:   {},
	WithdrawalCancelled:  {},
	WithdrawalFailed:     {},
}

func (s WithdrawalStatus) CanTransitionTo(to WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanCancel reports whether a user-initiated cancellation is still permitted.
// Once processing has started the request must run to completion or failure.
func (s WithdrawalStatus) CanCancel() bool {
	return s == WithdrawalPending || s == WithdrawalApproved
}

// Terminal statuses whose amounts no longer count against the withdrawable balance.
func (s WithdrawalStatus) ReleasesBalance() bool {
	return s == WithdrawalRejected || s == WithdrawalCancelled || s == WithdrawalFailed
}

// PayoutDetails carries the method-specific destination for a withdrawal.
// Validated with go-playground/validator: each method requires its own fields.
type PayoutDetails struct {
	Method WithdrawalMethod `json:"method" validate:"required"`

	BankCode      string `json:"bank_code,omitempty" validate:"required_if=Method bank_transfer"`
	BankAccount   string `json:"bank_account,omitempty" validate:"required_if=Method bank_transfer"`
	AccountHolder string `json:"account_holder,omitempty" validate:"required_if=Method bank_transfer"`

	WalletProvider string `json:"wallet_provider,omitempty" validate:"required_if=Method digital_wallet"`
	WalletAccount  string `json:"wallet_account,omitempty" validate:"required_if=Method digital_wallet"`

	CryptoAddress string `json:"crypto_address,omitempty" validate:"required_if=Method cryptocurrency"`
	CryptoNetwork string `json:"crypto_network,omitempty" validate:"required_if=Method cryptocurrency"`
}

// WithdrawalRequest is a creator payout request in integer minor units.
// ActualAmount = RequestAmount - Fee, fixed at creation time.
type WithdrawalRequest struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	RequestAmount   int64
	Fee             int64
	ActualAmount    int64
	Method          WithdrawalMethod
	Status          WithdrawalStatus
	PayoutDetails   PayoutDetails
	RequestedAt     time.Time
	ProcessedAt     *time.Time
	CompletedAt     *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WithdrawalStatistics summarizes a user's withdrawal history.
type WithdrawalStatistics struct {
	UserID               uuid.UUID
	TotalRequests        int
	CompletedRequests    int
	FailedRequests       int
	PendingRequests      int
	TotalRequestedAmount int64
	TotalPaidAmount      int64
	TotalFees            int64
	LastRequestedAt      *time.Time
}
