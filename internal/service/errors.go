package service

import "errors"

// FailureKind lets the scheduler and callers decide retry-vs-skip without
// inspecting message strings.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	// FailureValidation: rejected synchronously, never retried automatically.
	FailureValidation
	// FailureConflict: a correctness guard fired; retrying with the same
	// parameters will never succeed.
	FailureConflict
	// FailureTransient: infrastructure fault; safe to retry later because
	// every money-affecting write is conditional.
	FailureTransient
)

// Validation failures.
var (
	ErrInvalidChannel          = errors.New("invalid revenue channel")
	ErrNegativeAmount          = errors.New("gross amount must not be negative")
	ErrInvalidMethod           = errors.New("invalid withdrawal method")
	ErrBelowMinimumAmount      = errors.New("amount below method minimum")
	ErrExceedsMaximumAmount    = errors.New("amount exceeds method maximum")
	ErrInsufficientBalance     = errors.New("insufficient withdrawable balance")
	ErrInvalidPayoutDetails    = errors.New("incomplete payout details for method")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
)

// Conflict failures.
var (
	ErrAlreadySettled         = errors.New("settlement already completed for this period")
	ErrInvalidTransition      = errors.New("status transition not allowed")
	ErrCancellationNotAllowed = errors.New("withdrawal can no longer be cancelled")
)

// Data failures surfaced by the aggregator.
var (
	ErrInsufficientData = errors.New("no settleable revenue events for period")
	ErrCalculation      = errors.New("revenue calculation failed")
)

// transientError wraps infrastructure faults so Classify can tell them apart
// from the permanent failures above.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Classify maps an error onto its failure class.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureUnknown
	case errors.Is(err, ErrInvalidChannel),
		errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrInvalidMethod),
		errors.Is(err, ErrBelowMinimumAmount),
		errors.Is(err, ErrExceedsMaximumAmount),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInvalidPayoutDetails),
		errors.Is(err, ErrRejectionReasonRequired),
		errors.Is(err, ErrInsufficientData),
		errors.Is(err, ErrCalculation):
		return FailureValidation
	case errors.Is(err, ErrAlreadySettled),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrCancellationNotAllowed):
		return FailureConflict
	default:
		var te *transientError
		if errors.As(err, &te) {
			return FailureTransient
		}
		return FailureUnknown
	}
}
