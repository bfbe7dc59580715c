package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/interfaces"
	"github.com/creatorhub/settlement-engine/internal/models"
	"github.com/creatorhub/settlement-engine/internal/telemetry"
)

const withdrawalLockTTL = 10 * time.Second

// WithdrawalManager owns withdrawal requests and their state transitions.
// Request creation is serialized per user with a distributed lock so two
// concurrent requests cannot both pass the balance check.
type WithdrawalManager struct {
	withdrawals interfaces.WithdrawalRepository
	settlements interfaces.SettlementRepository
	locker      interfaces.Locker
	notifier    interfaces.Notifier
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewWithdrawalManager(
	withdrawals interfaces.WithdrawalRepository,
	settlements interfaces.SettlementRepository,
	locker interfaces.Locker,
	notifier interfaces.Notifier,
	logger *zap.Logger,
) *WithdrawalManager {
	return &WithdrawalManager{
		withdrawals: withdrawals,
		settlements: settlements,
		locker:      locker,
		notifier:    notifier,
		validate:    validator.New(),
		logger:      logger,
	}
}

// RequestWithdrawal validates and creates a payout request. Validation order
// is fixed: method minimum, method maximum, balance, payout details.
func (m *WithdrawalManager) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount int64, method models.WithdrawalMethod, details models.PayoutDetails) (*models.WithdrawalRequest, error) {
	ctx, span := tracer.Start(ctx, "withdrawal.request")
	defer span.End()

	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	if amount < method.MinimumAmount() {
		telemetry.WithdrawalsProcessed.WithLabelValues("below_minimum").Inc()
		return nil, fmt.Errorf("%w: %d < %d", ErrBelowMinimumAmount, amount, method.MinimumAmount())
	}
	if amount > method.MaximumAmount() {
		telemetry.WithdrawalsProcessed.WithLabelValues("above_maximum").Inc()
		return nil, fmt.Errorf("%w: %d > %d for %s", ErrExceedsMaximumAmount, amount, method.MaximumAmount(), method)
	}

	lock, err := m.locker.Obtain(ctx, "withdrawal:user:"+userID.String(), withdrawalLockTTL)
	if err != nil {
		if errors.Is(err, interfaces.ErrLockHeld) {
			return nil, transient(fmt.Errorf("concurrent withdrawal in progress for user %s: %w", userID, err))
		}
		return nil, transient(fmt.Errorf("obtain withdrawal lock: %w", err))
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			m.logger.Warn("Failed to release withdrawal lock",
				zap.String("user_id", userID.String()), zap.Error(err))
		}
	}()

	balance, err := m.WithdrawableBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount > balance {
		telemetry.WithdrawalsProcessed.WithLabelValues("insufficient_balance").Inc()
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientBalance, amount, balance)
	}

	details.Method = method
	if err := m.validate.Struct(details); err != nil {
		telemetry.WithdrawalsProcessed.WithLabelValues("invalid_details").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayoutDetails, err)
	}

	now := time.Now().UTC()
	request := &models.WithdrawalRequest{
		ID:            uuid.New(),
		UserID:        userID,
		RequestAmount: amount,
		Fee:           method.Fee(),
		ActualAmount:  amount - method.Fee(),
		Method:        method,
		Status:        models.WithdrawalPending,
		PayoutDetails: details,
		RequestedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := m.withdrawals.Insert(ctx, request); err != nil {
		return nil, transient(fmt.Errorf("insert withdrawal request: %w", err))
	}

	telemetry.WithdrawalsProcessed.WithLabelValues("requested").Inc()
	m.logger.Info("Withdrawal requested",
		zap.String("request_id", request.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("method", string(method)),
		zap.Int64("request_amount", amount),
		zap.Int64("actual_amount", request.ActualAmount),
	)

	return request, nil
}

// Get loads one withdrawal request.
func (m *WithdrawalManager) Get(ctx context.Context, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	request, err := m.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return nil, transient(fmt.Errorf("load withdrawal request: %w", err))
	}
	return request, nil
}

// WithdrawableBalance is settled creator earnings minus everything held by
// withdrawals that are not terminally released.
func (m *WithdrawalManager) WithdrawableBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	settled, err := m.settlements.SumCreatorTotals(ctx, userID,
		[]models.SettlementStatus{models.SettlementCompleted, models.SettlementPaid})
	if err != nil {
		return 0, transient(fmt.Errorf("sum settled totals: %w", err))
	}
	held, err := m.withdrawals.SumHeldAmounts(ctx, userID)
	if err != nil {
		return 0, transient(fmt.Errorf("sum held amounts: %w", err))
	}
	balance := settled - held
	if balance < 0 {
		balance = 0
	}
	return balance, nil
}

// Approve moves a pending request to approved.
func (m *WithdrawalManager) Approve(ctx context.Context, requestID uuid.UUID) error {
	return m.transition(ctx, requestID, models.WithdrawalPending, models.WithdrawalApproved)
}

// StartProcessing hands an approved request to the payout pipeline. From here
// on the request can no longer be cancelled.
func (m *WithdrawalManager) StartProcessing(ctx context.Context, requestID uuid.UUID) error {
	return m.transition(ctx, requestID, models.WithdrawalApproved, models.WithdrawalProcessing)
}

// Complete records a confirmed payout and notifies the user.
func (m *WithdrawalManager) Complete(ctx context.Context, requestID uuid.UUID) error {
	if err := m.transition(ctx, requestID, models.WithdrawalProcessing, models.WithdrawalCompleted); err != nil {
		return err
	}
	telemetry.WithdrawalsProcessed.WithLabelValues("completed").Inc()

	request, err := m.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		m.logger.Warn("Completed withdrawal could not be reloaded for notification",
			zap.String("request_id", requestID.String()), zap.Error(err))
		return nil
	}
	m.publish(ctx, models.Notification{
		Type:            models.NotificationWithdrawalCompleted,
		RecipientUserID: request.UserID,
		Title:           "Withdrawal completed",
		Body:            fmt.Sprintf("Your withdrawal of %d has been paid out.", request.ActualAmount),
		Metadata: map[string]string{
			"request_id":    request.ID.String(),
			"actual_amount": fmt.Sprintf("%d", request.ActualAmount),
		},
	})
	return nil
}

// MarkFailed records a payout failure, releasing the held amount.
func (m *WithdrawalManager) MarkFailed(ctx context.Context, requestID uuid.UUID) error {
	if err := m.transition(ctx, requestID, models.WithdrawalProcessing, models.WithdrawalFailed); err != nil {
		return err
	}
	telemetry.WithdrawalsProcessed.WithLabelValues("failed").Inc()
	return nil
}

// Reject declines a pending or approved request with a mandatory reason.
func (m *WithdrawalManager) Reject(ctx context.Context, requestID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrRejectionReasonRequired
	}

	request, err := m.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return transient(fmt.Errorf("load withdrawal request: %w", err))
	}
	if !request.Status.CanTransitionTo(models.WithdrawalRejected) {
		return fmt.Errorf("%w: %s -> rejected", ErrInvalidTransition, request.Status)
	}

	rows, err := m.withdrawals.MarkRejected(ctx, requestID, request.Status, reason, time.Now().UTC())
	if err != nil {
		return transient(fmt.Errorf("reject withdrawal: %w", err))
	}
	if rows == 0 {
		return fmt.Errorf("%w: request %s changed concurrently", ErrInvalidTransition, requestID)
	}

	telemetry.WithdrawalsProcessed.WithLabelValues("rejected").Inc()
	m.logger.Info("Withdrawal rejected",
		zap.String("request_id", requestID.String()),
		zap.String("reason", reason),
	)

	m.publish(ctx, models.Notification{
		Type:            models.NotificationWithdrawalRejected,
		RecipientUserID: request.UserID,
		Title:           "Withdrawal rejected",
		Body:            fmt.Sprintf("Your withdrawal request was rejected: %s", reason),
		Metadata:        map[string]string{"request_id": requestID.String()},
	})
	return nil
}

// Cancel is the user-initiated abort, allowed only before processing starts.
func (m *WithdrawalManager) Cancel(ctx context.Context, requestID uuid.UUID) error {
	request, err := m.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return transient(fmt.Errorf("load withdrawal request: %w", err))
	}
	if !request.Status.CanCancel() {
		return fmt.Errorf("%w: request is %s", ErrCancellationNotAllowed, request.Status)
	}

	rows, err := m.withdrawals.TransitionStatus(ctx, requestID, request.Status, models.WithdrawalCancelled, time.Now().UTC())
	if err != nil {
		return transient(fmt.Errorf("cancel withdrawal: %w", err))
	}
	if rows == 0 {
		return fmt.Errorf("%w: request %s changed concurrently", ErrCancellationNotAllowed, requestID)
	}

	telemetry.WithdrawalsProcessed.WithLabelValues("cancelled").Inc()
	m.logger.Info("Withdrawal cancelled", zap.String("request_id", requestID.String()))
	return nil
}

// Statistics summarizes the user's withdrawal history.
func (m *WithdrawalManager) Statistics(ctx context.Context, userID uuid.UUID) (*models.WithdrawalStatistics, error) {
	requests, err := m.withdrawals.ListByUser(ctx, userID, 500)
	if err != nil {
		return nil, transient(fmt.Errorf("list withdrawals: %w", err))
	}

	stats := &models.WithdrawalStatistics{UserID: userID}
	for i := range requests {
		w := &requests[i]
		stats.TotalRequests++
		stats.TotalRequestedAmount += w.RequestAmount
		switch w.Status {
		case models.WithdrawalCompleted:
			stats.CompletedRequests++
			stats.TotalPaidAmount += w.ActualAmount
			stats.TotalFees += w.Fee
		case models.WithdrawalFailed, models.WithdrawalRejected, models.WithdrawalCancelled:
			stats.FailedRequests++
		default:
			stats.PendingRequests++
		}
		if stats.LastRequestedAt == nil || w.RequestedAt.After(*stats.LastRequestedAt) {
			at := w.RequestedAt
			stats.LastRequestedAt = &at
		}
	}
	return stats, nil
}

func (m *WithdrawalManager) transition(ctx context.Context, requestID uuid.UUID, from, to models.WithdrawalStatus) error {
	rows, err := m.withdrawals.TransitionStatus(ctx, requestID, from, to, time.Now().UTC())
	if err != nil {
		return transient(fmt.Errorf("transition withdrawal %s: %w", requestID, err))
	}
	if rows == 0 {
		return fmt.Errorf("%w: request %s is not %s", ErrInvalidTransition, requestID, from)
	}
	m.logger.Info("Withdrawal state transition",
		zap.String("request_id", requestID.String()),
		zap.String("from_status", string(from)),
		zap.String("to_status", string(to)),
	)
	return nil
}

func (m *WithdrawalManager) publish(ctx context.Context, n models.Notification) {
	if err := m.notifier.Publish(ctx, n); err != nil {
		telemetry.NotificationFailures.Inc()
		m.logger.Warn("Failed to publish withdrawal notification",
			zap.String("type", n.Type), zap.Error(err))
	}
}
