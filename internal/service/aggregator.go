package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/interfaces"
	"github.com/creatorhub/settlement-engine/internal/models"
	"github.com/creatorhub/settlement-engine/internal/telemetry"
)

// Aggregator owns settlement rows and their state transitions. Settling the
// same author-month is idempotent: closed settlements reject re-entry, and a
// retried run recounts exactly the events it already claimed plus any still
// unclaimed ones.
type Aggregator struct {
	events      interfaces.RevenueEventRepository
	settlements interfaces.SettlementRepository
	notifier    interfaces.Notifier
	logger      *zap.Logger
}

func NewAggregator(
	events interfaces.RevenueEventRepository,
	settlements interfaces.SettlementRepository,
	notifier interfaces.Notifier,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{events: events, settlements: settlements, notifier: notifier, logger: logger}
}

// Settle rolls up the author's accepted revenue events for one calendar month.
func (a *Aggregator) Settle(ctx context.Context, authorID uuid.UUID, year int, month time.Month) (*models.Settlement, error) {
	ctx, span := tracer.Start(ctx, "aggregator.settle")
	defer span.End()

	start := time.Now()
	defer func() { telemetry.SettleDuration.Observe(time.Since(start).Seconds()) }()

	existing, err := a.settlements.GetByPeriod(ctx, authorID, year, month)
	if err != nil {
		telemetry.SettlementsProcessed.WithLabelValues("error").Inc()
		return nil, transient(fmt.Errorf("load settlement: %w", err))
	}
	if existing != nil && existing.Status.Closed() {
		telemetry.SettlementsProcessed.WithLabelValues("already_settled").Inc()
		return nil, fmt.Errorf("%w: author %s, %04d-%02d", ErrAlreadySettled, authorID, year, int(month))
	}

	settlementID := uuid.New()
	createdAt := time.Now().UTC()
	if existing != nil {
		settlementID = existing.ID
		createdAt = existing.CreatedAt
	}

	from, to := monthRange(year, month)
	events, err := a.events.ListClaimable(ctx, authorID, from, to, settlementID)
	if err != nil {
		telemetry.SettlementsProcessed.WithLabelValues("error").Inc()
		return nil, transient(fmt.Errorf("load claimable events: %w", err))
	}
	if len(events) == 0 {
		telemetry.SettlementsProcessed.WithLabelValues("no_data").Inc()
		return nil, fmt.Errorf("%w: author %s, %04d-%02d", ErrInsufficientData, authorID, year, int(month))
	}

	settlement, err := buildSettlement(settlementID, authorID, year, month, createdAt, events)
	if err != nil {
		telemetry.SettlementsProcessed.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := a.settlements.Upsert(ctx, settlement); err != nil {
		telemetry.SettlementsProcessed.WithLabelValues("error").Inc()
		return nil, transient(fmt.Errorf("upsert settlement: %w", err))
	}

	// A concurrent first-time insert may have won the unique constraint; the
	// canonical row ID decides which settlement claims the events.
	canonical, err := a.settlements.GetByPeriod(ctx, authorID, year, month)
	if err != nil || canonical == nil {
		telemetry.SettlementsProcessed.WithLabelValues("error").Inc()
		return nil, transient(fmt.Errorf("reload settlement: %w", err))
	}
	if canonical.Status.Closed() {
		telemetry.SettlementsProcessed.WithLabelValues("already_settled").Inc()
		return nil, fmt.Errorf("%w: author %s, %04d-%02d", ErrAlreadySettled, authorID, year, int(month))
	}
	settlement.ID = canonical.ID

	// Claim exactly the events the totals were built from; anything accepted
	// since the enumeration stays unclaimed for a later run.
	eventIDs := make([]uuid.UUID, len(events))
	for i := range events {
		eventIDs[i] = events[i].ID
	}
	claimed, err := a.events.ClaimForSettlement(ctx, eventIDs, settlement.ID)
	if err != nil {
		telemetry.SettlementsProcessed.WithLabelValues("error").Inc()
		return nil, transient(fmt.Errorf("claim events: %w", err))
	}

	rows, err := a.settlements.TransitionStatus(ctx, settlement.ID, models.SettlementProcessing, models.SettlementCompleted)
	if err != nil {
		telemetry.SettlementsProcessed.WithLabelValues("error").Inc()
		return nil, transient(fmt.Errorf("complete settlement: %w", err))
	}
	if rows == 0 {
		telemetry.SettlementsProcessed.WithLabelValues("conflict").Inc()
		return nil, fmt.Errorf("%w: settlement %s not in processing", ErrInvalidTransition, settlement.ID)
	}
	settlement.Status = models.SettlementCompleted

	telemetry.SettlementsProcessed.WithLabelValues("completed").Inc()
	a.logger.Info("Settlement completed",
		zap.String("settlement_id", settlement.ID.String()),
		zap.String("author_id", authorID.String()),
		zap.String("period", settlement.Period()),
		zap.Int64("creator_total", settlement.CreatorTotal),
		zap.Int("events", len(events)),
		zap.Int64("newly_claimed", claimed),
	)

	a.notifyCompleted(ctx, settlement)

	return settlement, nil
}

// MarkPaid records the external payout confirmation for a completed settlement.
func (a *Aggregator) MarkPaid(ctx context.Context, settlementID uuid.UUID) error {
	rows, err := a.settlements.TransitionStatus(ctx, settlementID, models.SettlementCompleted, models.SettlementPaid)
	if err != nil {
		return transient(fmt.Errorf("mark settlement paid: %w", err))
	}
	if rows == 0 {
		return fmt.Errorf("%w: settlement %s is not completed", ErrInvalidTransition, settlementID)
	}
	a.logger.Info("Settlement marked paid", zap.String("settlement_id", settlementID.String()))
	return nil
}

// Summary aggregates the author's settlement history.
func (a *Aggregator) Summary(ctx context.Context, authorID uuid.UUID) (*models.SettlementSummary, error) {
	settlements, err := a.settlements.ListByAuthor(ctx, authorID, 120)
	if err != nil {
		return nil, transient(fmt.Errorf("list settlements: %w", err))
	}

	summary := &models.SettlementSummary{AuthorID: authorID}
	for i := range settlements {
		s := &settlements[i]
		summary.TotalEarnings += s.CreatorTotal
		summary.SubscriptionTotal += s.SubscriptionTotal
		summary.DonationTotal += s.DonationTotal
		summary.PaidReadingTotal += s.PaidReadingTotal
		summary.BonusTotal += s.BonusTotal
		summary.MonthCount++
		if s.ProcessedAt != nil && (summary.LastSettledAt == nil || s.ProcessedAt.After(*summary.LastSettledAt)) {
			summary.LastSettledAt = s.ProcessedAt
		}
	}
	if summary.MonthCount > 0 {
		summary.AverageMonthlyEarnings = summary.TotalEarnings / int64(summary.MonthCount)
	}
	return summary, nil
}

func buildSettlement(id, authorID uuid.UUID, year int, month time.Month, createdAt time.Time, events []models.RevenueEvent) (*models.Settlement, error) {
	now := time.Now().UTC()
	s := &models.Settlement{
		ID:          id,
		AuthorID:    authorID,
		Year:        year,
		Month:       month,
		Status:      models.SettlementProcessing,
		ProcessedAt: &now,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}

	for _, ev := range events {
		if ev.PlatformFee+ev.CreatorAmount != ev.GrossAmount {
			return nil, fmt.Errorf("%w: event %s violates amount conservation", ErrCalculation, ev.ID)
		}
		s.GrossTotal += ev.GrossAmount
		s.PlatformFeeTotal += ev.PlatformFee
		s.CreatorTotal += ev.CreatorAmount

		switch ev.Channel {
		case models.ChannelSubscription:
			s.SubscriptionTotal += ev.CreatorAmount
		case models.ChannelDonation:
			s.DonationTotal += ev.CreatorAmount
		case models.ChannelPaidReading:
			s.PaidReadingTotal += ev.CreatorAmount
		case models.ChannelBonus:
			s.BonusTotal += ev.CreatorAmount
		default:
			return nil, fmt.Errorf("%w: event %s has unknown channel %q", ErrCalculation, ev.ID, ev.Channel)
		}
	}
	return s, nil
}

func (a *Aggregator) notifyCompleted(ctx context.Context, s *models.Settlement) {
	notification := models.Notification{
		Type:            models.NotificationSettlementCompleted,
		RecipientUserID: s.AuthorID,
		Title:           "Monthly settlement completed",
		Body:            fmt.Sprintf("Your %s settlement is complete. Creator earnings: %d.", s.Period(), s.CreatorTotal),
		Metadata: map[string]string{
			"settlement_id": s.ID.String(),
			"period":        s.Period(),
			"creator_total": fmt.Sprintf("%d", s.CreatorTotal),
		},
	}
	if err := a.notifier.Publish(ctx, notification); err != nil {
		telemetry.NotificationFailures.Inc()
		a.logger.Warn("Failed to publish settlement notification",
			zap.String("settlement_id", s.ID.String()), zap.Error(err))
	}
}

// monthRange returns [first day of month, first day of next month) in UTC.
func monthRange(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
