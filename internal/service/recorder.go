package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/fraud"
	"github.com/creatorhub/settlement-engine/internal/interfaces"
	"github.com/creatorhub/settlement-engine/internal/models"
	"github.com/creatorhub/settlement-engine/internal/revenue"
	"github.com/creatorhub/settlement-engine/internal/telemetry"
)

var tracer = otel.Tracer("settlement-engine")

// fraudWindow is the trailing window the scorer sees for each new event.
const fraudWindow = 24 * time.Hour

// Lifetime creator-earnings milestones, in minor units.
var revenueMilestones = []int64{1_000_000, 5_000_000, 10_000_000}

// Recorder turns monetizable actions into ledger revenue events. Every event
// is fee-split by the calculator and fraud-screened before it is persisted.
type Recorder struct {
	events   interfaces.RevenueEventRepository
	notifier interfaces.Notifier
	logger   *zap.Logger
}

func NewRecorder(events interfaces.RevenueEventRepository, notifier interfaces.Notifier, logger *zap.Logger) *Recorder {
	return &Recorder{events: events, notifier: notifier, logger: logger}
}

// RecordRevenueEvent creates one revenue event. A zero occurredAt means now.
func (r *Recorder) RecordRevenueEvent(ctx context.Context, authorID uuid.UUID, channel models.RevenueChannel, grossAmount int64, articleID *uuid.UUID, occurredAt time.Time) (*models.RevenueEvent, error) {
	ctx, span := tracer.Start(ctx, "recorder.record_revenue_event")
	defer span.End()

	if !channel.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	if grossAmount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeAmount, grossAmount)
	}

	feeRate, err := revenue.FeeRate(channel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChannel, err)
	}
	platformFee, creatorAmount, err := revenue.Compute(channel, grossAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalculation, err)
	}

	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	event := &models.RevenueEvent{
		ID:            uuid.New(),
		AuthorID:      authorID,
		ArticleID:     articleID,
		Channel:       channel,
		GrossAmount:   grossAmount,
		FeeRate:       feeRate,
		PlatformFee:   platformFee,
		CreatorAmount: creatorAmount,
		OccurredAt:    occurredAt,
		CreatedAt:     time.Now().UTC(),
	}

	// Screen against the author's trailing window plus the candidate itself.
	window, err := r.events.ListByAuthorSince(ctx, authorID, occurredAt.Add(-fraudWindow))
	if err != nil {
		return nil, transient(fmt.Errorf("load fraud window: %w", err))
	}
	score := fraud.Evaluate(append(window, *event))
	event.ReviewStatus = score.RecommendedAction.ReviewStatus()

	priorTotal, err := r.events.LifetimeCreatorTotal(ctx, authorID)
	if err != nil {
		return nil, transient(fmt.Errorf("load lifetime total: %w", err))
	}

	if err := r.events.Insert(ctx, event); err != nil {
		return nil, transient(fmt.Errorf("insert revenue event: %w", err))
	}

	telemetry.RevenueEventsRecorded.WithLabelValues(string(channel), string(event.ReviewStatus)).Inc()

	if event.ReviewStatus != models.ReviewAccepted {
		r.logger.Warn("Revenue event flagged by fraud screening",
			zap.String("event_id", event.ID.String()),
			zap.String("author_id", authorID.String()),
			zap.Float64("score", score.Value),
			zap.Strings("reasons", score.Reasons),
			zap.String("action", string(score.RecommendedAction)),
		)
		return event, nil
	}

	r.notifyMilestone(ctx, authorID, priorTotal, priorTotal+creatorAmount)

	r.logger.Info("Revenue event recorded",
		zap.String("event_id", event.ID.String()),
		zap.String("author_id", authorID.String()),
		zap.String("channel", string(channel)),
		zap.Int64("gross_amount", grossAmount),
		zap.Int64("creator_amount", creatorAmount),
	)

	return event, nil
}

// RecordPaidReading converts an article's reading sessions into one
// paid-reading revenue event. Only genuine sessions count.
func (r *Recorder) RecordPaidReading(ctx context.Context, authorID, articleID uuid.UUID, readingFee int64, sessions []models.ReadingSession) (*models.RevenueEvent, error) {
	if readingFee < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeAmount, readingFee)
	}

	validReads := fraud.CountGenuine(sessions)
	if validReads == 0 {
		r.logger.Info("No genuine reads for paid reading",
			zap.String("author_id", authorID.String()),
			zap.String("article_id", articleID.String()),
			zap.Int("sessions", len(sessions)),
		)
		return nil, nil
	}

	gross := readingFee * int64(validReads)
	return r.RecordRevenueEvent(ctx, authorID, models.ChannelPaidReading, gross, &articleID, time.Time{})
}

// ScoreFraud evaluates the author's trailing window on demand.
func (r *Recorder) ScoreFraud(ctx context.Context, authorID uuid.UUID, window time.Duration) (fraud.Score, error) {
	if window <= 0 {
		window = fraudWindow
	}
	events, err := r.events.ListByAuthorSince(ctx, authorID, time.Now().UTC().Add(-window))
	if err != nil {
		return fraud.Score{}, transient(fmt.Errorf("load fraud window: %w", err))
	}
	return fraud.Evaluate(events), nil
}

// ReviewEvent resolves a flagged event. Accepting makes it settleable again;
// an already accepted or already claimed event cannot be re-reviewed.
func (r *Recorder) ReviewEvent(ctx context.Context, eventID uuid.UUID, accept bool) error {
	event, err := r.events.GetByID(ctx, eventID)
	if err != nil {
		return transient(fmt.Errorf("load event: %w", err))
	}
	if event.ReviewStatus == models.ReviewAccepted || event.SettlementID != nil {
		return fmt.Errorf("%w: event %s is %s", ErrInvalidTransition, eventID, event.ReviewStatus)
	}

	to := models.ReviewRejected
	if accept {
		to = models.ReviewAccepted
	}
	rows, err := r.events.UpdateReviewStatus(ctx, eventID, event.ReviewStatus, to)
	if err != nil {
		return transient(fmt.Errorf("update review status: %w", err))
	}
	if rows == 0 {
		return fmt.Errorf("%w: event %s changed concurrently", ErrInvalidTransition, eventID)
	}

	r.logger.Info("Revenue event reviewed",
		zap.String("event_id", eventID.String()),
		zap.String("review_status", string(to)),
	)
	return nil
}

func (r *Recorder) notifyMilestone(ctx context.Context, authorID uuid.UUID, before, after int64) {
	for _, milestone := range revenueMilestones {
		if before < milestone && after >= milestone {
			notification := models.Notification{
				Type:            models.NotificationRevenueMilestone,
				RecipientUserID: authorID,
				Title:           "Revenue milestone reached",
				Body:            fmt.Sprintf("Your lifetime creator earnings passed %d.", milestone),
				Metadata: map[string]string{
					"milestone": fmt.Sprintf("%d", milestone),
					"total":     fmt.Sprintf("%d", after),
				},
			}
			if err := r.notifier.Publish(ctx, notification); err != nil {
				telemetry.NotificationFailures.Inc()
				r.logger.Warn("Failed to publish milestone notification",
					zap.String("author_id", authorID.String()), zap.Error(err))
			}
		}
	}
}
