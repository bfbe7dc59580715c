package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/creatorhub/settlement-engine/internal/interfaces"
	"github.com/creatorhub/settlement-engine/internal/models"
	"github.com/creatorhub/settlement-engine/internal/telemetry"
)

const sweepLockTTL = 30 * time.Minute

// SchedulerConfig tunes the monthly sweep.
type SchedulerConfig struct {
	// Concurrency bounds parallel per-author settlements to protect the
	// ledger store.
	Concurrency int
	// SettleTimeout caps one author's settlement attempt; on expiry the
	// settlement is abandoned for the next sweep rather than retried inline.
	SettleTimeout time.Duration
	// AutoWithdrawal, when set, emits payout-eligibility notifications for
	// settlements at or above MinimumAutoWithdrawalAmount. It never moves
	// money; payout confirmation stays with the external gateway.
	AutoWithdrawal              bool
	MinimumAutoWithdrawalAmount int64
}

// Scheduler runs the monthly settlement sweep. It holds no cross-run state:
// the per-period watermark lives in the ledger store.
type Scheduler struct {
	events     interfaces.RevenueEventRepository
	watermarks interfaces.SweepWatermarkRepository
	aggregator *Aggregator
	locker     interfaces.Locker
	notifier   interfaces.Notifier
	cfg        SchedulerConfig
	logger     *zap.Logger
}

func NewScheduler(
	events interfaces.RevenueEventRepository,
	watermarks interfaces.SweepWatermarkRepository,
	aggregator *Aggregator,
	locker interfaces.Locker,
	notifier interfaces.Notifier,
	cfg SchedulerConfig,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = 30 * time.Second
	}
	return &Scheduler{
		events:     events,
		watermarks: watermarks,
		aggregator: aggregator,
		locker:     locker,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// RunMonthlySweep settles the previous calendar month relative to asOf for
// every author with unclaimed revenue. One author's failure never blocks the
// others; re-running a fully processed period is a safe no-op.
func (s *Scheduler) RunMonthlySweep(ctx context.Context, asOf time.Time) error {
	ctx, span := tracer.Start(ctx, "scheduler.monthly_sweep")
	defer span.End()

	start := time.Now()
	defer func() { telemetry.SweepDuration.Observe(time.Since(start).Seconds()) }()

	year, month := previousMonth(asOf)
	period := fmt.Sprintf("%04d-%02d", year, int(month))

	lock, err := s.locker.Obtain(ctx, "settlement:sweep:"+period, sweepLockTTL)
	if err != nil {
		if errors.Is(err, interfaces.ErrLockHeld) {
			s.logger.Info("Sweep already running elsewhere", zap.String("period", period))
			return nil
		}
		return transient(fmt.Errorf("obtain sweep lock: %w", err))
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logger.Warn("Failed to release sweep lock", zap.String("period", period), zap.Error(err))
		}
	}()

	from, to := monthRange(year, month)
	authors, err := s.events.DistinctUnclaimedAuthors(ctx, from, to)
	if err != nil {
		return transient(fmt.Errorf("discover authors: %w", err))
	}

	watermark := &models.SweepWatermark{
		Period:       period,
		StartedAt:    start.UTC(),
		AuthorsTotal: len(authors),
	}
	if err := s.watermarks.Record(ctx, watermark); err != nil {
		s.logger.Warn("Failed to record sweep start", zap.String("period", period), zap.Error(err))
	}

	s.logger.Info("Monthly sweep started",
		zap.String("period", period),
		zap.Int("authors", len(authors)),
		zap.Int("concurrency", s.cfg.Concurrency),
	)

	var settled, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, authorID := range authors {
		authorID := authorID
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.cfg.SettleTimeout)
			defer cancel()

			settlement, err := s.aggregator.Settle(cctx, authorID, year, month)
			if err != nil {
				failed.Add(1)
				s.logger.Warn("Author settlement failed",
					zap.String("author_id", authorID.String()),
					zap.String("period", period),
					zap.Int("failure_kind", int(Classify(err))),
					zap.Error(err),
				)
				return nil
			}

			settled.Add(1)
			if s.cfg.AutoWithdrawal && settlement.CreatorTotal >= s.cfg.MinimumAutoWithdrawalAmount {
				s.notifyPayoutEligible(gctx, settlement)
			}
			return nil
		})
	}
	_ = g.Wait()

	completedAt := time.Now().UTC()
	watermark.CompletedAt = &completedAt
	watermark.AuthorsSettled = int(settled.Load())
	watermark.AuthorsFailed = int(failed.Load())
	if err := s.watermarks.Record(ctx, watermark); err != nil {
		s.logger.Warn("Failed to record sweep completion", zap.String("period", period), zap.Error(err))
	}

	s.logger.Info("Monthly sweep finished",
		zap.String("period", period),
		zap.Int("settled", watermark.AuthorsSettled),
		zap.Int("failed", watermark.AuthorsFailed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// LastSweep returns the watermark for the period preceding asOf, if any.
func (s *Scheduler) LastSweep(ctx context.Context, asOf time.Time) (*models.SweepWatermark, error) {
	year, month := previousMonth(asOf)
	w, err := s.watermarks.Get(ctx, fmt.Sprintf("%04d-%02d", year, int(month)))
	if err != nil {
		return nil, transient(fmt.Errorf("load sweep watermark: %w", err))
	}
	return w, nil
}

func (s *Scheduler) notifyPayoutEligible(ctx context.Context, settlement *models.Settlement) {
	notification := models.Notification{
		Type:            models.NotificationPayoutEligible,
		RecipientUserID: settlement.AuthorID,
		Title:           "Payout available",
		Body:            fmt.Sprintf("Your %s settlement of %d is eligible for withdrawal.", settlement.Period(), settlement.CreatorTotal),
		Metadata: map[string]string{
			"settlement_id": settlement.ID.String(),
			"creator_total": fmt.Sprintf("%d", settlement.CreatorTotal),
		},
	}
	if err := s.notifier.Publish(ctx, notification); err != nil {
		telemetry.NotificationFailures.Inc()
		s.logger.Warn("Failed to publish payout-eligible notification",
			zap.String("settlement_id", settlement.ID.String()), zap.Error(err))
	}
}

func previousMonth(asOf time.Time) (int, time.Month) {
	firstOfMonth := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := firstOfMonth.AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}
