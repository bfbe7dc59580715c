package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/interfaces"
	"github.com/creatorhub/settlement-engine/internal/models"
)

func newSchedulerFixture(cfg SchedulerConfig) (*Scheduler, *fakeEventRepo, *fakeSettlementRepo, *fakeWatermarkRepo, *fakeNotifier, *fakeLocker) {
	events := newFakeEventRepo()
	settlements := newFakeSettlementRepo()
	watermarks := newFakeWatermarkRepo()
	notifier := &fakeNotifier{}
	locker := &fakeLocker{}
	aggregator := NewAggregator(events, settlements, notifier, zap.NewNop())
	scheduler := NewScheduler(events, watermarks, aggregator, locker, notifier, cfg, zap.NewNop())
	return scheduler, events, settlements, watermarks, notifier, locker
}

func TestRunMonthlySweepSettlesAllAuthors(t *testing.T) {
	scheduler, events, settlements, watermarks, _, locker := newSchedulerFixture(SchedulerConfig{Concurrency: 2})

	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	authorA, authorB := uuid.New(), uuid.New()
	addEvent(t, events, authorA, models.ChannelSubscription, 1000, march, models.ReviewAccepted)
	addEvent(t, events, authorB, models.ChannelDonation, 2000, march.Add(time.Hour), models.ReviewAccepted)

	asOf := time.Date(2025, 4, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, scheduler.RunMonthlySweep(context.Background(), asOf))

	for _, authorID := range []uuid.UUID{authorA, authorB} {
		s, err := settlements.GetByPeriod(context.Background(), authorID, 2025, time.March)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, models.SettlementCompleted, s.Status)
	}

	watermark, err := watermarks.Get(context.Background(), "2025-03")
	require.NoError(t, err)
	require.NotNil(t, watermark)
	assert.Equal(t, 2, watermark.AuthorsTotal)
	assert.Equal(t, 2, watermark.AuthorsSettled)
	assert.Zero(t, watermark.AuthorsFailed)
	assert.NotNil(t, watermark.CompletedAt)

	assert.Contains(t, locker.obtained, "settlement:sweep:2025-03")
}

func TestRunMonthlySweepIsolatesFailures(t *testing.T) {
	scheduler, events, settlements, watermarks, _, _ := newSchedulerFixture(SchedulerConfig{Concurrency: 1})

	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	healthy, broken := uuid.New(), uuid.New()
	addEvent(t, events, healthy, models.ChannelSubscription, 1000, march, models.ReviewAccepted)
	addEvent(t, events, broken, models.ChannelDonation, 2000, march, models.ReviewAccepted)
	events.failClaimFor[broken] = errors.New("ledger store down")

	asOf := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scheduler.RunMonthlySweep(context.Background(), asOf))

	s, err := settlements.GetByPeriod(context.Background(), healthy, 2025, time.March)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, models.SettlementCompleted, s.Status)

	watermark, err := watermarks.Get(context.Background(), "2025-03")
	require.NoError(t, err)
	require.NotNil(t, watermark)
	assert.Equal(t, 2, watermark.AuthorsTotal)
	assert.Equal(t, 1, watermark.AuthorsSettled)
	assert.Equal(t, 1, watermark.AuthorsFailed)

	// The failed author's events stay unclaimed for the next sweep.
	events.mu.Lock()
	defer events.mu.Unlock()
	for _, ev := range events.events {
		if ev.AuthorID == broken {
			assert.Nil(t, ev.SettlementID)
		}
	}
}

func TestRunMonthlySweepRerunIsNoOp(t *testing.T) {
	scheduler, events, _, watermarks, notifier, _ := newSchedulerFixture(SchedulerConfig{})

	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	addEvent(t, events, uuid.New(), models.ChannelSubscription, 1000, march, models.ReviewAccepted)

	asOf := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scheduler.RunMonthlySweep(context.Background(), asOf))
	firstNotifications := len(notifier.sentOfType(models.NotificationSettlementCompleted))

	// Everything is claimed now; the rerun discovers no authors and records
	// an empty watermark without touching settled data.
	require.NoError(t, scheduler.RunMonthlySweep(context.Background(), asOf))

	watermark, err := watermarks.Get(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Zero(t, watermark.AuthorsTotal)
	assert.Equal(t, firstNotifications, len(notifier.sentOfType(models.NotificationSettlementCompleted)))
}

func TestRunMonthlySweepSkipsWhenLockHeld(t *testing.T) {
	scheduler, events, settlements, _, _, locker := newSchedulerFixture(SchedulerConfig{})
	locker.err = interfaces.ErrLockHeld

	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	authorID := uuid.New()
	addEvent(t, events, authorID, models.ChannelSubscription, 1000, march, models.ReviewAccepted)

	asOf := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scheduler.RunMonthlySweep(context.Background(), asOf))

	s, err := settlements.GetByPeriod(context.Background(), authorID, 2025, time.March)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRunMonthlySweepPayoutEligibility(t *testing.T) {
	scheduler, events, _, _, notifier, _ := newSchedulerFixture(SchedulerConfig{
		AutoWithdrawal:              true,
		MinimumAutoWithdrawalAmount: 100_000,
	})

	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	bigEarner, smallEarner := uuid.New(), uuid.New()
	addEvent(t, events, bigEarner, models.ChannelBonus, 150_000, march, models.ReviewAccepted)
	addEvent(t, events, smallEarner, models.ChannelBonus, 5_000, march, models.ReviewAccepted)

	asOf := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scheduler.RunMonthlySweep(context.Background(), asOf))

	eligible := notifier.sentOfType(models.NotificationPayoutEligible)
	require.Len(t, eligible, 1)
	assert.Equal(t, bigEarner, eligible[0].RecipientUserID)
}

func TestLastSweep(t *testing.T) {
	scheduler, _, _, watermarks, _, _ := newSchedulerFixture(SchedulerConfig{})

	asOf := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	w, err := scheduler.LastSweep(context.Background(), asOf)
	require.NoError(t, err)
	assert.Nil(t, w)

	require.NoError(t, watermarks.Record(context.Background(), &models.SweepWatermark{
		Period:    "2025-03",
		StartedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}))

	w, err = scheduler.LastSweep(context.Background(), asOf)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "2025-03", w.Period)
}

func TestPreviousMonth(t *testing.T) {
	year, month := previousMonth(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.March, month)

	// Year boundary.
	year, month = previousMonth(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.December, month)
}
