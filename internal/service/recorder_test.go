package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/models"
)

func newRecorderFixture() (*Recorder, *fakeEventRepo, *fakeNotifier) {
	events := newFakeEventRepo()
	notifier := &fakeNotifier{}
	return NewRecorder(events, notifier, zap.NewNop()), events, notifier
}

func TestRecordRevenueEventSplitsAmounts(t *testing.T) {
	recorder, events, _ := newRecorderFixture()
	authorID := uuid.New()
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	event, err := recorder.RecordRevenueEvent(context.Background(), authorID, models.ChannelSubscription, 1000, nil, at)
	require.NoError(t, err)

	assert.Equal(t, int64(300), event.PlatformFee)
	assert.Equal(t, int64(700), event.CreatorAmount)
	assert.InDelta(t, 0.30, event.FeeRate, 1e-9)
	assert.Equal(t, models.ReviewAccepted, event.ReviewStatus)
	assert.Equal(t, at, event.OccurredAt)

	stored, err := events.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.GrossAmount, stored.PlatformFee+stored.CreatorAmount)
}

func TestRecordRevenueEventValidation(t *testing.T) {
	recorder, _, _ := newRecorderFixture()

	_, err := recorder.RecordRevenueEvent(context.Background(), uuid.New(), models.RevenueChannel("affiliate"), 1000, nil, time.Time{})
	require.ErrorIs(t, err, ErrInvalidChannel)

	_, err = recorder.RecordRevenueEvent(context.Background(), uuid.New(), models.ChannelDonation, -5, nil, time.Time{})
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestRecordRevenueEventFlagsBurst(t *testing.T) {
	recorder, events, notifier := newRecorderFixture()
	authorID := uuid.New()
	at := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	// A same-hour, same-channel burst plus one oversized transaction fires
	// every signal; the candidate is rejected outright.
	for i := 0; i < 100; i++ {
		require.NoError(t, events.Insert(context.Background(), &models.RevenueEvent{
			ID:           uuid.New(),
			AuthorID:     authorID,
			Channel:      models.ChannelDonation,
			GrossAmount:  500,
			ReviewStatus: models.ReviewAccepted,
			OccurredAt:   at,
		}))
	}

	event, err := recorder.RecordRevenueEvent(context.Background(), authorID, models.ChannelDonation, 2_000_000, nil, at)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewRejected, event.ReviewStatus)

	// Flagged events never trigger milestone notifications.
	assert.Empty(t, notifier.sentOfType(models.NotificationRevenueMilestone))
}

func TestRecordRevenueEventMilestone(t *testing.T) {
	recorder, events, notifier := newRecorderFixture()
	authorID := uuid.New()

	// 995,000 lifetime, spread so no fraud signal fires; the next accepted
	// event crosses 1,000,000.
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	channels := []models.RevenueChannel{
		models.ChannelSubscription, models.ChannelDonation,
		models.ChannelPaidReading, models.ChannelBonus,
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, events.Insert(context.Background(), &models.RevenueEvent{
			ID:            uuid.New(),
			AuthorID:      authorID,
			Channel:       channels[i%len(channels)],
			GrossAmount:   100_000,
			CreatorAmount: 99_500,
			PlatformFee:   500,
			ReviewStatus:  models.ReviewAccepted,
			OccurredAt:    base.Add(time.Duration(i) * 48 * time.Hour),
		}))
	}

	_, err := recorder.RecordRevenueEvent(context.Background(), authorID, models.ChannelBonus, 50_000, nil,
		base.AddDate(0, 6, 0))
	require.NoError(t, err)

	milestones := notifier.sentOfType(models.NotificationRevenueMilestone)
	require.Len(t, milestones, 1)
	assert.Equal(t, "1000000", milestones[0].Metadata["milestone"])
	assert.Equal(t, authorID, milestones[0].RecipientUserID)
}

func TestRecordPaidReading(t *testing.T) {
	recorder, _, _ := newRecorderFixture()
	authorID, articleID := uuid.New(), uuid.New()

	sessions := []models.ReadingSession{
		{ScrollPercentage: 1.0, DurationSeconds: 90},
		{ScrollPercentage: 0.85, DurationSeconds: 40},
		{ScrollPercentage: 0.95, DurationSeconds: 3}, // bounce
		{ScrollPercentage: 0.1, DurationSeconds: 400},
	}

	event, err := recorder.RecordPaidReading(context.Background(), authorID, articleID, 50, sessions)
	require.NoError(t, err)
	require.NotNil(t, event)

	// 2 genuine reads at a 50 reading fee.
	assert.Equal(t, int64(100), event.GrossAmount)
	assert.Equal(t, models.ChannelPaidReading, event.Channel)
	assert.Equal(t, int64(30), event.PlatformFee)
	assert.Equal(t, int64(70), event.CreatorAmount)
	require.NotNil(t, event.ArticleID)
	assert.Equal(t, articleID, *event.ArticleID)
}

func TestRecordPaidReadingNoGenuineReads(t *testing.T) {
	recorder, events, _ := newRecorderFixture()

	event, err := recorder.RecordPaidReading(context.Background(), uuid.New(), uuid.New(), 50, []models.ReadingSession{
		{ScrollPercentage: 0.2, DurationSeconds: 5},
	})
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.Empty(t, events.events)
}

func TestReviewEvent(t *testing.T) {
	recorder, events, _ := newRecorderFixture()
	authorID := uuid.New()

	flagged := &models.RevenueEvent{
		ID:           uuid.New(),
		AuthorID:     authorID,
		Channel:      models.ChannelDonation,
		GrossAmount:  500,
		ReviewStatus: models.ReviewManualReview,
		OccurredAt:   time.Now().UTC(),
	}
	require.NoError(t, events.Insert(context.Background(), flagged))

	require.NoError(t, recorder.ReviewEvent(context.Background(), flagged.ID, true))

	accepted, err := events.GetByID(context.Background(), flagged.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewAccepted, accepted.ReviewStatus)

	// Already accepted events cannot be re-reviewed.
	err = recorder.ReviewEvent(context.Background(), flagged.ID, false)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReviewEventRejectsClaimedEvent(t *testing.T) {
	recorder, events, _ := newRecorderFixture()
	settlementID := uuid.New()

	claimed := &models.RevenueEvent{
		ID:           uuid.New(),
		AuthorID:     uuid.New(),
		Channel:      models.ChannelDonation,
		GrossAmount:  500,
		ReviewStatus: models.ReviewManualReview,
		SettlementID: &settlementID,
		OccurredAt:   time.Now().UTC(),
	}
	require.NoError(t, events.Insert(context.Background(), claimed))

	err := recorder.ReviewEvent(context.Background(), claimed.ID, true)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScoreFraudUsesTrailingWindow(t *testing.T) {
	recorder, events, _ := newRecorderFixture()
	authorID := uuid.New()
	now := time.Now().UTC()

	// Old events fall out of the default 24h window.
	for i := 0; i < 150; i++ {
		require.NoError(t, events.Insert(context.Background(), &models.RevenueEvent{
			ID:          uuid.New(),
			AuthorID:    authorID,
			Channel:     models.ChannelDonation,
			GrossAmount: 500,
			OccurredAt:  now.AddDate(0, 0, -10),
		}))
	}

	score, err := recorder.ScoreFraud(context.Background(), authorID, 0)
	require.NoError(t, err)
	assert.Zero(t, score.Value)

	// Widening the window brings them back in: burst, channel dominance and
	// hour concentration all fire.
	score, err = recorder.ScoreFraud(context.Background(), authorID, 30*24*time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, score.Value, 1e-9)
	assert.False(t, score.IsValid)
}
