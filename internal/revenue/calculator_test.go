package revenue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/settlement-engine/internal/models"
)

func TestComputeFeeTable(t *testing.T) {
	tests := []struct {
		name        string
		channel     models.RevenueChannel
		gross       int64
		wantFee     int64
		wantCreator int64
	}{
		{"subscription 30 percent", models.ChannelSubscription, 1000, 300, 700},
		{"paid reading 30 percent", models.ChannelPaidReading, 1000, 300, 700},
		{"donation 10 percent", models.ChannelDonation, 1000, 100, 900},
		{"bonus keeps everything", models.ChannelBonus, 1000, 0, 1000},
		{"zero gross", models.ChannelSubscription, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, creator, err := Compute(tt.channel, tt.gross)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.wantCreator, creator)
		})
	}
}

func TestComputeFloorsFeeTowardCreator(t *testing.T) {
	// 333 * 0.10 = 33.3; the fee floors to 33 so the creator keeps the
	// rounding remainder.
	fee, creator, err := Compute(models.ChannelDonation, 333)
	require.NoError(t, err)
	assert.Equal(t, int64(33), fee)
	assert.Equal(t, int64(300), creator)

	fee, creator, err = Compute(models.ChannelSubscription, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(299), fee)
	assert.Equal(t, int64(700), creator)
}

func TestComputeConservation(t *testing.T) {
	channels := []models.RevenueChannel{
		models.ChannelSubscription,
		models.ChannelDonation,
		models.ChannelPaidReading,
		models.ChannelBonus,
	}
	amounts := []int64{1, 7, 99, 333, 999, 1000, 12345, 999_999, 1_000_000, 987_654_321}

	for _, channel := range channels {
		for _, gross := range amounts {
			fee, creator, err := Compute(channel, gross)
			require.NoError(t, err)
			assert.Equal(t, gross, fee+creator,
				"conservation violated for %s gross=%d", channel, gross)
			assert.GreaterOrEqual(t, fee, int64(0))
			assert.GreaterOrEqual(t, creator, int64(0))
		}
	}
}

func TestComputeRejectsNegativeAmount(t *testing.T) {
	_, _, err := Compute(models.ChannelSubscription, -1)
	assert.Error(t, err)
}

func TestComputeRejectsUnknownChannel(t *testing.T) {
	_, _, err := Compute(models.RevenueChannel("affiliate"), 1000)
	assert.Error(t, err)
}

func TestFeeRate(t *testing.T) {
	rate, err := FeeRate(models.ChannelDonation)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, rate, 1e-9)

	rate, err = FeeRate(models.ChannelBonus)
	require.NoError(t, err)
	assert.Zero(t, rate)

	_, err = FeeRate(models.RevenueChannel("affiliate"))
	assert.Error(t, err)
}
