// Package revenue implements the pure fee math shared by the whole engine.
// All amounts are integer minor units; the platform fee absorbs any rounding
// remainder so that fee + creator amount always equals the gross amount.
package revenue

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/creatorhub/settlement-engine/internal/models"
)

// feeRates is the single fee table consumed by every component that needs a
// channel rate. Rates are fixed per channel and not configurable at call time.
var feeRates = map[models.RevenueChannel]decimal.Decimal{
	models.ChannelSubscription: decimal.NewFromFloat(0.30),
	models.ChannelPaidReading:  decimal.NewFromFloat(0.30),
	models.ChannelDonation:     decimal.NewFromFloat(0.10),
	models.ChannelBonus:        decimal.Zero,
}

// FeeRate returns the platform fee rate for a channel.
func FeeRate(channel models.RevenueChannel) (float64, error) {
	rate, ok := feeRates[channel]
	if !ok {
		return 0, fmt.Errorf("unknown revenue channel %q", channel)
	}
	f, _ := rate.Float64()
	return f, nil
}

// Compute splits a gross amount into platform fee and creator amount.
// platformFee = floor(gross * rate); creatorAmount = gross - platformFee.
func Compute(channel models.RevenueChannel, grossAmount int64) (platformFee, creatorAmount int64, err error) {
	if grossAmount < 0 {
		return 0, 0, fmt.Errorf("gross amount must not be negative, got %d", grossAmount)
	}
	rate, ok := feeRates[channel]
	if !ok {
		return 0, 0, fmt.Errorf("unknown revenue channel %q", channel)
	}

	platformFee = decimal.NewFromInt(grossAmount).Mul(rate).Floor().IntPart()
	creatorAmount = grossAmount - platformFee
	return platformFee, creatorAmount, nil
}
