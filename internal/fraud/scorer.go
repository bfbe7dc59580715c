// Package fraud scores usage and transaction anomalies for an author's
// trailing event window. Scoring is pure: fetching the window is the caller's
// concern, so the same window always produces the same score.
package fraud

import (
	"github.com/creatorhub/settlement-engine/internal/models"
)

type Action string

const (
	ActionAccept       Action = "accept"
	ActionManualReview Action = "manual_review"
	ActionReject       Action = "reject"
)

// Score is a bounded [0,1] risk estimate with the signals that produced it.
type Score struct {
	IsValid           bool
	Value             float64
	Confidence        float64
	Reasons           []string
	RecommendedAction Action
}

// Signal thresholds and additive weights. Weights are in hundredths and sum
// to exactly 100, so an all-signals window scores exactly 1.0; accumulating
// in integers keeps float rounding out of the threshold comparisons.
const (
	highValueThreshold     int64 = 1_000_000 // single transaction, minor units
	burstEventCount              = 100       // events in the trailing 24h
	sameChannelRatio             = 0.5
	hourConcentrationRatio       = 0.5

	weightHighValue         = 30
	weightBurst             = 40
	weightSameChannel       = 20
	weightHourConcentration = 10

	reviewThreshold = 0.5
	rejectThreshold = 0.8
	validThreshold  = 0.7

	// All ratio signals, the hour-concentration one included, stay silent on
	// windows smaller than this: one donation is trivially 100% of its
	// channel and its hour, and flagging it would block every new author's
	// first sale.
	minRatioWindow = 10
)

// Evaluate scores a trailing-24h window of an author's revenue events.
func Evaluate(window []models.RevenueEvent) Score {
	var points int
	var reasons []string

	var maxAmount int64
	channelCounts := make(map[models.RevenueChannel]int)
	hourCounts := make(map[int]int)
	for _, ev := range window {
		if ev.GrossAmount > maxAmount {
			maxAmount = ev.GrossAmount
		}
		channelCounts[ev.Channel]++
		hourCounts[ev.OccurredAt.UTC().Hour()]++
	}

	if maxAmount > highValueThreshold {
		points += weightHighValue
		reasons = append(reasons, "unusually large single transaction")
	}

	if len(window) > burstEventCount {
		points += weightBurst
		reasons = append(reasons, "excessive transaction frequency in 24h")
	}

	if len(window) >= minRatioWindow {
		maxChannel := 0
		for _, n := range channelCounts {
			if n > maxChannel {
				maxChannel = n
			}
		}
		if float64(maxChannel) > float64(len(window))*sameChannelRatio {
			points += weightSameChannel
			reasons = append(reasons, "single channel dominates recent events")
		}

		maxHour := 0
		for _, n := range hourCounts {
			if n > maxHour {
				maxHour = n
			}
		}
		if float64(maxHour) > float64(len(window))*hourConcentrationRatio {
			points += weightHourConcentration
			reasons = append(reasons, "events cluster into a single hour of day")
		}
	}

	value := float64(points) / 100

	return Score{
		IsValid:           value < validThreshold,
		Value:             value,
		Confidence:        1.0 - value,
		Reasons:           reasons,
		RecommendedAction: actionFor(value),
	}
}

func actionFor(value float64) Action {
	switch {
	case value >= rejectThreshold:
		return ActionReject
	case value >= reviewThreshold:
		return ActionManualReview
	default:
		return ActionAccept
	}
}

// ReviewStatus maps the recommended action onto the event review state.
func (a Action) ReviewStatus() models.ReviewStatus {
	switch a {
	case ActionReject:
		return models.ReviewRejected
	case ActionManualReview:
		return models.ReviewManualReview
	default:
		return models.ReviewAccepted
	}
}
