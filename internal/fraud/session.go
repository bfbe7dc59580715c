package fraud

import "github.com/creatorhub/settlement-engine/internal/models"

// Session genuineness thresholds: a read only counts toward paid-reading
// revenue when the reader scrolled at least 80% and stayed at least 30s.
const (
	minScrollPercentage = 0.8
	minDurationSeconds  = 30.0
)

// GenuineSession reports whether a reading session counts as a real read.
func GenuineSession(s models.ReadingSession) bool {
	return s.ScrollPercentage >= minScrollPercentage && s.DurationSeconds >= minDurationSeconds
}

// CountGenuine returns how many of the given sessions pass the genuineness rule.
func CountGenuine(sessions []models.ReadingSession) int {
	n := 0
	for _, s := range sessions {
		if GenuineSession(s) {
			n++
		}
	}
	return n
}
