package engine

import "SmartLinks-Backend/internal/domain"

// TrustScore condenses a link's lifetime visit mix into a 1..100 score.
// Engaged visits pull the score up, suspicious ones drag it down hard; a
// link with no history sits at a neutral 50.
func TrustScore(totals domain.VisitTotals) int {
	if totals.Total == 0 {
		return 50
	}

	score := 70 +
		int(float64(totals.Engaged)/float64(totals.Total)*20) -
		int(float64(totals.Suspicious)/float64(totals.Total)*40)

	if score < 1 {
		return 1
	}
	if score > 100 {
		return 100
	}
	return score
}
