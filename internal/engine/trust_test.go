package engine

import (
	"SmartLinks-Backend/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustScore(t *testing.T) {
	tests := []struct {
		name   string
		totals domain.VisitTotals
		want   int
	}{
		{"no_history_is_neutral", domain.VisitTotals{}, 50},
		{"clean_traffic", domain.VisitTotals{Total: 100}, 70},
		{"fully_engaged", domain.VisitTotals{Total: 100, Engaged: 100}, 90},
		{"fully_suspicious", domain.VisitTotals{Total: 100, Suspicious: 100}, 30},
		{"mixed", domain.VisitTotals{Total: 100, Engaged: 50, Suspicious: 25}, 70},
		{"single_suspicious_visit", domain.VisitTotals{Total: 1, Suspicious: 1}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrustScore(tt.totals))
		})
	}
}

func TestTrustScore_StaysInRange(t *testing.T) {
	// The score is clamped to 1..100 whatever the mix.
	for engaged := int64(0); engaged <= 10; engaged++ {
		for suspicious := int64(0); suspicious+engaged <= 10; suspicious++ {
			score := TrustScore(domain.VisitTotals{Total: 10, Engaged: engaged, Suspicious: suspicious})
			assert.GreaterOrEqual(t, score, 1)
			assert.LessOrEqual(t, score, 100)
		}
	}
}
