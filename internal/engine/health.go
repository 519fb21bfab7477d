package engine

import (
	"SmartLinks-Backend/internal/domain"
	"context"
	"fmt"
	"time"
)

const (
	healthWindowSize      = 30 // newest rows considered, no time filter
	highInterestMinVisits = 10
	attentionDecayDays    = 14
	stateDecayDays        = 21
)

// RecentVisitReader loads the newest visits of a link.
type RecentVisitReader interface {
	RecentVisits(ctx context.Context, linkID int64, limit int) ([]domain.Visit, error)
}

// HealthEvaluator re-derives a link's display state from its newest visits.
// It holds no transition memory: a quiet link flips straight back from
// Decaying to Active the moment fresh traffic arrives.
type HealthEvaluator struct {
	visits RecentVisitReader
}

// NewHealthEvaluator creates a link health evaluator.
func NewHealthEvaluator(visits RecentVisitReader) *HealthEvaluator {
	return &HealthEvaluator{visits: visits}
}

// Evaluate computes the link state from the newest 30 visit rows.
func (e *HealthEvaluator) Evaluate(ctx context.Context, linkID int64, now time.Time, profile *domain.Profile) (domain.LinkState, error) {
	recent, err := e.visits.RecentVisits(ctx, linkID, healthWindowSize)
	if err != nil {
		return domain.StateActive, fmt.Errorf("failed to load visits for health evaluation: %w", err)
	}
	return evaluateState(recent, now, profile), nil
}

func evaluateState(recent []domain.Visit, now time.Time, profile *domain.Profile) domain.LinkState {
	recent = withValidTimestamps(recent)
	if len(recent) == 0 {
		return domain.StateActive
	}

	suspiciousHits := 0
	for _, v := range recent {
		if v.IsSuspicious {
			suspiciousHits++
		}
	}
	if suspiciousHits >= profile.HealthKillSwitch {
		return domain.StateInactive
	}

	daysSince := int(now.Sub(recent[0].Ts).Hours() / 24)
	if daysSince > stateDecayDays {
		return domain.StateInactive
	}
	if daysSince > attentionDecayDays {
		return domain.StateDecaying
	}

	if len(recent) >= highInterestMinVisits {
		return domain.StateHighInterest
	}
	return domain.StateActive
}
