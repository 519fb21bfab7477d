package engine

import (
	"SmartLinks-Backend/internal/domain"
	"context"
	"time"

	"go.uber.org/zap"
)

// Tier is the classified intent of a visitor. The string values are the ones
// persisted on visit rows.
type Tier string

const (
	TierCurious       Tier = "Curious"
	TierInterested    Tier = "Interested"
	TierHighlyEngaged Tier = "Highly engaged"
)

// SessionCounter counts a session's lifetime visits on a link.
type SessionCounter interface {
	CountSessionVisits(ctx context.Context, linkID int64, sessionID string) (int64, error)
}

// Classifier computes the behavior tier for the current visitor.
type Classifier struct {
	sessions SessionCounter
	log      *zap.Logger
}

// NewClassifier creates a behavior classifier.
func NewClassifier(sessions SessionCounter, log *zap.Logger) *Classifier {
	return &Classifier{sessions: sessions, log: log}
}

// Classify returns the behavior tier and the session's lifetime visit count,
// current click included (the current visit is not persisted yet when this
// runs). The session count covers all time; the "returning" count only looks
// at the recent slice within the profile's returning window. A failed session
// count degrades to a first visit rather than failing the click.
func (c *Classifier) Classify(ctx context.Context, linkID int64, sessionID string, visits []domain.Visit, now time.Time, profile *domain.Profile) (Tier, int64) {
	prior, err := c.sessions.CountSessionVisits(ctx, linkID, sessionID)
	if err != nil {
		c.log.Warn("session visit count unavailable", zap.Int64("link_id", linkID), zap.Error(err))
		prior = 0
	}
	sessionCount := prior + 1

	var recentCount int
	cutoff := now.Add(-profile.ReturningWindow())
	for _, v := range visits {
		if !v.Ts.IsZero() && v.Ts.After(cutoff) {
			recentCount++
		}
	}

	switch {
	case sessionCount >= int64(profile.EngagedThreshold):
		return TierHighlyEngaged, sessionCount
	case recentCount >= profile.InterestedThreshold:
		return TierInterested, sessionCount
	default:
		return TierCurious, sessionCount
	}
}
