package engine

import "SmartLinks-Backend/internal/domain"

// ResolveTarget picks the destination URL. Progression links route purely by
// the session's cumulative click count; standard links route by behavior
// tier. Missing returning/CTA URLs fall back to the primary URL.
func ResolveTarget(link *domain.Link, tier Tier, sessionCount int64) string {
	if link.Rule == domain.RuleProgression {
		switch {
		case sessionCount <= 1:
			return link.PrimaryURL
		case sessionCount == 2:
			return link.ReturningOrPrimary()
		default:
			return link.CTAOrPrimary()
		}
	}

	switch tier {
	case TierHighlyEngaged:
		return link.CTAOrPrimary()
	case TierInterested:
		return link.ReturningOrPrimary()
	default:
		return link.PrimaryURL
	}
}
