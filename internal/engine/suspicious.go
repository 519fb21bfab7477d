package engine

import (
	"SmartLinks-Backend/internal/domain"
	"time"
)

const (
	// Burst signature: this many of the newest visits landing inside
	// burstSignatureSpan marks the current click as bot traffic, whatever
	// IPs the visits came from. Catches botnets hitting one link.
	burstSignatureCount  = 8
	burstSignatureWindow = 15
	burstSignatureSpan   = time.Second
)

// IsSuspicious flags the current click as bot-like from the link's recent
// visit history (newest first). The flag is advisory: it feeds the attack
// detector's aggregates and never blocks anything on its own.
//
// Fewer than 3 prior visits is too little signal and always passes.
func IsSuspicious(visits []domain.Visit, ipHash string, profile *domain.Profile) bool {
	visits = withValidTimestamps(visits)
	if len(visits) < 3 {
		return false
	}

	// Same IP clicking faster than humanly possible.
	if ipHash != "" {
		first, second, found := lastTwoFromIP(visits, ipHash)
		if found && first.Ts.Sub(second.Ts) < profile.RapidClickLimit() {
			return true
		}
	}

	recent := visits
	if len(recent) > burstSignatureWindow {
		recent = recent[:burstSignatureWindow]
	}
	if len(recent) >= burstSignatureCount {
		span := recent[0].Ts.Sub(recent[burstSignatureCount-1].Ts)
		if span < burstSignatureSpan {
			return true
		}
	}

	return false
}

// lastTwoFromIP returns the two most recent visits sharing the given IP hash.
func lastTwoFromIP(visits []domain.Visit, ipHash string) (first, second domain.Visit, found bool) {
	matched := 0
	for _, v := range visits {
		if v.IPHash != ipHash {
			continue
		}
		switch matched {
		case 0:
			first = v
		case 1:
			second = v
			return first, second, true
		}
		matched++
	}
	return domain.Visit{}, domain.Visit{}, false
}

// withValidTimestamps drops rows with zero timestamps so one malformed row
// cannot abort the whole aggregate.
func withValidTimestamps(visits []domain.Visit) []domain.Visit {
	for i, v := range visits {
		if v.Ts.IsZero() {
			kept := make([]domain.Visit, 0, len(visits))
			kept = append(kept, visits[:i]...)
			for _, rest := range visits[i:] {
				if !rest.Ts.IsZero() {
					kept = append(kept, rest)
				}
			}
			return kept
		}
	}
	return visits
}
