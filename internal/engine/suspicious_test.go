package engine

import (
	"SmartLinks-Backend/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var suspiciousBase = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// visit builds a recent-history row; age is how long before suspiciousBase
// the visit happened.
func visit(ipHash string, age time.Duration) domain.Visit {
	return domain.Visit{IPHash: ipHash, Ts: suspiciousBase.Add(-age)}
}

func TestIsSuspicious_TooFewVisitsExempt(t *testing.T) {
	profile := domain.DefaultProfile()

	assert.False(t, IsSuspicious(nil, "ip-a", profile))
	assert.False(t, IsSuspicious([]domain.Visit{
		visit("ip-a", 0),
		visit("ip-a", 50*time.Millisecond),
	}, "ip-a", profile))
}

func TestIsSuspicious_RapidClicksFromSameIP(t *testing.T) {
	profile := domain.DefaultProfile() // rapid click limit 0.3s

	// Newest first; the two most recent from ip-a are 100ms apart.
	visits := []domain.Visit{
		visit("ip-a", 0),
		visit("ip-a", 100*time.Millisecond),
		visit("ip-b", 10*time.Second),
		visit("ip-c", 20*time.Second),
	}
	assert.True(t, IsSuspicious(visits, "ip-a", profile))

	// A different current IP never matches the rapid pair.
	assert.False(t, IsSuspicious(visits, "ip-d", profile))
}

func TestIsSuspicious_HumanPacedClicksPass(t *testing.T) {
	profile := domain.DefaultProfile()

	visits := []domain.Visit{
		visit("ip-a", 0),
		visit("ip-a", 2*time.Second),
		visit("ip-a", 10*time.Second),
		visit("ip-b", 30*time.Second),
	}
	assert.False(t, IsSuspicious(visits, "ip-a", profile))
}

func TestIsSuspicious_BurstSignatureAcrossIPs(t *testing.T) {
	profile := domain.DefaultProfile()

	// 8 visits from 8 different IPs within 700ms: a botnet signature that
	// flags the click regardless of the current IP.
	visits := make([]domain.Visit, 0, 8)
	for i := 0; i < 8; i++ {
		visits = append(visits, visit(string(rune('a'+i)), time.Duration(i)*100*time.Millisecond))
	}
	assert.True(t, IsSuspicious(visits, "ip-new", profile))
}

func TestIsSuspicious_SlowBurstPasses(t *testing.T) {
	profile := domain.DefaultProfile()

	// 8 visits spread over 7 seconds span more than the 1s signature window.
	visits := make([]domain.Visit, 0, 8)
	for i := 0; i < 8; i++ {
		visits = append(visits, visit(string(rune('a'+i)), time.Duration(i)*time.Second))
	}
	assert.False(t, IsSuspicious(visits, "ip-new", profile))
}

func TestIsSuspicious_SkipsMalformedTimestamps(t *testing.T) {
	profile := domain.DefaultProfile()

	// Two valid rows plus two zero-timestamp rows: after dropping the
	// malformed ones the history is below the 3-visit minimum.
	visits := []domain.Visit{
		visit("ip-a", 0),
		{IPHash: "ip-a"},
		visit("ip-a", 100*time.Millisecond),
		{IPHash: "ip-b"},
	}
	assert.False(t, IsSuspicious(visits, "ip-a", profile))
}
