package engine

import (
	"SmartLinks-Backend/internal/domain"
	"SmartLinks-Backend/internal/protection"
	"SmartLinks-Backend/internal/repository"
	"SmartLinks-Backend/internal/repository/memory"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine() (*Engine, *memory.MemStorage) {
	storage := memory.New()
	log := zap.NewNop()
	bypass := protection.BypassPolicy{}

	limiter := protection.NewRateLimiter(protection.NewMemoryWindowStore(), storage, bypass, log)
	detector := protection.NewDetector(storage, bypass, log)
	machine := protection.NewMachine(storage, time.Hour, log)

	return New(storage, limiter, detector, machine, bypass, log), storage
}

func saveTestLink(t *testing.T, storage *memory.MemStorage, link *domain.Link) *domain.Link {
	t.Helper()
	if link.Code == "" {
		link.Code = "abc123"
	}
	if link.PrimaryURL == "" {
		link.PrimaryURL = "https://example.com/landing"
	}
	if link.Rule == "" {
		link.Rule = domain.RuleStandard
	}
	if link.State == "" {
		link.State = domain.StateActive
	}
	link.UserID = 1
	require.NoError(t, storage.SaveLink(context.Background(), link))
	return link
}

// seedVisits inserts n historical visit rows, each from its own IP and
// session so they trip no per-visitor heuristics on their own.
func seedVisits(t *testing.T, storage *memory.MemStorage, linkID int64, n int, suspicious bool) {
	t.Helper()
	ts := time.Now().Add(-time.Minute)
	for i := 0; i < n; i++ {
		require.NoError(t, storage.SaveVisit(context.Background(), &domain.Visit{
			LinkID:       linkID,
			SessionID:    fmt.Sprintf("seed-session-%d", i),
			IPHash:       fmt.Sprintf("seed-ip-%d", i),
			Ts:           ts.Add(time.Duration(i) * time.Second),
			Behavior:     string(TierCurious),
			IsSuspicious: suspicious,
			TargetURL:    "https://example.com/landing",
		}))
	}
}

func clickReq(code, ip, session string) ClickRequest {
	return ClickRequest{
		Code:      code,
		IP:        ip,
		SessionID: session,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	}
}

func TestHandleClick_FirstVisit(t *testing.T) {
	eng, storage := newTestEngine()
	link := saveTestLink(t, storage, &domain.Link{})

	result, err := eng.HandleClick(context.Background(), clickReq("abc123", "198.51.100.1", "s1"))
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.Equal(t, "https://example.com/landing", result.TargetURL)
	assert.Equal(t, TierCurious, result.Tier)
	assert.False(t, result.Suspicious)
	assert.Equal(t, domain.StateActive, result.State)

	visits, err := storage.RecentVisits(context.Background(), link.ID, 10)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "s1", visits[0].SessionID)
	assert.Equal(t, string(TierCurious), visits[0].Behavior)
	assert.Equal(t, "https://example.com/landing", visits[0].TargetURL)

	// Raw IPs never reach storage.
	assert.NotEqual(t, "198.51.100.1", visits[0].IPHash)
	assert.Equal(t, HashIP("198.51.100.1"), visits[0].IPHash)
}

func TestHandleClick_UnknownCode(t *testing.T) {
	eng, _ := newTestEngine()

	_, err := eng.HandleClick(context.Background(), clickReq("missing", "198.51.100.1", "s1"))
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
}

func TestHandleClick_OwnerVisitNotPersisted(t *testing.T) {
	eng, storage := newTestEngine()
	link := saveTestLink(t, storage, &domain.Link{})

	req := clickReq("abc123", "198.51.100.1", "owner-session")
	req.IsOwner = true

	result, err := eng.HandleClick(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, "https://example.com/landing", result.TargetURL)

	visits, err := storage.RecentVisits(context.Background(), link.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestHandleClick_ExpiredLink(t *testing.T) {
	eng, storage := newTestEngine()
	expired := time.Now().Add(-time.Hour)
	link := saveTestLink(t, storage, &domain.Link{ExpiresAt: &expired})

	result, err := eng.HandleClick(context.Background(), clickReq("abc123", "198.51.100.1", "s1"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, BlockLinkExpired, result.Reason)

	visits, err := storage.RecentVisits(context.Background(), link.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestHandleClick_PermanentlyDisabledLink(t *testing.T) {
	eng, storage := newTestEngine()
	detected := time.Now().Add(-10 * time.Minute)
	saveTestLink(t, storage, &domain.Link{
		ProtectionLevel:      5,
		AutoDisabled:         true,
		ProtectionDetectedAt: &detected,
	})

	result, err := eng.HandleClick(context.Background(), clickReq("abc123", "198.51.100.1", "s1"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, BlockDisabled, result.Reason)
}

func TestHandleClick_ProgressionRouting(t *testing.T) {
	eng, storage := newTestEngine()
	saveTestLink(t, storage, &domain.Link{
		Rule:         domain.RuleProgression,
		ReturningURL: strPtr("https://example.com/welcome-back"),
		CTAURL:       strPtr("https://example.com/buy"),
	})

	// Same session, different IPs: routing follows the session visit count.
	wantTargets := []string{
		"https://example.com/landing",
		"https://example.com/welcome-back",
		"https://example.com/buy",
		"https://example.com/buy",
	}
	for i, want := range wantTargets {
		result, err := eng.HandleClick(context.Background(), clickReq("abc123", fmt.Sprintf("198.51.100.%d", i+1), "loyal-session"))
		require.NoError(t, err)
		require.True(t, result.Allowed, "click %d should be allowed", i+1)
		assert.Equal(t, want, result.TargetURL, "click %d", i+1)
	}
}

func TestHandleClick_ModerateAttackRequiresCaptcha(t *testing.T) {
	eng, storage := newTestEngine()
	link := saveTestLink(t, storage, &domain.Link{})

	// 15 suspicious visits in the detection window: above suspicious_threshold
	// (10), below ddos_threshold (50).
	seedVisits(t, storage, link.ID, 15, true)

	result, err := eng.HandleClick(context.Background(), clickReq("abc123", "198.51.100.1", "s1"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, BlockCaptchaRequired, result.Reason)

	stored, err := storage.GetLinkByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.ProtectionLevel)
	assert.False(t, stored.AutoDisabled)

	events := storage.Events(link.ID)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventCaptchaRequired, events[len(events)-1].EventType)
}

func TestHandleClick_DDoSDisablesPermanently(t *testing.T) {
	eng, storage := newTestEngine()
	link := saveTestLink(t, storage, &domain.Link{})

	seedVisits(t, storage, link.ID, 51, true)

	result, err := eng.HandleClick(context.Background(), clickReq("abc123", "198.51.100.1", "s1"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, BlockDisabled, result.Reason)

	stored, err := storage.GetLinkByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.ProtectionLevel)
	assert.True(t, stored.AutoDisabled)
}

func TestHandleClick_AgedBlockSelfHeals(t *testing.T) {
	eng, storage := newTestEngine()
	detected := time.Now().Add(-2 * time.Hour)
	saveTestLink(t, storage, &domain.Link{
		ProtectionLevel:      4,
		ProtectionDetectedAt: &detected,
	})

	result, err := eng.HandleClick(context.Background(), clickReq("abc123", "198.51.100.1", "s1"))
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	stored, err := storage.GetLinkByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.ProtectionLevel)
	assert.Nil(t, stored.ProtectionDetectedAt)
}

func TestHandleClick_HealthKillSwitch(t *testing.T) {
	eng, storage := newTestEngine()
	link := saveTestLink(t, storage, &domain.Link{})

	// 5 suspicious rows: under the attack thresholds, but enough for the
	// health evaluator to pull the link Inactive after this click persists.
	seedVisits(t, storage, link.ID, 5, true)

	result, err := eng.HandleClick(context.Background(), clickReq("abc123", "198.51.100.1", "s1"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, BlockLinkInactive, result.Reason)

	stored, err := storage.GetLinkByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.StateInactive, stored.State)

	// The click itself was still recorded before the state flipped.
	visits, err := storage.RecentVisits(context.Background(), link.ID, 10)
	require.NoError(t, err)
	assert.Len(t, visits, 6)
}

func TestHandleClick_FallsBackToDefaultProfile(t *testing.T) {
	eng, storage := newTestEngine()
	link := saveTestLink(t, storage, &domain.Link{})

	profile := eng.resolveProfile(context.Background(), link)
	require.NotNil(t, profile)
	assert.Equal(t, domain.DefaultSuspiciousThreshold, profile.SuspiciousThreshold)

	// An attached profile wins over the defaults.
	custom := domain.DefaultProfile()
	custom.UserID = 1
	custom.SuspiciousThreshold = 25
	custom.DDoSThreshold = 80
	require.NoError(t, storage.SaveProfile(context.Background(), custom))

	link.ProfileID = &custom.ID
	profile = eng.resolveProfile(context.Background(), link)
	assert.Equal(t, 25, profile.SuspiciousThreshold)
}

func TestHashIP(t *testing.T) {
	a := HashIP("198.51.100.1")
	b := HashIP("198.51.100.2")

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashIP("198.51.100.1"))
}
