package service

import (
	"SmartLinks-Backend/internal/auth"
	"SmartLinks-Backend/internal/domain"
	"SmartLinks-Backend/internal/protection"
	"SmartLinks-Backend/internal/repository"
	"SmartLinks-Backend/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService() (*LinksService, *memory.MemStorage) {
	storage := memory.New()
	log := zap.NewNop()
	machine := protection.NewMachine(storage, time.Hour, log)
	// Low bcrypt cost keeps the test suite fast.
	passwords := auth.NewPasswordServiceWithCost(4)
	return NewLinksService(storage, machine, passwords, 6, log), storage
}

func TestLinksService_CreateLink(t *testing.T) {
	ctx := context.Background()

	t.Run("generated_code", func(t *testing.T) {
		svc, _ := newTestService()
		link, err := svc.CreateLink(ctx, CreateLinkParams{
			UserID:     1,
			PrimaryURL: "https://example.com/landing",
		})
		require.NoError(t, err)
		assert.Len(t, link.Code, 6)
		assert.Equal(t, domain.RuleStandard, link.Rule)
		assert.Equal(t, domain.StateActive, link.State)
		assert.Nil(t, link.PasswordHash)
	})

	t.Run("custom_code", func(t *testing.T) {
		svc, _ := newTestService()
		link, err := svc.CreateLink(ctx, CreateLinkParams{
			UserID:     1,
			CustomCode: "promo",
			PrimaryURL: "https://example.com/landing",
			Rule:       "progression",
		})
		require.NoError(t, err)
		assert.Equal(t, "promo", link.Code)
		assert.Equal(t, domain.RuleProgression, link.Rule)
	})

	t.Run("duplicate_custom_code", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateLink(ctx, CreateLinkParams{UserID: 1, CustomCode: "promo", PrimaryURL: "https://example.com/a"})
		require.NoError(t, err)

		_, err = svc.CreateLink(ctx, CreateLinkParams{UserID: 1, CustomCode: "promo", PrimaryURL: "https://example.com/b"})
		assert.ErrorIs(t, err, repository.ErrCodeExists)
	})

	t.Run("invalid_urls", func(t *testing.T) {
		svc, _ := newTestService()
		for _, raw := range []string{"", "ftp://example.com", "not a url", "javascript:alert(1)"} {
			_, err := svc.CreateLink(ctx, CreateLinkParams{UserID: 1, PrimaryURL: raw})
			assert.ErrorIs(t, err, ErrInvalidURL, "url %q", raw)
		}

		_, err := svc.CreateLink(ctx, CreateLinkParams{
			UserID:       1,
			PrimaryURL:   "https://example.com/landing",
			ReturningURL: "ftp://example.com",
		})
		assert.ErrorIs(t, err, ErrInvalidURL)
	})

	t.Run("unknown_rule", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateLink(ctx, CreateLinkParams{UserID: 1, PrimaryURL: "https://example.com", Rule: "roulette"})
		assert.ErrorIs(t, err, ErrInvalidRule)
	})
}

func TestLinksService_PasswordProtection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	link, err := svc.CreateLink(ctx, CreateLinkParams{
		UserID:     1,
		PrimaryURL: "https://example.com/landing",
		Password:   "hunter2",
	})
	require.NoError(t, err)
	require.True(t, link.IsPasswordProtected())

	assert.NoError(t, svc.VerifyPassword(link, "hunter2"))
	assert.ErrorIs(t, svc.VerifyPassword(link, ""), ErrPasswordRequired)
	assert.ErrorIs(t, svc.VerifyPassword(link, "wrong"), ErrWrongPassword)

	// Links without a password accept anything.
	open, err := svc.CreateLink(ctx, CreateLinkParams{UserID: 1, PrimaryURL: "https://example.com/open"})
	require.NoError(t, err)
	assert.NoError(t, svc.VerifyPassword(open, ""))
}

func TestLinksService_RecoverLink(t *testing.T) {
	ctx := context.Background()
	svc, storage := newTestService()

	link, err := svc.CreateLink(ctx, CreateLinkParams{UserID: 1, PrimaryURL: "https://example.com/landing"})
	require.NoError(t, err)

	detected := time.Now()
	require.NoError(t, storage.UpdateLinkProtection(ctx, link.ID, 5, true, &detected))

	require.NoError(t, svc.RecoverLink(ctx, link.Code))

	stored, err := storage.GetLinkByCode(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.ProtectionLevel)
	assert.False(t, stored.AutoDisabled)
	assert.Nil(t, stored.ProtectionDetectedAt)

	events := storage.Events(link.ID)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventManualRecovery, events[len(events)-1].EventType)

	assert.ErrorIs(t, svc.RecoverLink(ctx, "missing"), repository.ErrCodeNotFound)
}

func TestLinksService_GetStats(t *testing.T) {
	ctx := context.Background()
	svc, storage := newTestService()

	link, err := svc.CreateLink(ctx, CreateLinkParams{UserID: 1, PrimaryURL: "https://example.com/landing"})
	require.NoError(t, err)

	// No history: neutral trust score.
	stats, err := svc.GetStats(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.TrustScore)
	assert.Equal(t, int64(0), stats.VisitTotals.Total)

	for i := 0; i < 4; i++ {
		require.NoError(t, storage.SaveVisit(ctx, &domain.Visit{
			LinkID:       link.ID,
			SessionID:    "s1",
			IPHash:       "ip-1",
			Ts:           time.Now(),
			Behavior:     "Curious",
			IsSuspicious: i == 0,
		}))
	}
	require.NoError(t, storage.SaveProtectionEvent(ctx, &domain.ProtectionEvent{
		LinkID:     link.ID,
		EventType:  domain.EventRateLimit,
		Severity:   2,
		DetectedAt: time.Now(),
	}))

	stats, err = svc.GetStats(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.VisitTotals.Total)
	assert.Equal(t, int64(1), stats.VisitTotals.Suspicious)
	require.Len(t, stats.ProtectionStats, 1)
	assert.Equal(t, domain.EventRateLimit, stats.ProtectionStats[0].EventType)

	_, err = svc.GetStats(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
}
