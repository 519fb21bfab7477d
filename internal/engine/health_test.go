package engine

import (
	"SmartLinks-Backend/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateState(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	profile := domain.DefaultProfile() // kill switch = 5

	// rows builds n visits, newest first, the newest one newestAge old,
	// with the first nSuspicious flagged.
	rows := func(n int, newestAge time.Duration, nSuspicious int) []domain.Visit {
		visits := make([]domain.Visit, 0, n)
		for i := 0; i < n; i++ {
			visits = append(visits, domain.Visit{
				Ts:           now.Add(-newestAge - time.Duration(i)*time.Minute),
				IsSuspicious: i < nSuspicious,
			})
		}
		return visits
	}

	t.Run("no_history_is_active", func(t *testing.T) {
		assert.Equal(t, domain.StateActive, evaluateState(nil, now, profile))
	})

	t.Run("kill_switch_beats_fresh_traffic", func(t *testing.T) {
		// 5 suspicious among the recent rows disables the link even though
		// the newest visit is seconds old.
		state := evaluateState(rows(12, time.Second, 5), now, profile)
		assert.Equal(t, domain.StateInactive, state)
	})

	t.Run("below_kill_switch_survives", func(t *testing.T) {
		state := evaluateState(rows(12, time.Second, 4), now, profile)
		assert.Equal(t, domain.StateHighInterest, state)
	})

	t.Run("decayed_past_21_days_is_inactive", func(t *testing.T) {
		state := evaluateState(rows(12, 22*24*time.Hour, 0), now, profile)
		assert.Equal(t, domain.StateInactive, state)
	})

	t.Run("decaying_past_14_days", func(t *testing.T) {
		state := evaluateState(rows(12, 15*24*time.Hour, 0), now, profile)
		assert.Equal(t, domain.StateDecaying, state)
	})

	t.Run("fresh_full_window_is_high_interest", func(t *testing.T) {
		state := evaluateState(rows(10, time.Hour, 0), now, profile)
		assert.Equal(t, domain.StateHighInterest, state)
	})

	t.Run("fresh_thin_traffic_is_active", func(t *testing.T) {
		state := evaluateState(rows(4, time.Hour, 0), now, profile)
		assert.Equal(t, domain.StateActive, state)
	})

	t.Run("malformed_rows_dropped", func(t *testing.T) {
		visits := append([]domain.Visit{{}, {}}, rows(3, time.Hour, 0)...)
		assert.Equal(t, domain.StateActive, evaluateState(visits, now, profile))
	})
}
