package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("APP_ENV", "development")
		t.Setenv("STREAK_SWEEP_CRON", "5 0 * * *")
		t.Setenv("MAX_XP_PER_EVENT", "10000")
		t.Setenv("PROFILE_RECENT_EVENTS", "10")
		t.Setenv("LEADERBOARD_CACHE_TTL", "30s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 10000, cfg.MaxXPPerEvent)
		assert.Equal(t, 10, cfg.ProfileRecentEvents)
		assert.Equal(t, 30*time.Second, cfg.LeaderboardCacheTTL)
	})

	t.Run("rejects bad cron", func(t *testing.T) {
		t.Setenv("STREAK_SWEEP_CRON", "every night")

		_, err := Load()
		assert.ErrorContains(t, err, "STREAK_SWEEP_CRON")
	})

	rangeTests := []struct {
		name string
		key  string
		val  string
	}{
		{"rejects zero max xp", "MAX_XP_PER_EVENT", "0"},
		{"rejects non numeric max xp", "MAX_XP_PER_EVENT", "lots"},
		{"rejects negative recent events", "PROFILE_RECENT_EVENTS", "-3"},
		{"rejects bad cache ttl", "LEADERBOARD_CACHE_TTL", "soon"},
	}
	for _, tt := range rangeTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STREAK_SWEEP_CRON", "5 0 * * *")
			t.Setenv("MAX_XP_PER_EVENT", "100")
			t.Setenv("PROFILE_RECENT_EVENTS", "10")
			t.Setenv("LEADERBOARD_CACHE_TTL", "30s")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.key)
			assert.ErrorContains(t, err, `"`+tt.val+`"`)
			assert.NotContains(t, err.Error(), "<nil>")
		})
	}

	t.Run("production needs a secret", func(t *testing.T) {
		t.Setenv("STREAK_SWEEP_CRON", "5 0 * * *")
		t.Setenv("MAX_XP_PER_EVENT", "100")
		t.Setenv("PROFILE_RECENT_EVENTS", "10")
		t.Setenv("LEADERBOARD_CACHE_TTL", "30s")
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "")

		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
}
