package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("API_JWT_SECRET", "secret")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "/tmp/sa.json")
	t.Setenv("GOOGLE_CALENDAR_ID", "cal@example.com")

	// Make sure optional keys from the host environment don't leak in.
	t.Setenv("SERVER_PORT", "")
	t.Setenv("GOOGLE_CALENDAR_TIMEZONE", "")
	t.Setenv("DEFAULT_EVENT_DURATION_MINUTES", "")
	t.Setenv("SYNC_LOOKBACK_DAYS", "")
	t.Setenv("SYNC_INTERVAL_MINUTES", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_MODEL", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "Asia/Tokyo", cfg.CalendarTimezone)
	assert.Equal(t, 30, cfg.DefaultEventDurationMinutes)
	assert.Equal(t, 365, cfg.SyncLookbackDays)
	assert.Equal(t, 5, cfg.SyncIntervalMinutes)
	assert.Empty(t, cfg.AnthropicAPIKey)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYNC_LOOKBACK_DAYS", "30")
	t.Setenv("SYNC_INTERVAL_MINUTES", "1")
	t.Setenv("GOOGLE_CALENDAR_TIMEZONE", "Europe/Berlin")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.SyncLookbackDays)
	assert.Equal(t, 1, cfg.SyncIntervalMinutes)
	assert.Equal(t, "Europe/Berlin", cfg.CalendarTimezone)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig()
	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestLoadConfig_InvalidIntFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYNC_LOOKBACK_DAYS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 365, cfg.SyncLookbackDays)
}

func TestLoadConfig_RejectsZeroLookback(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYNC_LOOKBACK_DAYS", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}
