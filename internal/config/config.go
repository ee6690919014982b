package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	ServerPort   string
	DatabaseURL  string
	RedisURL     string
	APIJWTSecret string

	// Google Calendar
	ServiceAccountJSON          string
	CalendarID                  string
	CalendarTimezone            string
	DefaultEventDurationMinutes int

	// Reconciliation
	SyncLookbackDays    int
	SyncIntervalMinutes int

	// AI notes (optional; disabled when the key is empty)
	AnthropicAPIKey string
	AnthropicModel  string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort:                  getEnv("SERVER_PORT", "8080"),
		DatabaseURL:                 os.Getenv("DATABASE_URL"),
		RedisURL:                    os.Getenv("REDIS_URL"),
		APIJWTSecret:                os.Getenv("API_JWT_SECRET"),
		ServiceAccountJSON:          os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CalendarID:                  os.Getenv("GOOGLE_CALENDAR_ID"),
		CalendarTimezone:            getEnv("GOOGLE_CALENDAR_TIMEZONE", "Asia/Tokyo"),
		DefaultEventDurationMinutes: getEnvInt("DEFAULT_EVENT_DURATION_MINUTES", 30),
		SyncLookbackDays:            getEnvInt("SYNC_LOOKBACK_DAYS", 365),
		SyncIntervalMinutes:         getEnvInt("SYNC_INTERVAL_MINUTES", 5),
		AnthropicAPIKey:             os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:              getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.APIJWTSecret == "" {
		return nil, errors.New("API_JWT_SECRET is required")
	}
	if cfg.ServiceAccountJSON == "" {
		return nil, errors.New("GOOGLE_SERVICE_ACCOUNT_JSON is required")
	}
	if cfg.CalendarID == "" {
		return nil, errors.New("GOOGLE_CALENDAR_ID is required")
	}
	if cfg.SyncLookbackDays < 1 {
		return nil, errors.New("SYNC_LOOKBACK_DAYS must be at least 1")
	}
	if cfg.SyncIntervalMinutes < 1 {
		return nil, errors.New("SYNC_INTERVAL_MINUTES must be at least 1")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper: get integer env with default value; a non-numeric value falls
// back to the default rather than failing the whole load.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
