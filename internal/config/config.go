package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	JWTSecret string
	RulesPath string

	MaxXPPerEvent       int
	ProfileRecentEvents int
	LeaderboardCacheTTL time.Duration
	StreakSweepCron     string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		RulesPath: os.Getenv("RULES_PATH"),

		StreakSweepCron: getEnv("STREAK_SWEEP_CRON", "5 0 * * *"),
	}

	var err error
	raw := getEnv("MAX_XP_PER_EVENT", "10000")
	cfg.MaxXPPerEvent, err = parseInt(raw)
	if err != nil || cfg.MaxXPPerEvent < 1 {
		return nil, fmt.Errorf("invalid MAX_XP_PER_EVENT %q: must be a positive integer", raw)
	}
	raw = getEnv("PROFILE_RECENT_EVENTS", "10")
	cfg.ProfileRecentEvents, err = parseInt(raw)
	if err != nil || cfg.ProfileRecentEvents < 0 {
		return nil, fmt.Errorf("invalid PROFILE_RECENT_EVENTS %q: must be a non-negative integer", raw)
	}
	raw = getEnv("LEADERBOARD_CACHE_TTL", "30s")
	cfg.LeaderboardCacheTTL, err = parseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_CACHE_TTL %q: %w", raw, err)
	}

	if _, err := cron.ParseStandard(cfg.StreakSweepCron); err != nil {
		return nil, fmt.Errorf("invalid STREAK_SWEEP_CRON: %w", err)
	}

	if cfg.JWTSecret == "" && cfg.AppEnv == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
