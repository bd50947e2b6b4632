package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	Port      string
	MongoURI  string
	DBName    string
	JWTSecret string

	GeminiAPIKey  string
	GeminiModel   string
	OracleTimeout time.Duration

	ResendAPIKey string
	FromEmail    string
	BaseURL      string

	// Cron schedule for the public-interview leaderboard refresh.
	LeaderboardSchedule string
	LatestLimit         int
}

// Load reads configuration from the environment. A .env file is loaded
// first if present; in production the env vars are set directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		MongoURI:            getEnv("MONGODB_URI", ""),
		DBName:              getEnv("DB_NAME", "prepmate"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
		OracleTimeout:       getEnvDuration("ORACLE_TIMEOUT", 45*time.Second),
		ResendAPIKey:        getEnv("RESEND_API_KEY", ""),
		FromEmail:           getEnv("FROM_EMAIL", ""),
		BaseURL:             getEnv("BASE_URL", ""),
		LeaderboardSchedule: getEnv("LEADERBOARD_SCHEDULE", "@every 10m"),
		LatestLimit:         getEnvInt("LATEST_INTERVIEWS_LIMIT", 20),
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGODB_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
