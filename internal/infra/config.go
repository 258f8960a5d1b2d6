package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	Port                string
	DatabaseURL         string
	ClaudeAPIKeys       []string
	ClaudeModel         string
	AnthropicBaseURL    string
	StoragePath         string
	GeoIPDBPath         string
	ImageRetention      time.Duration
	GenerateMaxAttempts int
	MaxConcurrentJobs   int64
	SessionTTL          time.Duration
	LoginRatePerMin     int
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. CLAUDE_API_KEYS is a JSON array of provider keys.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		ClaudeModel:         getEnv("CLAUDE_MODEL", "claude-sonnet-4-5-20250929"),
		AnthropicBaseURL:    getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		StoragePath:         getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:         os.Getenv("GEOIP_DB_PATH"),
		ImageRetention:      24 * time.Hour * time.Duration(getEnvInt("IMAGE_RETENTION_DAYS", 10)),
		GenerateMaxAttempts: getEnvInt("GENERATE_MAX_ATTEMPTS", 10),
		MaxConcurrentJobs:   int64(getEnvInt("MAX_CONCURRENT_JOBS", 4)),
		SessionTTL:          time.Hour * time.Duration(getEnvInt("SESSION_TTL_HOURS", 168)),
		LoginRatePerMin:     getEnvInt("LOGIN_RATE_PER_MINUTE", 20),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	keys, err := parseAPIKeys(os.Getenv("CLAUDE_API_KEYS"))
	if err != nil {
		return nil, err
	}
	cfg.ClaudeAPIKeys = keys

	return cfg, nil
}

func parseAPIKeys(raw string) ([]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("CLAUDE_API_KEYS is required")
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, fmt.Errorf("parse CLAUDE_API_KEYS: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("CLAUDE_API_KEYS must be a non-empty array")
	}
	return keys, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
