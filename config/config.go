package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds infrastructure configuration loaded from environment
// variables. Screening thresholds live in the YAML file named by
// ThresholdsPath; this split keeps credentials out of checked-in files.
type Config struct {
	// Data vendor credentials
	FeedAPIKey     string
	FeedClientID   string
	FeedPassword   string
	FeedTOTPSecret string
	FeedRootURL    string // override for testing; empty uses production
	FeedStreamURL  string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string

	// Screener inputs
	ThresholdsPath string
	UniversePath   string
	UniverseName   string
	FetchWorkers   int

	// Monitor inputs
	HoldingsPath string
	StreamMode   bool // consume live ticks instead of polling quotes

	// Scheduling
	ScanSchedule    string        // cron spec, empty means run once and exit
	MonitorInterval time.Duration // position check cadence during market hours

	// Alerting (empty disables the channel)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		FeedAPIKey:     mustEnv("FEED_API_KEY"),
		FeedClientID:   mustEnv("FEED_CLIENT_ID"),
		FeedPassword:   mustEnv("FEED_PASSWORD"),
		FeedTOTPSecret: mustEnv("FEED_TOTP_SECRET"),
		FeedRootURL:    getEnv("FEED_ROOT_URL", ""),
		FeedStreamURL:  getEnv("FEED_STREAM_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/screener.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		ThresholdsPath: getEnv("THRESHOLDS_PATH", "thresholds.yaml"),
		UniversePath:   getEnv("UNIVERSE_PATH", "universe.txt"),
		UniverseName:   getEnv("UNIVERSE_NAME", "default"),
		FetchWorkers:   getIntEnv("FETCH_WORKERS", 4),

		HoldingsPath: getEnv("HOLDINGS_PATH", "holdings.yaml"),
		StreamMode:   getEnv("STREAM_MODE", "") == "true",

		// e.g. "0 10 * * 1-5" for 10:00 ET weekdays; empty runs once
		ScanSchedule:    getEnv("SCAN_SCHEDULE", ""),
		MonitorInterval: getDurationEnv("MONITOR_INTERVAL", 15*time.Minute),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	log.Printf("[config] invalid value for %s: %q, using %d", key, v, fallback)
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("[config] invalid duration for %s: %q, using %v", key, v, fallback)
	return fallback
}
