// Package config loads engine configuration from environment variables.
// A .env file, when present, is loaded by main before Load runs.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all engine configuration.
type Config struct {
	// Binance
	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceTestnet   bool
	StreamBaseURL    string

	// "live" places real orders, "paper" simulates fills locally.
	ExecutionMode string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	LogLevel      string

	// Symbol x timeframe matrix (comma-separated)
	Symbols    string
	Timeframes string

	// Loop cadence
	SweepInterval     time.Duration
	BotTickInterval   time.Duration
	OrderTickInterval time.Duration

	// Notifications (optional, empty disables the backend)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// Load reads configuration from environment variables with defaults.
// Binance credentials are only required in live execution mode.
func Load() *Config {
	cfg := &Config{
		BinanceAPIKey:    getEnv("BINANCE_API_KEY", ""),
		BinanceSecretKey: getEnv("BINANCE_SECRET_KEY", ""),
		BinanceTestnet:   getBool("BINANCE_TESTNET", false),
		StreamBaseURL:    getEnv("BINANCE_STREAM_URL", ""),

		ExecutionMode: getEnv("EXECUTION_MODE", "paper"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/tradecore.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		Symbols:    getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT"),
		Timeframes: getEnv("TIMEFRAMES", "15m,1h,4h,1d"),

		SweepInterval:     getDuration("SWEEP_INTERVAL", 60*time.Second),
		BotTickInterval:   getDuration("BOT_TICK_INTERVAL", 30*time.Second),
		OrderTickInterval: getDuration("ORDER_TICK_INTERVAL", 5*time.Second),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}

	if cfg.ExecutionMode == "live" && (cfg.BinanceAPIKey == "" || cfg.BinanceSecretKey == "") {
		log.Fatalf("[config] EXECUTION_MODE=live requires BINANCE_API_KEY and BINANCE_SECRET_KEY")
	}
	return cfg
}

// ParseSymbols returns the configured symbols, upper-cased, blanks dropped.
func (c *Config) ParseSymbols() []string {
	return splitList(c.Symbols, strings.ToUpper)
}

// ParseTimeframes returns the configured timeframes, blanks dropped.
func (c *Config) ParseTimeframes() []string {
	return splitList(c.Timeframes, strings.ToLower)
}

func splitList(s string, norm func(string) string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, norm(p))
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
