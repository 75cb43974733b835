// Package config loads the scout configuration from defaults, an optional
// YAML policy file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/polyinsider/scout/internal/ingest"
	"github.com/polyinsider/scout/internal/notify"
	"github.com/polyinsider/scout/internal/pipeline"
)

// PolicyEnv names the environment variable holding the policy file path.
const PolicyEnv = "SCOUT_POLICY"

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration values for scout.
type Config struct {
	// Polymarket APIs
	Ingest ingest.Config `yaml:"ingest"`

	// Analysis, signal and extraction policy
	Pipeline pipeline.Config `yaml:",inline"`

	// Alerting
	Discord notify.Config `yaml:"discord"`

	// Daemon
	Watch WatchConfig `yaml:"watch"`

	// Scan
	Scan ScanConfig `yaml:"scan"`

	// Database
	DBPath string `yaml:"db_path"`

	// Workers bounds concurrent wallet analyses.
	Workers int `yaml:"workers"`

	// Metrics
	MetricsPort int `yaml:"metrics_port"`

	// Logging. LogFile receives logs while the TUI owns the terminal.
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// WatchConfig controls the watch daemon.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`

	EnableTUI bool          `yaml:"tui"`
	UIRefresh time.Duration `yaml:"ui_refresh"`

	// Live activity feed. Unwatched wallets with BurstCount trades of at
	// least MinTradeUSD inside BurstWindow are analyzed on the next cycle.
	LiveFeed    bool          `yaml:"live_feed"`
	LiveURL     string        `yaml:"live_url"`
	MinTradeUSD float64       `yaml:"min_trade_usd"`
	BurstCount  int           `yaml:"burst_count"`
	BurstWindow time.Duration `yaml:"burst_window"`

	BufferSize int `yaml:"buffer_size"`
}

// ScanConfig holds the emerging-trader filters.
type ScanConfig struct {
	Limit      int     `yaml:"limit"`
	Window     string  `yaml:"window"`
	MinProfit  float64 `yaml:"min_profit"`
	MinWinRate float64 `yaml:"min_win_rate"`
	MaxAgeDays int     `yaml:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Ingest:   ingest.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
		Discord:  notify.DefaultConfig(),
		Watch: WatchConfig{
			Interval:    15 * time.Minute,
			EnableTUI:   false,
			UIRefresh:   500 * time.Millisecond,
			LiveFeed:    true,
			LiveURL:     ingest.LiveDataURL,
			MinTradeUSD: 2000,
			BurstCount:  3,
			BurstWindow: 60 * time.Second,
			BufferSize:  1000,
		},
		Scan: ScanConfig{
			Limit:      100,
			Window:     "month",
			MinProfit:  1000,
			MinWinRate: 0.6,
			MaxAgeDays: 90,
		},
		DBPath:      "./data/scout.db",
		Workers:     5,
		MetricsPort: 9090,
		LogLevel:    "INFO",
		LogFile:     "./data/scout.log",
	}
}

// Load builds the configuration. Priority order:
// environment variables > .env file > policy file > defaults.
// An empty path falls back to SCOUT_POLICY; no path means no policy file.
func Load(path string) (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(PolicyEnv)
	}
	if path != "" {
		if err := cfg.loadPolicy(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadPolicy(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse policy %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Polymarket
	c.Ingest.DataAPIURL = getEnv("POLYMARKET_DATA_API_URL", c.Ingest.DataAPIURL)
	c.Ingest.GammaURL = getEnv("POLYMARKET_GAMMA_URL", c.Ingest.GammaURL)
	c.Ingest.RateLimit = getEnvFloat("API_RATE_LIMIT", c.Ingest.RateLimit)
	c.Ingest.Burst = getEnvInt("API_BURST", c.Ingest.Burst)
	c.Ingest.CacheTTL = getEnvDuration("API_CACHE_TTL", c.Ingest.CacheTTL)
	c.Ingest.Timeout = getEnvDuration("API_TIMEOUT", c.Ingest.Timeout)
	c.Ingest.MaxRetries = getEnvInt("API_MAX_RETRIES", c.Ingest.MaxRetries)

	// Policy
	c.Pipeline.Analyzer.MinTrades = getEnvInt("MIN_TRADES", c.Pipeline.Analyzer.MinTrades)
	c.Pipeline.Reverse.MinConfidence = getEnvFloat("MIN_CONFIDENCE", c.Pipeline.Reverse.MinConfidence)
	c.Pipeline.Reverse.MinEvidence = getEnvInt("MIN_EVIDENCE", c.Pipeline.Reverse.MinEvidence)
	c.Pipeline.Detector.WinRateThreshold = getEnvFloat("WIN_RATE_THRESHOLD", c.Pipeline.Detector.WinRateThreshold)

	// Alerting
	c.Discord.WebhookURL = getEnv("DISCORD_WEBHOOK_URL", c.Discord.WebhookURL)
	c.Discord.BatchEvery = time.Duration(getEnvInt("ALERT_BATCH_SECONDS", int(c.Discord.BatchEvery/time.Second))) * time.Second
	c.Discord.Cooldown = time.Duration(getEnvInt("ALERT_COOLDOWN_MINUTES", int(c.Discord.Cooldown/time.Minute))) * time.Minute

	// Watch
	c.Watch.Interval = getEnvDuration("WATCH_INTERVAL", c.Watch.Interval)
	c.Watch.EnableTUI = getEnvBool("ENABLE_TUI", c.Watch.EnableTUI)
	c.Watch.UIRefresh = time.Duration(getEnvInt("UI_REFRESH_MS", int(c.Watch.UIRefresh/time.Millisecond))) * time.Millisecond
	c.Watch.LiveFeed = getEnvBool("LIVE_FEED", c.Watch.LiveFeed)
	c.Watch.LiveURL = getEnv("POLYMARKET_LIVE_URL", c.Watch.LiveURL)
	c.Watch.MinTradeUSD = getEnvFloat("MIN_VALUE_USD", c.Watch.MinTradeUSD)
	c.Watch.BurstCount = getEnvInt("BURST_COUNT", c.Watch.BurstCount)
	c.Watch.BurstWindow = time.Duration(getEnvInt("BURST_WINDOW_SECONDS", int(c.Watch.BurstWindow/time.Second))) * time.Second

	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.Workers = getEnvInt("WORKER_COUNT", c.Workers)
	c.MetricsPort = getEnvInt("PROMETHEUS_PORT", c.MetricsPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

// Validate checks that configuration values are usable. Stage policies are
// validated by their own packages.
func (c *Config) Validate() error {
	if err := c.Ingest.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Analyzer.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Detector.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Reverse.Validate(); err != nil {
		return err
	}

	if c.Discord.BatchEvery <= 0 {
		return fmt.Errorf("%w: ALERT_BATCH_SECONDS must be positive", ErrInvalidConfig)
	}
	if c.Discord.Cooldown < 0 {
		return fmt.Errorf("%w: ALERT_COOLDOWN_MINUTES must not be negative", ErrInvalidConfig)
	}

	if c.Watch.Interval <= 0 {
		return fmt.Errorf("%w: watch interval must be positive", ErrInvalidConfig)
	}
	if c.Watch.UIRefresh <= 0 {
		return fmt.Errorf("%w: UI_REFRESH_MS must be positive", ErrInvalidConfig)
	}
	if c.Watch.LiveFeed && c.Watch.LiveURL == "" {
		return fmt.Errorf("%w: POLYMARKET_LIVE_URL is required with the live feed", ErrInvalidConfig)
	}
	if c.Watch.MinTradeUSD < 0 {
		return fmt.Errorf("%w: MIN_VALUE_USD must not be negative", ErrInvalidConfig)
	}
	if c.Watch.BurstCount < 1 || c.Watch.BurstWindow <= 0 {
		return fmt.Errorf("%w: burst count and window must be positive", ErrInvalidConfig)
	}
	if c.Watch.BufferSize < 1 {
		return fmt.Errorf("%w: buffer size must be at least 1", ErrInvalidConfig)
	}

	if c.Scan.Limit < 1 {
		return fmt.Errorf("%w: scan limit must be at least 1", ErrInvalidConfig)
	}
	if c.Scan.MinProfit < 0 || c.Scan.MaxAgeDays < 0 {
		return fmt.Errorf("%w: scan thresholds must not be negative", ErrInvalidConfig)
	}
	if c.Scan.MinWinRate < 0 || c.Scan.MinWinRate > 1 {
		return fmt.Errorf("%w: scan min win rate must be in [0,1]", ErrInvalidConfig)
	}

	if c.DBPath == "" {
		return fmt.Errorf("%w: DB_PATH is required", ErrInvalidConfig)
	}

	if c.Workers < 1 {
		return fmt.Errorf("%w: WORKER_COUNT must be at least 1", ErrInvalidConfig)
	}

	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("%w: PROMETHEUS_PORT must be between 1 and 65535", ErrInvalidConfig)
	}

	return nil
}

// MaskedDiscordWebhook returns the webhook URL with most characters hidden for logging.
func (c *Config) MaskedDiscordWebhook() string {
	return maskSecret(c.Discord.WebhookURL)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "15m").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
