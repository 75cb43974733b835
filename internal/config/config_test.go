package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyinsider/scout/internal/reverse"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(PolicyEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Pipeline.Analyzer.MinTrades)
	assert.Equal(t, 0.6, cfg.Pipeline.Reverse.MinConfidence)
	assert.Equal(t, 15*time.Minute, cfg.Watch.Interval)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, "(not set)", cfg.MaskedDiscordWebhook())
}

func TestLoadPolicyFile(t *testing.T) {
	path := writePolicy(t, `
analysis:
  min_trades: 25
  pair_window: 30s
signals:
  consistent_edge_min_days: 5
extraction:
  min_confidence: 0.75
  safety_factor: 2
ingest:
  rate_limit: 2
  cache_ttl: 1m
discord:
  cooldown: 2h
watch:
  interval: 5m
scan:
  min_win_rate: 0.7
workers: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Pipeline.Analyzer.MinTrades)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.Analyzer.PairWindow)
	// untouched keys keep their defaults
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.Analyzer.BurstBucket)
	assert.Equal(t, 5, cfg.Pipeline.Detector.ConsistentEdgeMinDays)
	assert.Equal(t, 0.75, cfg.Pipeline.Reverse.MinConfidence)
	assert.Equal(t, 2.0, cfg.Pipeline.Reverse.SafetyFactor)
	assert.Equal(t, 2.0, cfg.Ingest.RateLimit)
	assert.Equal(t, time.Minute, cfg.Ingest.CacheTTL)
	assert.Equal(t, 2*time.Hour, cfg.Discord.Cooldown)
	assert.Equal(t, 5*time.Minute, cfg.Watch.Interval)
	assert.Equal(t, 0.7, cfg.Scan.MinWinRate)
	assert.Equal(t, 8, cfg.Workers)
}

func TestPolicyFromEnvPath(t *testing.T) {
	t.Setenv(PolicyEnv, writePolicy(t, "workers: 3\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
}

func TestEnvOverridesPolicy(t *testing.T) {
	path := writePolicy(t, "workers: 3\nextraction:\n  min_evidence: 4\n")
	t.Setenv("WORKER_COUNT", "12")
	t.Setenv("MIN_CONFIDENCE", "0.9")
	t.Setenv("WATCH_INTERVAL", "90s")
	t.Setenv("ALERT_COOLDOWN_MINUTES", "5")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/123/abcdef")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Workers)
	assert.Equal(t, 4, cfg.Pipeline.Reverse.MinEvidence)
	assert.Equal(t, 0.9, cfg.Pipeline.Reverse.MinConfidence)
	assert.Equal(t, 90*time.Second, cfg.Watch.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Discord.Cooldown)
	assert.Equal(t, "http****cdef", cfg.MaskedDiscordWebhook())
}

func TestInvalidEnvValueKeepsDefault(t *testing.T) {
	t.Setenv(PolicyEnv, "")
	t.Setenv("PROMETHEUS_PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.MetricsPort)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writePolicy(t, "workers: [1, 2\n"))
	assert.Error(t, err)

	_, err = Load(writePolicy(t, "extraction:\n  min_confidence: 1.5\n"))
	assert.ErrorIs(t, err, reverse.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"workers":     func(c *Config) { c.Workers = 0 },
		"port":        func(c *Config) { c.MetricsPort = 70000 },
		"interval":    func(c *Config) { c.Watch.Interval = 0 },
		"burst":       func(c *Config) { c.Watch.BurstCount = 0 },
		"min trade":   func(c *Config) { c.Watch.MinTradeUSD = -1 },
		"win rate":    func(c *Config) { c.Scan.MinWinRate = 1.2 },
		"batch":       func(c *Config) { c.Discord.BatchEvery = 0 },
		"db path":     func(c *Config) { c.DBPath = "" },
		"live url":    func(c *Config) { c.Watch.LiveURL = "" },
		"scan profit": func(c *Config) { c.Scan.MinProfit = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "abcd****wxyz", maskSecret("abcdefghuvwxyz"))
}
