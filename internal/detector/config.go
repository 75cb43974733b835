package detector

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by New when a threshold is out of range.
var ErrInvalidConfig = errors.New("invalid detector config")

// Config holds the per-signal thresholds.
type Config struct {
	ProfitSpikeMultiplier float64 `yaml:"profit_spike_multiplier"`
	ProfitSpikeMinTrades  int     `yaml:"profit_spike_min_trades"`
	RecentDays            int     `yaml:"recent_days"`
	BaselineDays          int     `yaml:"baseline_days"`

	WinRateThreshold float64 `yaml:"win_rate_threshold"`
	WinRateMinTrades int     `yaml:"win_rate_min_trades"`
	WinRatePValue    float64 `yaml:"win_rate_p_value"`

	RapidGrowthMaxAgeDays int     `yaml:"rapid_growth_max_age_days"`
	RapidGrowthMinProfit  float64 `yaml:"rapid_growth_min_profit"`

	SpecialistThreshold float64 `yaml:"specialist_threshold"`

	FrequencyMultiplier   float64 `yaml:"frequency_multiplier"`
	FrequencyTrailingDays int     `yaml:"frequency_trailing_days"`

	ConsistentEdgeMinDays int `yaml:"consistent_edge_min_days"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ProfitSpikeMultiplier: 3.0,
		ProfitSpikeMinTrades:  10,
		RecentDays:            7,
		BaselineDays:          30,
		WinRateThreshold:      0.90,
		WinRateMinTrades:      100,
		WinRatePValue:         0.01,
		RapidGrowthMaxAgeDays: 60,
		RapidGrowthMinProfit:  10000,
		SpecialistThreshold:   0.80,
		FrequencyMultiplier:   5.0,
		FrequencyTrailingDays: 7,
		ConsistentEdgeMinDays: 7,
	}
}

// Validate checks that every threshold is usable.
func (c Config) Validate() error {
	switch {
	case c.ProfitSpikeMultiplier <= 0:
		return fmt.Errorf("%w: profit_spike_multiplier must be positive", ErrInvalidConfig)
	case c.ProfitSpikeMinTrades < 0:
		return fmt.Errorf("%w: profit_spike_min_trades must be non-negative", ErrInvalidConfig)
	case c.RecentDays < 1 || c.BaselineDays <= c.RecentDays:
		return fmt.Errorf("%w: need 1 <= recent_days < baseline_days, got %d and %d", ErrInvalidConfig, c.RecentDays, c.BaselineDays)
	case c.WinRateThreshold < 0 || c.WinRateThreshold > 1:
		return fmt.Errorf("%w: win_rate_threshold must be in [0, 1]", ErrInvalidConfig)
	case c.WinRateMinTrades < 1:
		return fmt.Errorf("%w: win_rate_min_trades must be >= 1", ErrInvalidConfig)
	case c.WinRatePValue <= 0 || c.WinRatePValue >= 1:
		return fmt.Errorf("%w: win_rate_p_value must be in (0, 1)", ErrInvalidConfig)
	case c.RapidGrowthMaxAgeDays < 1:
		return fmt.Errorf("%w: rapid_growth_max_age_days must be >= 1", ErrInvalidConfig)
	case c.RapidGrowthMinProfit <= 0:
		return fmt.Errorf("%w: rapid_growth_min_profit must be positive", ErrInvalidConfig)
	case c.SpecialistThreshold <= 0 || c.SpecialistThreshold > 1:
		return fmt.Errorf("%w: specialist_threshold must be in (0, 1]", ErrInvalidConfig)
	case c.FrequencyMultiplier <= 0:
		return fmt.Errorf("%w: frequency_multiplier must be positive", ErrInvalidConfig)
	case c.FrequencyTrailingDays < 1:
		return fmt.Errorf("%w: frequency_trailing_days must be >= 1", ErrInvalidConfig)
	case c.ConsistentEdgeMinDays < 1:
		return fmt.Errorf("%w: consistent_edge_min_days must be >= 1", ErrInvalidConfig)
	}
	return nil
}
