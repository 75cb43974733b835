// Package reverse extracts replicable rules from a wallet's trades and
// assembles them into a strategy blueprint.
package reverse

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by the constructors when a setting is out of range.
var ErrInvalidConfig = errors.New("invalid reverse config")

// Config controls rule extraction and blueprint assembly.
type Config struct {
	// Every rule below either floor is discarded.
	MinConfidence float64 `yaml:"min_confidence"`
	MinEvidence   int     `yaml:"min_evidence"`

	// Entry extraction
	PairWindow       time.Duration `yaml:"pair_window"`
	ArbPercentile    float64       `yaml:"arb_percentile"`
	MultiMinOutcomes int           `yaml:"multi_min_outcomes"`
	RapidGap         time.Duration `yaml:"rapid_gap"`
	RapidFraction    float64       `yaml:"rapid_fraction"`

	// Exit extraction: a mode is clear when it beats the runner-up peak by this factor
	ModeDominance float64 `yaml:"mode_dominance"`

	// Sizing extraction
	CompoundMinTrades int     `yaml:"compound_min_trades"`
	CompoundGrowth    float64 `yaml:"compound_growth"`

	// Market filters
	FilterFrequency float64 `yaml:"filter_frequency"`
	FilterMinLift   float64 `yaml:"filter_min_lift"`
	MarketTypeShare float64 `yaml:"market_type_share"`
	KeywordMinLen   int     `yaml:"keyword_min_len"`

	// Assembly
	SafetyFactor float64 `yaml:"safety_factor"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence:     0.6,
		MinEvidence:       10,
		PairWindow:        60 * time.Second,
		ArbPercentile:     0.90,
		MultiMinOutcomes:  3,
		RapidGap:          10 * time.Second,
		RapidFraction:     0.3,
		ModeDominance:     1.5,
		CompoundMinTrades: 100,
		CompoundGrowth:    1.5,
		FilterFrequency:   0.5,
		FilterMinLift:     2.0,
		MarketTypeShare:   0.7,
		KeywordMinLen:     4,
		SafetyFactor:      1.5,
	}
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	switch {
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("%w: min_confidence must be in [0, 1], got %v", ErrInvalidConfig, c.MinConfidence)
	case c.MinEvidence < 0:
		return fmt.Errorf("%w: min_evidence must be non-negative, got %d", ErrInvalidConfig, c.MinEvidence)
	case c.PairWindow <= 0:
		return fmt.Errorf("%w: pair_window must be positive", ErrInvalidConfig)
	case c.ArbPercentile <= 0 || c.ArbPercentile > 1:
		return fmt.Errorf("%w: arb_percentile must be in (0, 1]", ErrInvalidConfig)
	case c.MultiMinOutcomes < 3:
		return fmt.Errorf("%w: multi_min_outcomes must be >= 3", ErrInvalidConfig)
	case c.RapidGap <= 0:
		return fmt.Errorf("%w: rapid_gap must be positive", ErrInvalidConfig)
	case c.RapidFraction < 0 || c.RapidFraction > 1:
		return fmt.Errorf("%w: rapid_fraction must be in [0, 1]", ErrInvalidConfig)
	case c.ModeDominance < 1:
		return fmt.Errorf("%w: mode_dominance must be >= 1", ErrInvalidConfig)
	case c.CompoundMinTrades < 3 || c.CompoundGrowth <= 1:
		return fmt.Errorf("%w: compounding needs >= 3 trades and growth > 1", ErrInvalidConfig)
	case c.FilterFrequency < 0 || c.FilterFrequency > 1:
		return fmt.Errorf("%w: filter_frequency must be in [0, 1]", ErrInvalidConfig)
	case c.FilterMinLift < 1:
		return fmt.Errorf("%w: filter_min_lift must be >= 1", ErrInvalidConfig)
	case c.MarketTypeShare < 0 || c.MarketTypeShare > 1:
		return fmt.Errorf("%w: market_type_share must be in [0, 1]", ErrInvalidConfig)
	case c.KeywordMinLen < 1:
		return fmt.Errorf("%w: keyword_min_len must be >= 1", ErrInvalidConfig)
	case c.SafetyFactor < 1:
		return fmt.Errorf("%w: safety_factor must be >= 1, got %v", ErrInvalidConfig, c.SafetyFactor)
	}
	return nil
}
