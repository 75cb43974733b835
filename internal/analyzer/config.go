// Package analyzer characterizes a wallet's trade sequence and classifies
// the strategy that produced it.
package analyzer

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by New when a threshold is out of range.
var ErrInvalidConfig = errors.New("invalid analyzer config")

// Config holds every threshold used by the analyzers and the classifier.
type Config struct {
	// MinTrades is the minimum number of usable trades required to classify.
	MinTrades int `yaml:"min_trades"`

	// PairWindow is the maximum gap between the YES and NO legs of a paired purchase.
	PairWindow time.Duration `yaml:"pair_window"`

	// BurstBucket is the bucket width used by the burst score (one calendar day by default).
	BurstBucket time.Duration `yaml:"burst_bucket"`

	// Classifier thresholds
	ArbWinRate        float64       `yaml:"arb_win_rate"`
	ArbPairedFraction float64       `yaml:"arb_paired_fraction"`
	ArbMaxHold        time.Duration `yaml:"arb_max_hold"`
	MMMakerRatio      float64       `yaml:"mm_maker_ratio"`
	MMTwoSided        float64       `yaml:"mm_two_sided"`
	SniperBurst       float64       `yaml:"sniper_burst"`
	SniperMinMarkets  int           `yaml:"sniper_min_markets"`
	DirectionalGini   float64       `yaml:"directional_gini"`

	// Sizing ladder thresholds
	FixedCV            float64 `yaml:"fixed_cv"`
	MartingaleLow      float64 `yaml:"martingale_low"`
	MartingaleHigh     float64 `yaml:"martingale_high"`
	MartingaleFraction float64 `yaml:"martingale_fraction"`
	ProgressiveCorr    float64 `yaml:"progressive_corr"`
	KellyCorr          float64 `yaml:"kelly_corr"`
	KellyWindow        int     `yaml:"kelly_window"`

	// Edge caps in percent per trade
	ArbEdgeCap float64 `yaml:"arb_edge_cap"`
	MMEdgeCap  float64 `yaml:"mm_edge_cap"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MinTrades:          10,
		PairWindow:         60 * time.Second,
		BurstBucket:        24 * time.Hour,
		ArbWinRate:         0.95,
		ArbPairedFraction:  0.6,
		ArbMaxHold:         time.Hour,
		MMMakerRatio:       0.7,
		MMTwoSided:         0.5,
		SniperBurst:        0.7,
		SniperMinMarkets:   10,
		DirectionalGini:    0.5,
		FixedCV:            0.15,
		MartingaleLow:      1.8,
		MartingaleHigh:     2.2,
		MartingaleFraction: 0.6,
		ProgressiveCorr:    0.5,
		KellyCorr:          0.6,
		KellyWindow:        10,
		ArbEdgeCap:         5.0,
		MMEdgeCap:          3.0,
	}
}

// Validate checks that every threshold is usable.
func (c Config) Validate() error {
	if c.MinTrades < 1 {
		return fmt.Errorf("%w: min_trades must be >= 1, got %d", ErrInvalidConfig, c.MinTrades)
	}
	if c.PairWindow <= 0 {
		return fmt.Errorf("%w: pair_window must be positive", ErrInvalidConfig)
	}
	if c.BurstBucket <= 0 {
		return fmt.Errorf("%w: burst_bucket must be positive", ErrInvalidConfig)
	}
	if c.ArbMaxHold <= 0 {
		return fmt.Errorf("%w: arb_max_hold must be positive", ErrInvalidConfig)
	}

	fractions := map[string]float64{
		"arb_win_rate":        c.ArbWinRate,
		"arb_paired_fraction": c.ArbPairedFraction,
		"mm_maker_ratio":      c.MMMakerRatio,
		"mm_two_sided":        c.MMTwoSided,
		"sniper_burst":        c.SniperBurst,
		"directional_gini":    c.DirectionalGini,
		"martingale_fraction": c.MartingaleFraction,
		"progressive_corr":    c.ProgressiveCorr,
		"kelly_corr":          c.KellyCorr,
	}
	for name, v := range fractions {
		if v < 0 || v >= 1 {
			return fmt.Errorf("%w: %s must be in [0, 1), got %v", ErrInvalidConfig, name, v)
		}
	}

	if c.SniperMinMarkets < 1 {
		return fmt.Errorf("%w: sniper_min_markets must be >= 1", ErrInvalidConfig)
	}
	if c.FixedCV < 0 {
		return fmt.Errorf("%w: fixed_cv must be non-negative", ErrInvalidConfig)
	}
	if c.MartingaleLow <= 0 || c.MartingaleHigh < c.MartingaleLow {
		return fmt.Errorf("%w: martingale ratio band [%v, %v] is invalid", ErrInvalidConfig, c.MartingaleLow, c.MartingaleHigh)
	}
	if c.KellyWindow < 2 {
		return fmt.Errorf("%w: kelly_window must be >= 2", ErrInvalidConfig)
	}
	if c.ArbEdgeCap < 0 || c.MMEdgeCap < 0 {
		return fmt.Errorf("%w: edge caps must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// Analyzer runs the timing, sizing and concentration analyses and the
// strategy classifier under one configuration. It holds no mutable state
// and is safe for concurrent use.
type Analyzer struct {
	cfg Config
}

// New validates cfg and returns an Analyzer.
func New(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg}, nil
}

// Config returns the analyzer's configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}
