// Package pipeline composes the analysis stages into a single wallet report
// and fans batches of wallets out over a bounded worker pool.
package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/detector"
	"github.com/polyinsider/scout/internal/reverse"
	"github.com/polyinsider/scout/internal/store"
)

// Config bundles the per-stage policies.
type Config struct {
	Analyzer analyzer.Config `yaml:"analysis"`
	Detector detector.Config `yaml:"signals"`
	Reverse  reverse.Config  `yaml:"extraction"`
}

// DefaultConfig returns every stage's defaults.
func DefaultConfig() Config {
	return Config{
		Analyzer: analyzer.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Reverse:  reverse.DefaultConfig(),
	}
}

// Input is one wallet's data.
type Input struct {
	Wallet  string
	Trades  []store.Trade
	Summary *store.WalletSummary

	// AsOf anchors trailing windows; zero uses the latest trade timestamp.
	AsOf time.Time

	// BaseRates feed the market-filter lift test; optional.
	BaseRates map[string]float64
}

// Report is the full result for one wallet.
type Report struct {
	Wallet      string                   `json:"wallet"`
	GeneratedAt time.Time                `json:"generated_at"`
	Summary     *store.WalletSummary     `json:"summary,omitempty"`
	Analysis    analyzer.WalletAnalysis  `json:"analysis"`
	Signals     []store.Signal           `json:"signals"`
	AlphaScore  float64                  `json:"alpha_score"`
	Rules       reverse.RuleSet          `json:"rules"`
	Blueprint   *store.StrategyBlueprint `json:"blueprint,omitempty"`
}

// Pipeline runs analyzer, detector, extractor and assembler in order.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	cfg       Config
	analyzer  *analyzer.Analyzer
	detector  *detector.Detector
	extractor *reverse.Extractor
	assembler *reverse.Assembler
}

// New validates every stage configuration.
func New(cfg Config) (*Pipeline, error) {
	an, err := analyzer.New(cfg.Analyzer)
	if err != nil {
		return nil, err
	}
	det, err := detector.New(cfg.Detector)
	if err != nil {
		return nil, err
	}
	ext, err := reverse.NewExtractor(cfg.Reverse, an)
	if err != nil {
		return nil, err
	}
	asm, err := reverse.NewAssembler(cfg.Reverse)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, analyzer: an, detector: det, extractor: ext, assembler: asm}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run analyzes one wallet. The blueprint is nil when there is not enough
// data to classify the wallet.
func (p *Pipeline) Run(in Input) Report {
	wallet := in.Wallet
	if wallet == "" && in.Summary != nil {
		wallet = in.Summary.Address
	}
	if wallet == "" && len(in.Trades) > 0 {
		wallet = in.Trades[0].Wallet
	}
	wallet = store.NormalizeAddress(wallet)

	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = latest(in.Trades)
	}

	timing := p.analyzer.Timing(in.Trades)
	sizing := p.analyzer.Sizing(in.Trades)
	analysis := p.analyzer.AnalyzeWallet(in.Trades, &analyzer.Precomputed{Timing: &timing, Sizing: &sizing})
	analysis.Wallet = wallet

	signals := p.detector.DetectAll(in.Summary, in.Trades, asOf)
	if signals == nil {
		signals = []store.Signal{}
	}

	rep := Report{
		Wallet:      wallet,
		GeneratedAt: asOf,
		Summary:     in.Summary,
		Analysis:    analysis,
		Signals:     signals,
		AlphaScore:  detector.AlphaScore(signals),
	}
	if analysis.InsufficientData {
		return rep
	}

	rep.Rules = p.extractor.Extract(reverse.Input{
		Trades:    in.Trades,
		Strategy:  analysis.StrategyType,
		Sizing:    &sizing,
		BaseRates: in.BaseRates,
	})
	rep.Blueprint = p.assembler.Assemble(reverse.AssemblyInput{
		Wallet:   wallet,
		Summary:  in.Summary,
		Analysis: analysis,
		Rules:    rep.Rules,
		AsOf:     asOf,
	})
	return rep
}

// Record flattens the report into a persisted analysis row.
func (r Report) Record(analyzedAt time.Time) (store.AnalysisRecord, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return store.AnalysisRecord{}, fmt.Errorf("encoding report: %w", err)
	}
	return store.AnalysisRecord{
		Address:      r.Wallet,
		AnalyzedAt:   analyzedAt.UTC(),
		StrategyType: r.Analysis.StrategyType,
		Confidence:   r.Analysis.Confidence,
		AlphaScore:   r.AlphaScore,
		WinRate:      r.Analysis.WinRate,
		TradeCount:   r.Analysis.TradeCount,
		UsableCount:  r.Analysis.DataQuality.Usable,
		TotalPnL:     r.Analysis.TotalPnL,
		ReportJSON:   string(body),
	}, nil
}

func latest(trades []store.Trade) time.Time {
	var t time.Time
	for _, tr := range trades {
		if tr.Timestamp.After(t) {
			t = tr.Timestamp
		}
	}
	return t
}
