package reverse

import (
	"sort"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/store"
)

// Input is everything the extractor may use. Only Trades is required.
type Input struct {
	Trades []store.Trade

	// Strategy narrows entry extraction; empty or UNKNOWN runs every extractor.
	Strategy store.StrategyType

	// Sizing is reused when the caller already ran the sizing analyzer.
	Sizing *analyzer.SizingAnalysis

	// BaseRates maps a keyword or category to its share of trades across the
	// whole venue. Without it market filters fall back to plain frequency.
	BaseRates map[string]float64
}

// RuleSet is the gated output of the extractor.
type RuleSet struct {
	Entry   []store.Rule `json:"entry"`
	Exit    []store.Rule `json:"exit"`
	Sizing  []store.Rule `json:"sizing"`
	Filters []store.Rule `json:"filters"`

	// PeakExposure is the worst simultaneous open exposure observed
	PeakExposure float64 `json:"peak_exposure"`

	// Dropped counts candidate rules that failed the confidence/evidence gate
	Dropped int `json:"dropped"`
}

// All returns every retained rule in kind order.
func (r RuleSet) All() []store.Rule {
	all := make([]store.Rule, 0, len(r.Entry)+len(r.Exit)+len(r.Sizing)+len(r.Filters))
	all = append(all, r.Entry...)
	all = append(all, r.Exit...)
	all = append(all, r.Sizing...)
	return append(all, r.Filters...)
}

// Extractor turns trades into confidence-scored rules.
type Extractor struct {
	cfg Config
	an  *analyzer.Analyzer
}

// NewExtractor validates cfg. an runs the sizing analysis when Input.Sizing
// is nil; a nil an uses the analyzer defaults.
func NewExtractor(cfg Config, an *analyzer.Analyzer) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if an == nil {
		var err error
		if an, err = analyzer.New(analyzer.DefaultConfig()); err != nil {
			return nil, err
		}
	}
	return &Extractor{cfg: cfg, an: an}, nil
}

// Config returns the extractor's configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Extract produces the gated rule set for in.
func (e *Extractor) Extract(in Input) RuleSet {
	var out RuleSet

	sizing := in.Sizing
	if sizing == nil {
		s := e.an.Sizing(in.Trades)
		sizing = &s
	}
	out.PeakExposure = PeakExposure(in.Trades)

	var dropped int
	out.Entry, dropped = e.gate(e.EntryRules(in.Trades, in.Strategy))
	out.Dropped += dropped
	out.Exit, dropped = e.gate(e.ExitRules(in.Trades))
	out.Dropped += dropped
	out.Sizing, dropped = e.gate(e.SizingRules(in.Trades, *sizing, out.PeakExposure))
	out.Dropped += dropped
	out.Filters, dropped = e.gate(e.MarketFilters(in.Trades, in.BaseRates))
	out.Dropped += dropped
	return out
}

// gate keeps rules that clear both the confidence and the evidence floor,
// strongest first.
func (e *Extractor) gate(rules []store.Rule) ([]store.Rule, int) {
	kept := make([]store.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Confidence >= e.cfg.MinConfidence && r.EvidenceCount >= e.cfg.MinEvidence {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Confidence > kept[j].Confidence })
	return kept, len(rules) - len(kept)
}
