package store

// StrategyType is the classifier's terminal label.
type StrategyType string

const (
	StrategyArbitrage    StrategyType = "ARBITRAGE"
	StrategyMarketMaking StrategyType = "MARKET_MAKING"
	StrategySniper       StrategyType = "SNIPER"
	StrategyDirectional  StrategyType = "DIRECTIONAL"
	StrategyUnknown      StrategyType = "UNKNOWN"
)

// RuleKind groups extracted rules.
type RuleKind string

const (
	RuleEntry        RuleKind = "entry"
	RuleExit         RuleKind = "exit"
	RuleSizing       RuleKind = "sizing"
	RuleMarketFilter RuleKind = "market_filter"
)

// RuleKinds lists all rule kinds in blueprint order.
var RuleKinds = []RuleKind{RuleEntry, RuleExit, RuleSizing, RuleMarketFilter}

// RuleValue is the concrete threshold of a rule. Exactly one of Number or
// Text is meaningful; Text is used for categorical rules (keywords, modes).
type RuleValue struct {
	Number *float64 `json:"number,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// NumberValue builds a numeric rule value.
func NumberValue(v float64) RuleValue { return RuleValue{Number: Float(v)} }

// TextValue builds a categorical rule value.
func TextValue(s string) RuleValue { return RuleValue{Text: s} }

// Rule is one extracted strategy component.
type Rule struct {
	Kind          RuleKind               `json:"kind"`
	Condition     string                 `json:"condition"`
	Value         RuleValue              `json:"value"`
	Confidence    float64                `json:"confidence"`
	EvidenceCount int                    `json:"evidence_count"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// Edge is the estimated edge of a blueprint.
type Edge struct {
	PerTradePct float64 `json:"per_trade_pct"`
	PerTradePnL float64 `json:"per_trade_pnl"`
	DailyPnL    float64 `json:"daily_pnl"`
}

// StrategyBlueprint is the top-level reverse-engineering output.
// It is built once and never mutated afterwards.
type StrategyBlueprint struct {
	Name               string       `json:"name"`
	Wallet             string       `json:"wallet"`
	StrategyType       StrategyType `json:"strategy_type"`
	Confidence         float64      `json:"confidence"`
	EntryRules         []Rule       `json:"entry_rules"`
	ExitRules          []Rule       `json:"exit_rules"`
	SizingRules        []Rule       `json:"sizing_rules"`
	MarketFilters      []Rule       `json:"market_filters"`
	EstimatedEdge      Edge         `json:"estimated_edge"`
	CapitalRequired    float64      `json:"capital_required"`
	PeakExposure       float64      `json:"peak_exposure"`
	ReplicabilityScore float64      `json:"replicability_score"`
	Timeframe          string       `json:"timeframe"`
	TradeFrequency     float64      `json:"trade_frequency"`
	WinRate            float64      `json:"win_rate"`
	RiskProfile        string       `json:"risk_profile"`
	Notes              []string     `json:"notes,omitempty"`
}

// Rules returns every rule of the blueprint in kind order.
func (b *StrategyBlueprint) Rules() []Rule {
	all := make([]Rule, 0, len(b.EntryRules)+len(b.ExitRules)+len(b.SizingRules)+len(b.MarketFilters))
	all = append(all, b.EntryRules...)
	all = append(all, b.ExitRules...)
	all = append(all, b.SizingRules...)
	all = append(all, b.MarketFilters...)
	return all
}
