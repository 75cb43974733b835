package report

import (
	"github.com/polyinsider/scout/internal/store"
)

// Required thresholds for the flat config dictionary.
const (
	requiredCondition = 0.8
	requiredFilter    = 0.7
)

// Condition is one entry or exit condition of a bot config.
type Condition struct {
	Condition string      `json:"condition"`
	Threshold interface{} `json:"threshold"`
	Required  bool        `json:"required"`
}

// SizingRule is one sizing entry of a bot config.
type SizingRule struct {
	Description string                 `json:"description"`
	Value       interface{}            `json:"value"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Filter is one market filter of a bot config.
type Filter struct {
	Filter   string      `json:"filter"`
	Value    interface{} `json:"value"`
	Required bool        `json:"required"`
}

// BotConfig is the flat dictionary handed to automated consumers.
type BotConfig struct {
	StrategyName    string       `json:"strategy_name"`
	StrategyType    string       `json:"strategy_type"`
	Capital         float64      `json:"capital"`
	RiskProfile     string       `json:"risk_profile"`
	EntryConditions []Condition  `json:"entry_conditions"`
	ExitConditions  []Condition  `json:"exit_conditions"`
	Sizing          []SizingRule `json:"sizing"`
	MarketFilters   []Filter     `json:"market_filters"`
	ExpectedWinRate float64      `json:"expected_win_rate"`
	TradesPerDay    float64      `json:"trades_per_day"`
	Replicability   float64      `json:"replicability"`
}

// ToConfig flattens a blueprint. Conditions are required above 0.8
// confidence and filters above 0.7.
func ToConfig(bp *store.StrategyBlueprint) BotConfig {
	cfg := BotConfig{
		StrategyName:    bp.Name,
		StrategyType:    string(bp.StrategyType),
		Capital:         bp.CapitalRequired,
		RiskProfile:     bp.RiskProfile,
		EntryConditions: conditions(bp.EntryRules),
		ExitConditions:  conditions(bp.ExitRules),
		Sizing:          make([]SizingRule, 0, len(bp.SizingRules)),
		MarketFilters:   make([]Filter, 0, len(bp.MarketFilters)),
		ExpectedWinRate: bp.WinRate,
		TradesPerDay:    bp.TradeFrequency,
		Replicability:   bp.ReplicabilityScore,
	}
	for _, r := range bp.SizingRules {
		cfg.Sizing = append(cfg.Sizing, SizingRule{Description: r.Condition, Value: rawValue(r.Value), Metadata: r.Metadata})
	}
	for _, r := range bp.MarketFilters {
		cfg.MarketFilters = append(cfg.MarketFilters, Filter{
			Filter:   r.Condition,
			Value:    rawValue(r.Value),
			Required: r.Confidence > requiredFilter,
		})
	}
	return cfg
}

func conditions(rules []store.Rule) []Condition {
	out := make([]Condition, 0, len(rules))
	for _, r := range rules {
		out = append(out, Condition{
			Condition: r.Condition,
			Threshold: rawValue(r.Value),
			Required:  r.Confidence > requiredCondition,
		})
	}
	return out
}

func rawValue(v store.RuleValue) interface{} {
	if v.Number != nil {
		return *v.Number
	}
	return v.Text
}
