package reverse

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/store"
)

var base = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func newExtractor(t *testing.T, mutate ...func(*Config)) *Extractor {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := NewExtractor(cfg, nil)
	require.NoError(t, err)
	return e
}

func buy(ts time.Time, market, outcome string, size, price float64) store.Trade {
	return store.Trade{
		Wallet:    "0xfeedfacecafebeef",
		Timestamp: ts,
		MarketID:  market,
		Outcome:   outcome,
		Side:      store.SideBuy,
		Size:      store.Float(size),
		Price:     store.Float(price),
	}
}

func sell(ts time.Time, market, outcome string, size, price float64) store.Trade {
	t := buy(ts, market, outcome, size, price)
	t.Side = store.SideSell
	return t
}

func arbitrageTrades() []store.Trade {
	var trades []store.Trade
	for i := 0; i < 50; i++ {
		ts := base.Add(time.Duration(i) * 2 * time.Hour)
		market := fmt.Sprintf("m%d", i)
		yesPx := 0.47
		noPx := 0.47 + float64(i%4)*0.01
		pnl := 100 * (1 - (yesPx + noPx)) / 2

		yes := buy(ts, market, store.OutcomeYes, 100, yesPx)
		yes.RealizedPnL = store.Float(pnl)
		yes.ExitTimestamp = store.Time(ts.Add(30 * time.Minute))
		no := buy(ts.Add(10*time.Second), market, store.OutcomeNo, 100, noPx)
		no.RealizedPnL = store.Float(pnl)
		no.ExitTimestamp = store.Time(ts.Add(10*time.Second + 30*time.Minute))
		trades = append(trades, yes, no)
	}
	return trades
}

func findRule(rules []store.Rule, typ string) (store.Rule, bool) {
	for _, r := range rules {
		if r.Metadata["type"] == typ {
			return r, true
		}
	}
	return store.Rule{}, false
}

func TestConstructorsRejectInvalidConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"confidence above one":  func(c *Config) { c.MinConfidence = 1.5 },
		"negative evidence":     func(c *Config) { c.MinEvidence = -1 },
		"zero pair window":      func(c *Config) { c.PairWindow = 0 },
		"two outcome multi arb": func(c *Config) { c.MultiMinOutcomes = 2 },
		"safety below one":      func(c *Config) { c.SafetyFactor = 0.5 },
		"lift below one":        func(c *Config) { c.FilterMinLift = 0.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := NewExtractor(cfg, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			_, err = NewAssembler(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestBinaryArbThresholdIsHighPercentile(t *testing.T) {
	e := newExtractor(t)
	trades := arbitrageTrades()

	rules := e.EntryRules(trades, store.StrategyArbitrage)
	r, ok := findRule(rules, "binary_arbitrage")
	require.True(t, ok)

	var sums []float64
	for _, p := range analyzer.FindPairs(trades, time.Minute) {
		sums = append(sums, p.Sum)
	}
	require.Len(t, sums, 50)
	want := analyzer.Quantile(sums, 0.9)

	require.NotNil(t, r.Value.Number)
	assert.InDelta(t, want, *r.Value.Number, 1e-12)
	assert.GreaterOrEqual(t, r.Confidence, 0.76)
	assert.LessOrEqual(t, r.Confidence, 1.0)
	assert.Greater(t, r.EvidenceCount, 0)

	hedge, ok := findRule(rules, "paired_hedge")
	require.True(t, ok)
	assert.InDelta(t, 1.0, hedge.Confidence, 1e-9)
	assert.Equal(t, 100, hedge.EvidenceCount)
}

func TestMultiOutcomeArb(t *testing.T) {
	e := newExtractor(t)
	var trades []store.Trade
	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		trades = append(trades,
			buy(ts, "election", "alice", 100, 0.25),
			buy(ts.Add(5*time.Second), "election", "bob", 100, 0.25),
			buy(ts.Add(10*time.Second), "election", "carol", 100, 0.375),
		)
	}

	r, ok := findRule(e.EntryRules(trades, store.StrategyArbitrage), "multi_arbitrage")
	require.True(t, ok)
	assert.InDelta(t, 0.875, *r.Value.Number, 1e-12)
	assert.InDelta(t, 1.0, r.Confidence, 1e-12)
	assert.Equal(t, 30, r.EvidenceCount)
	assert.InDelta(t, 3.0, r.Metadata["avg_outcomes"], 1e-12)
}

func TestDirectionalEntryPicksBestCeiling(t *testing.T) {
	e := newExtractor(t)
	var trades []store.Trade
	for i := 0; i < 20; i++ {
		win := buy(base.Add(time.Duration(i)*time.Hour), fmt.Sprintf("w%d", i), store.OutcomeYes, 100, 0.3)
		win.RealizedPnL = store.Float(50)
		lose := buy(base.Add(time.Duration(i)*time.Hour+time.Minute), fmt.Sprintf("l%d", i), store.OutcomeYes, 100, 0.7)
		lose.RealizedPnL = store.Float(-100)
		trades = append(trades, win, lose)
	}

	r, ok := findRule(e.EntryRules(trades, store.StrategyDirectional), "directional")
	require.True(t, ok)
	assert.InDelta(t, 0.3, *r.Value.Number, 1e-12)
	assert.InDelta(t, 1.0, r.Confidence, 1e-12)
	assert.Equal(t, 20, r.EvidenceCount)
}

func TestSniperEntry(t *testing.T) {
	e := newExtractor(t)
	var trades []store.Trade
	for i := 0; i < 30; i++ {
		trades = append(trades, buy(base.Add(time.Duration(i)*5*time.Second), fmt.Sprintf("m%d", i), store.OutcomeYes, 10, 0.5))
	}
	r, ok := findRule(e.EntryRules(trades, store.StrategySniper), "event_triggered")
	require.True(t, ok)
	assert.InDelta(t, 1.0, r.Confidence, 1e-12)
	assert.Equal(t, 29, r.EvidenceCount)
}

func TestHoldToResolution(t *testing.T) {
	e := newExtractor(t)
	rules := e.ExitRules(arbitrageTrades())

	hold, ok := findRule(rules, "hold_to_resolution")
	require.True(t, ok)
	assert.InDelta(t, 1.0, hold.Confidence, 1e-12)
	assert.Equal(t, 100, hold.EvidenceCount)
	assert.Equal(t, "resolution", hold.Value.Text)

	timed, ok := findRule(rules, "time_based")
	require.True(t, ok)
	assert.InDelta(t, 1800, *timed.Value.Number, 1e-9)
	assert.InDelta(t, 1.0, timed.Confidence, 1e-9)
}

func TestSettlementsAreNotEarlyExits(t *testing.T) {
	e := newExtractor(t)
	var trades []store.Trade
	for i := 0; i < 10; i++ {
		m := fmt.Sprintf("r%d", i)
		ts := base.Add(time.Duration(i) * time.Hour)
		redeem := sell(ts.Add(24*time.Hour), m, store.OutcomeYes, 250, 1)
		redeem.Settlement = true
		trades = append(trades, buy(ts, m, store.OutcomeYes, 100, 0.4), redeem)
	}

	assert.Empty(t, roundTrips(trades))

	held, markets, buys := heldToResolution(trades)
	assert.Equal(t, 10, held)
	assert.Equal(t, 10, markets)
	assert.Equal(t, 10, buys)

	rules := e.ExitRules(trades)
	require.Len(t, rules, 1)
	assert.Equal(t, "hold_to_resolution", rules[0].Metadata["type"])
}

func TestProfitTargetAndStopLoss(t *testing.T) {
	e := newExtractor(t)
	var trades []store.Trade
	for i := 0; i < 30; i++ {
		m := fmt.Sprintf("g%d", i)
		ts := base.Add(time.Duration(i) * 3 * time.Hour)
		trades = append(trades, buy(ts, m, store.OutcomeYes, 100, 0.5), sell(ts.Add(time.Hour), m, store.OutcomeYes, 100, 0.6))
	}
	for i := 0; i < 12; i++ {
		m := fmt.Sprintf("s%d", i)
		ts := base.Add(time.Duration(i)*3*time.Hour + 30*time.Minute)
		trades = append(trades, buy(ts, m, store.OutcomeYes, 100, 0.5), sell(ts.Add(time.Hour), m, store.OutcomeYes, 100, 0.45))
	}

	rules := e.ExitRules(trades)
	_, held := findRule(rules, "hold_to_resolution")
	assert.False(t, held)

	tp, ok := findRule(rules, "profit_target")
	require.True(t, ok)
	assert.InDelta(t, 20, *tp.Value.Number, 1e-6)
	assert.InDelta(t, 1.0, tp.Confidence, 1e-12)
	assert.Equal(t, 30, tp.EvidenceCount)

	sl, ok := findRule(rules, "stop_loss")
	require.True(t, ok)
	assert.InDelta(t, -10, *sl.Value.Number, 1e-6)
	assert.Equal(t, 12, sl.EvidenceCount)

	timed, ok := findRule(rules, "time_based")
	require.True(t, ok)
	assert.InDelta(t, 3600, *timed.Value.Number, 1e-9)
	assert.Equal(t, 42, timed.EvidenceCount)
}

func TestFindModeClearPeak(t *testing.T) {
	var samples []float64
	for i := 0; i <= 20; i++ {
		samples = append(samples, 19.5+0.05*float64(i))
	}
	samples = append(samples, 60)

	mode, ok := findMode(samples, 1.5)
	require.True(t, ok)
	assert.InDelta(t, 20, mode.Value, 0.2)
	assert.Greater(t, mode.Support, 10)
	assert.LessOrEqual(t, mode.Support, 21)
	assert.Equal(t, 2, mode.Peaks)

	again, _ := findMode(samples, 1.5)
	assert.Equal(t, mode, again)
}

func TestFindModeAmbiguous(t *testing.T) {
	var samples []float64
	for i := 0; i < 10; i++ {
		samples = append(samples, 10, 30)
	}
	_, ok := findMode(samples, 1.5)
	assert.False(t, ok)

	mode, ok := findMode([]float64{7, 7, 7}, 1.5)
	require.True(t, ok)
	assert.Equal(t, 7.0, mode.Value)
	assert.Equal(t, 3, mode.Support)

	_, ok = findMode(nil, 1.5)
	assert.False(t, ok)
}

func TestPeakExposure(t *testing.T) {
	a := buy(base, "a", store.OutcomeYes, 100, 0.5)
	a.ExitTimestamp = store.Time(base.Add(2 * time.Hour))
	b := buy(base.Add(time.Hour), "b", store.OutcomeYes, 50, 0.5)
	b.ExitTimestamp = store.Time(base.Add(3 * time.Hour))
	c := buy(base.Add(3*time.Hour), "c", store.OutcomeYes, 30, 0.5)

	assert.InDelta(t, 150, PeakExposure([]store.Trade{c, b, a}), 1e-9)

	// a close and an open at the same instant do not stack
	d := buy(base.Add(2*time.Hour), "d", store.OutcomeYes, 100, 0.5)
	assert.InDelta(t, 100, PeakExposure([]store.Trade{a, d}), 1e-9)

	assert.Zero(t, PeakExposure(nil))
}

func TestSizingRules(t *testing.T) {
	e := newExtractor(t)
	s := analyzer.SizingAnalysis{Samples: 20, Pattern: analyzer.SizingFixed, CV: 0.05, AvgSize: 100}

	rules := e.SizingRules(nil, s, 250)
	fixed, ok := findRule(rules, "fixed")
	require.True(t, ok)
	assert.InDelta(t, 0.95, fixed.Confidence, 1e-12)
	assert.InDelta(t, 100, *fixed.Value.Number, 1e-12)

	exposure, ok := findRule(rules, "max_exposure")
	require.True(t, ok)
	assert.InDelta(t, 250, *exposure.Value.Number, 1e-12)
	assert.Zero(t, exposure.Confidence)

	assert.Empty(t, e.SizingRules(nil, analyzer.SizingAnalysis{}, 0))
}

func TestMaxExposureConfidence(t *testing.T) {
	e := newExtractor(t)
	s := analyzer.SizingAnalysis{Samples: 20, Pattern: analyzer.SizingFixed, CV: 0.05, AvgSize: 100}

	var steady []store.Trade
	for i := 0; i < 20; i++ {
		b := buy(base.Add(time.Duration(i)*time.Hour), fmt.Sprintf("m%d", i), store.OutcomeYes, 100, 0.5)
		b.ExitTimestamp = store.Time(b.Timestamp.Add(time.Hour))
		steady = append(steady, b)
	}
	peak := PeakExposure(steady)
	assert.InDelta(t, 100, peak, 1e-9)

	capped, ok := findRule(e.SizingRules(steady, s, peak), "max_exposure")
	require.True(t, ok)
	assert.InDelta(t, 1.0, capped.Confidence, 1e-12)
	assert.Equal(t, 20, capped.EvidenceCount)

	spike := buy(base.Add(5*time.Hour+30*time.Minute), "big", store.OutcomeYes, 400, 0.5)
	spike.ExitTimestamp = store.Time(base.Add(6 * time.Hour))
	spiky := append(append([]store.Trade(nil), steady...), spike)
	peak = PeakExposure(spiky)
	assert.InDelta(t, 500, peak, 1e-9)

	once, ok := findRule(e.SizingRules(spiky, s, peak), "max_exposure")
	require.True(t, ok)
	assert.InDelta(t, 1.0/21, once.Confidence, 1e-12)
	assert.Equal(t, 21, once.EvidenceCount)
	assert.Less(t, once.Confidence, e.Config().MinConfidence)
}

func TestCompoundingRule(t *testing.T) {
	e := newExtractor(t)
	var trades []store.Trade
	for i := 0; i < 120; i++ {
		trades = append(trades, buy(base.Add(time.Duration(i)*time.Hour), "m", store.OutcomeYes, 10+float64(i), 0.5))
	}
	r, ok := findRule(e.SizingRules(trades, analyzer.SizingAnalysis{Samples: 120}, 0), "compounding")
	require.True(t, ok)
	assert.InDelta(t, 109.5/29.5, *r.Value.Number, 1e-9)
	assert.InDelta(t, 1.0, r.Confidence, 1e-9)
	assert.Equal(t, 120, r.EvidenceCount)
}

func TestMarketFilters(t *testing.T) {
	e := newExtractor(t)
	var trades []store.Trade
	for i := 0; i < 20; i++ {
		tr := buy(base.Add(time.Duration(i)*time.Hour), fmt.Sprintf("m%d", i), store.OutcomeYes, 10, 0.5)
		tr.MarketTitle = store.String("Will Bitcoin close above 100k on Friday?")
		tr.Category = store.String("Crypto")
		tr.MarketType = store.MarketBinary
		trades = append(trades, tr)
	}

	rules := e.MarketFilters(trades, nil)
	values := map[string]float64{}
	for _, r := range rules {
		values[r.Value.Text] = r.Confidence
	}
	assert.Contains(t, values, "crypto")
	assert.Contains(t, values, "bitcoin")
	assert.Contains(t, values, "friday")
	assert.NotContains(t, values, "will")
	assert.NotContains(t, values, "above")
	assert.InDelta(t, 1.0, values[store.MarketBinary], 1e-12)

	withBase := e.MarketFilters(trades, map[string]float64{"crypto": 0.1, "bitcoin": 0.8})
	values = map[string]float64{}
	for _, r := range withBase {
		values[r.Value.Text] = r.Confidence
	}
	assert.InDelta(t, 0.9, values["crypto"], 1e-9)
	assert.NotContains(t, values, "bitcoin")
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"trump", "wins", "election", "2028"}, Keywords("Trump wins the election? Trump 2028", 4))
	assert.Empty(t, Keywords("", 4))
}

func TestExtractRespectsGate(t *testing.T) {
	floors := []struct {
		conf float64
		ev   int
	}{{0.6, 10}, {0.95, 40}, {0.99, 100}, {0, 0}}

	inputs := [][]store.Trade{arbitrageTrades(), nil}
	var mixed []store.Trade
	for i := 0; i < 40; i++ {
		tr := buy(base.Add(time.Duration(i)*7*time.Second), fmt.Sprintf("m%d", i%3), store.OutcomeYes, float64(10+i%5), 0.2+float64(i%6)*0.1)
		if i%3 == 0 {
			tr.RealizedPnL = store.Float(float64(i%4) - 1.5)
		}
		tr.IsMaker = store.Bool(i%2 == 0)
		mixed = append(mixed, tr)
	}
	inputs = append(inputs, mixed)

	for _, f := range floors {
		e := newExtractor(t, func(c *Config) { c.MinConfidence, c.MinEvidence = f.conf, f.ev })
		for _, trades := range inputs {
			rs := e.Extract(Input{Trades: trades})
			for _, r := range rs.All() {
				assert.GreaterOrEqual(t, r.Confidence, f.conf, r.Condition)
				assert.GreaterOrEqual(t, r.EvidenceCount, f.ev, r.Condition)
			}
		}
	}
}

func TestReplicability(t *testing.T) {
	one := []store.Rule{{Confidence: 1, EvidenceCount: 10}}
	full := RuleSet{Entry: one, Exit: one, Sizing: one, Filters: one}

	assert.InDelta(t, 1.0, Replicability(store.StrategyArbitrage, full), 1e-12)
	assert.InDelta(t, 0.3+0.4+0.3*0.5, Replicability(store.StrategyDirectional, full), 1e-12)
	assert.InDelta(t, 0.06, Replicability(store.StrategyUnknown, RuleSet{}), 1e-12)

	half := RuleSet{Entry: []store.Rule{{Confidence: 0.8}}, Exit: []store.Rule{{Confidence: 0.6}}}
	assert.InDelta(t, 0.3*0.5+0.4*0.7+0.3*0.8, Replicability(store.StrategyMarketMaking, half), 1e-12)
}

func TestAssemble(t *testing.T) {
	asm, err := NewAssembler(DefaultConfig())
	require.NoError(t, err)

	an := analyzer.WalletAnalysis{
		Wallet:       "0xfeedfacecafebeef",
		StrategyType: store.StrategyArbitrage,
		Confidence:   0.9,
		EdgeEstimate: 2.5,
		WinRate:      1,
		TotalPnL:     200,
		TradeCount:   100,
		ClosedCount:  100,
		Timing:       analyzer.TimingAnalysis{AvgHoldSeconds: 1800, HoldSamples: 100, TradesPerDay: 12},
	}
	rules := RuleSet{Entry: []store.Rule{{Kind: store.RuleEntry, Confidence: 0.9, EvidenceCount: 50}}, PeakExposure: 400}

	bp := asm.Assemble(AssemblyInput{Analysis: an, Rules: rules})
	assert.Equal(t, "0xfeedface_strategy", bp.Name)
	assert.Equal(t, an.Wallet, bp.Wallet)
	assert.InDelta(t, 600, bp.CapitalRequired, 1e-9)
	assert.InDelta(t, 400, bp.PeakExposure, 1e-9)
	assert.Equal(t, "< 2 hours", bp.Timeframe)
	assert.Equal(t, "Very Low (hedged arbitrage)", bp.RiskProfile)
	assert.InDelta(t, 2.0, bp.EstimatedEdge.PerTradePnL, 1e-9)
	assert.InDelta(t, 24.0, bp.EstimatedEdge.DailyPnL, 1e-9)
	assert.InDelta(t, 2.5, bp.EstimatedEdge.PerTradePct, 1e-9)
	assert.NotNil(t, bp.ExitRules)
	assert.InDelta(t, 0.3*0.25+0.4*0.9+0.3, bp.ReplicabilityScore, 1e-12)
}

func TestBlueprintJSONRoundTrip(t *testing.T) {
	e := newExtractor(t)
	asm, err := NewAssembler(DefaultConfig())
	require.NoError(t, err)
	an, err := analyzer.New(analyzer.DefaultConfig())
	require.NoError(t, err)

	trades := arbitrageTrades()
	wa := an.AnalyzeWallet(trades, nil)
	rs := e.Extract(Input{Trades: trades, Strategy: wa.StrategyType, Sizing: &wa.Sizing})
	bp := asm.Assemble(AssemblyInput{Analysis: wa, Rules: rs, AsOf: base.AddDate(0, 1, 0)})

	raw, err := json.Marshal(bp)
	require.NoError(t, err)
	var back store.StrategyBlueprint
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, *bp, back)
	assert.Contains(t, string(raw), `"strategy_type":"ARBITRAGE"`)
	assert.Contains(t, string(raw), `"kind":"entry"`)
}

func TestPseudocode(t *testing.T) {
	bp := &store.StrategyBlueprint{
		Name:          "0xabc_strategy",
		StrategyType:  store.StrategyArbitrage,
		EntryRules:    []store.Rule{{Condition: "price(YES) + price(NO) <= 0.970", Confidence: 0.9}},
		ExitRules:     []store.Rule{{Condition: "hold to market resolution", Confidence: 1}},
		MarketFilters: []store.Rule{{Condition: `category matches "crypto"`, Confidence: 0.8}},
		Notes:         []string{"mechanical edge"},
	}
	out := Pseudocode(bp)
	assert.Contains(t, out, "STRATEGY: 0xabc_strategy")
	assert.Contains(t, out, "if price(YES) + price(NO) <= 0.970:")
	assert.Contains(t, out, "if hold to market resolution:")
	assert.Contains(t, out, "# MARKET SELECTION")
	assert.Contains(t, out, "# mechanical edge")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), strings.Repeat("=", 80)))
	assert.Empty(t, Pseudocode(nil))
}
