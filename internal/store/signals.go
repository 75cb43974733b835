package store

import "time"

// SignalType tags one of the six anomaly detectors.
type SignalType string

// Signal types for detection
const (
	SignalProfitSpike      SignalType = "PROFIT_SPIKE"
	SignalWinRateAnomaly   SignalType = "WIN_RATE_ANOMALY"
	SignalRapidGrowth      SignalType = "RAPID_GROWTH"
	SignalMarketSpecialist SignalType = "MARKET_SPECIALIST"
	SignalFrequencySpike   SignalType = "FREQUENCY_SPIKE"
	SignalConsistentEdge   SignalType = "CONSISTENT_EDGE"
)

// SignalTypes lists every detector tag in reporting order.
var SignalTypes = []SignalType{
	SignalWinRateAnomaly,
	SignalConsistentEdge,
	SignalProfitSpike,
	SignalRapidGrowth,
	SignalFrequencySpike,
	SignalMarketSpecialist,
}

// Signal represents one detected anomaly for a wallet's trade sequence.
type Signal struct {
	Type        SignalType             `json:"type"`
	Strength    float64                `json:"strength"`
	Description string                 `json:"description"`
	Evidence    map[string]interface{} `json:"evidence"`
	DetectedAt  time.Time              `json:"detected_at"`
}

// Alert represents a notification to be sent.
type Alert struct {
	ID            string
	WalletAddress string
	Signals       []Signal
	AlphaScore    float64
	Summary       string
	SentAt        time.Time
	Success       bool
}
