package model

type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

type Signal struct {
	Type       SignalType `json:"type"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
	Price      float64    `json:"price"`
	EMAValue   float64    `json:"ema_value"`
	DeltaPct   float64    `json:"delta_pct"`
}
