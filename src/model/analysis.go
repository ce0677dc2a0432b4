package model

import "time"

// Analysis is the read model produced by a refresh cycle for one asset.
type Analysis struct {
	Asset     string     `json:"asset"`
	Price     float64    `json:"price"`
	Change24h float64    `json:"price_change_percentage_24h"`
	Period    int        `json:"period"`
	EMA       []EMAPoint `json:"ema"`
	Forecast  []EMAPoint `json:"forecast"`
	Signal    Signal     `json:"signal"`
	Momentum
	// Demo is set when any input came from synthetic data, not a live provider.
	Demo      bool      `json:"demo"`
	Stale     bool      `json:"stale"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
)

// PeriodStats summarizes the bar to bar percentage changes of the last Window
// bars.
type PeriodStats struct {
	Window    int     `json:"window"`
	AvgChange float64 `json:"avg_change"`
	MaxChange float64 `json:"max_change"`
	MinChange float64 `json:"min_change"`
	Trend     Trend   `json:"trend"`
}

// Momentum holds the secondary indicators of an analysis. RSI is nil until
// the series is long enough.
type Momentum struct {
	RSI   *float64        `json:"rsi,omitempty"`
	SMA   map[int]float64 `json:"sma,omitempty"`
	Stats []PeriodStats   `json:"stats,omitempty"`
}
