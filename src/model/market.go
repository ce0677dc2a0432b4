package model

import "time"

// PricePoint is one close of the source OHLC series.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// EMAPoint is one value of a derived EMA or forecast series.
type EMAPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MarketCoin is the market snapshot returned by a provider for one coin id.
type MarketCoin struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol,omitempty"`
	Name                     string  `json:"name,omitempty"`
	CurrentPrice             float64 `json:"current_price"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	MarketCap                float64 `json:"market_cap"`
	TotalVolume              float64 `json:"total_volume"`
}

// PriceHistory holds a daily close series for a coin id.
type PriceHistory struct {
	ID     string       `json:"id"`
	Prices []PricePoint `json:"prices"`
}

// Last returns the most recent point, ok=false on an empty series.
func (h *PriceHistory) Last() (PricePoint, bool) {
	if h == nil || len(h.Prices) == 0 {
		return PricePoint{}, false
	}
	return h.Prices[len(h.Prices)-1], true
}
