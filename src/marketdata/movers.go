package marketdata

import (
	"sort"

	"papertrader/src/model"
)

const (
	DefaultMoversLimit = 10
	MaxMoversLimit     = 50
)

type Movers struct {
	Gainers []model.MarketCoin `json:"gainers"`
	Losers  []model.MarketCoin `json:"losers"`
}

// RankMovers sorts coins by 24h change, biggest move first on each side.
// limit outside 1..MaxMoversLimit falls back to the default.
func RankMovers(coins []model.MarketCoin, limit int) Movers {
	if limit < 1 || limit > MaxMoversLimit {
		limit = DefaultMoversLimit
	}

	sorted := make([]model.MarketCoin, len(coins))
	copy(sorted, coins)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PriceChangePercentage24h == sorted[j].PriceChangePercentage24h {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].PriceChangePercentage24h > sorted[j].PriceChangePercentage24h
	})

	m := Movers{Gainers: []model.MarketCoin{}, Losers: []model.MarketCoin{}}
	for _, c := range sorted {
		if c.PriceChangePercentage24h <= 0 || len(m.Gainers) == limit {
			break
		}
		m.Gainers = append(m.Gainers, c)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		c := sorted[i]
		if c.PriceChangePercentage24h >= 0 || len(m.Losers) == limit {
			break
		}
		m.Losers = append(m.Losers, c)
	}
	return m
}
