package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open long exposure created by a BUY above the dust threshold.
type Position struct {
	ID         string          `json:"id"`
	Pair       string          `json:"pair"` // e.g. "BTC/USD"
	Asset      string          `json:"asset"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Amount     decimal.Decimal `json:"amount"`
	OpenedAt   time.Time       `json:"opened_at"`
}

// UnrealizedPnL is (price - entry) * amount.
func (p Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	return price.Sub(p.EntryPrice).Mul(p.Amount)
}
