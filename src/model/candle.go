package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyCandle is a persisted daily OHLCV bar. (datetime, symbol) is unique so
// repeated imports upsert instead of duplicating.
type DailyCandle struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	Datetime time.Time       `gorm:"uniqueIndex:idx_daily_candle_dt_symbol;not null" json:"datetime"`
	Symbol   string          `gorm:"size:32;uniqueIndex:idx_daily_candle_dt_symbol;not null" json:"symbol"`
	Open     decimal.Decimal `gorm:"type:numeric" json:"open"`
	High     decimal.Decimal `gorm:"type:numeric" json:"high"`
	Low      decimal.Decimal `gorm:"type:numeric" json:"low"`
	Close    decimal.Decimal `gorm:"type:numeric" json:"close"`
	Volume   decimal.Decimal `gorm:"type:numeric" json:"volume"`
}

func (DailyCandle) TableName() string {
	return "daily_candles"
}

// PricePoint returns the close as a series point.
func (c DailyCandle) PricePoint() PricePoint {
	return PricePoint{Timestamp: c.Datetime, Price: c.Close.InexactFloat64()}
}
