package risk

import (
	"papertrader/src/model"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

const defaultLookback = 20

func IsBullish(c model.DailyCandle) bool { return c.Close.GreaterThan(c.Open) }
func IsBearish(c model.DailyCandle) bool { return c.Close.LessThan(c.Open) }

func AvgLow(candles []model.DailyCandle) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, c := range candles {
		sum = sum.Add(c.Low)
	}
	return sum.Div(decimal.NewFromInt(int64(len(candles))))
}

func AvgHigh(candles []model.DailyCandle) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, c := range candles {
		sum = sum.Add(c.High)
	}
	return sum.Div(decimal.NewFromInt(int64(len(candles))))
}

// NextStopLoss moves a trailing stop one bar forward. The last candle is the
// bar in progress; the decision uses the one before it.
//
// Long:
// - gate: previous candle bullish
// - floor: avg(low) over lookback
// - clamp: candidate <= prev.Low
// - update: SL = max(SL, candidate)
//
// Short:
// - gate: previous candle bearish
// - ceiling: avg(high) over lookback
// - clamp: candidate >= prev.High
// - update: SL = min(SL, candidate), a zero SL is unset
func NextStopLoss(side Side, currentSL decimal.Decimal, candles []model.DailyCandle, lookback int) (newSL decimal.Decimal, moved bool) {
	if len(candles) < 2 {
		return currentSL, false
	}
	if lookback <= 0 {
		lookback = defaultLookback
	}
	if lookback > len(candles) {
		lookback = len(candles)
	}

	prev := candles[len(candles)-2]
	window := candles[len(candles)-lookback:]

	switch side {
	case SideLong:
		if !IsBullish(prev) {
			return currentSL, false
		}
		candidate := AvgLow(window)
		if candidate.GreaterThan(prev.Low) {
			candidate = prev.Low
		}
		if candidate.GreaterThan(currentSL) {
			return candidate, true
		}
		return currentSL, false

	case SideShort:
		if !IsBearish(prev) {
			return currentSL, false
		}
		candidate := AvgHigh(window)
		if candidate.LessThan(prev.High) {
			candidate = prev.High
		}
		if currentSL.IsZero() || candidate.LessThan(currentSL) {
			return candidate, true
		}
		return currentSL, false

	default:
		return currentSL, false
	}
}

// TrailingStop replays NextStopLoss over the whole series, as if a position
// had been open since the first candle. ok is false when the stop never moved.
func TrailingStop(side Side, candles []model.DailyCandle, lookback int) (sl decimal.Decimal, ok bool) {
	for i := 2; i <= len(candles); i++ {
		next, moved := NextStopLoss(side, sl, candles[:i], lookback)
		if moved {
			sl, ok = next, true
		}
	}
	return sl, ok
}
