package signal

import (
	"fmt"
	"math"

	"papertrader/src/model"
)

const (
	// ThresholdPct is the |delta%| above which a BUY or SELL is emitted.
	ThresholdPct = 1.0
	// HighConfidencePct is the |delta%| above which confidence is HIGH.
	HighConfidencePct = 2.0
)

// Classify compares price with the latest EMA value.
// delta% = (price - ema) / ema * 100. With fewer than two EMA points it
// always returns HOLD with LOW confidence.
func Classify(price float64, ema []model.EMAPoint, period int) model.Signal {
	if len(ema) < 2 {
		return insufficient(price)
	}
	current := ema[len(ema)-1].Value
	if current == 0 || math.IsNaN(current) || math.IsNaN(price) || math.IsInf(price, 0) {
		return insufficient(price)
	}

	delta := (price - current) * 100 / current
	sig := model.Signal{
		Price:      price,
		EMAValue:   current,
		DeltaPct:   delta,
		Confidence: model.ConfidenceMedium,
	}

	switch {
	case delta > ThresholdPct:
		sig.Type = model.SignalBuy
		sig.Reason = fmt.Sprintf("price %.2f%% above EMA(%d)", delta, period)
	case delta < -ThresholdPct:
		sig.Type = model.SignalSell
		sig.Reason = fmt.Sprintf("price %.2f%% below EMA(%d)", -delta, period)
	default:
		sig.Type = model.SignalHold
		sig.Reason = fmt.Sprintf("price within %.1f%% of EMA(%d)", ThresholdPct, period)
		return sig
	}

	if math.Abs(delta) > HighConfidencePct {
		sig.Confidence = model.ConfidenceHigh
	}
	return sig
}

// DetectCross reports a BUY or SELL only on the bar where price crosses the
// EMA: the latest bar must classify BUY (SELL) and the previous close must
// have been at or below (at or above) the previous EMA value. prices and ema
// must come from the same series so their tails line up.
func DetectCross(prices []model.PricePoint, ema []model.EMAPoint, period int) (model.Signal, bool) {
	if len(prices) < 2 || len(ema) < 2 || len(prices) < len(ema) {
		return insufficient(lastPrice(prices)), false
	}

	sig := Classify(prices[len(prices)-1].Price, ema, period)

	prevPrice := prices[len(prices)-2].Price
	prevEMA := ema[len(ema)-2].Value

	switch sig.Type {
	case model.SignalBuy:
		if prevPrice <= prevEMA {
			sig.Reason = fmt.Sprintf("price crossed above EMA(%d)", period)
			return sig, true
		}
	case model.SignalSell:
		if prevPrice >= prevEMA {
			sig.Reason = fmt.Sprintf("price crossed below EMA(%d)", period)
			return sig, true
		}
	}
	return sig, false
}

func insufficient(price float64) model.Signal {
	return model.Signal{
		Type:       model.SignalHold,
		Confidence: model.ConfidenceLow,
		Reason:     "insufficient data",
		Price:      price,
	}
}

func lastPrice(prices []model.PricePoint) float64 {
	if len(prices) == 0 {
		return 0
	}
	return prices[len(prices)-1].Price
}
