package indicator

import (
	"time"

	"papertrader/src/model"
)

// trendLookback is the number of steps the naive trend spans: the slope is
// (p[n-1] - p[n-5]) / 4.
const trendLookback = 4

// Forecast extrapolates the EMA for steps future points. Prices are projected
// linearly from the last close and fed through the EMA recurrence starting at
// the last real EMA value. Each future timestamp is step after the previous.
//
// The result is empty with fewer than five prices, a non-positive horizon or
// an empty EMA series.
func Forecast(points []model.PricePoint, ema []model.EMAPoint, period, steps int, step time.Duration) []model.EMAPoint {
	n := len(points)
	if n < trendLookback+1 || steps <= 0 || len(ema) == 0 || period <= 0 {
		return nil
	}

	alpha := Alpha(period)
	last := points[n-1]
	delta := (last.Price - points[n-1-trendLookback].Price) / trendLookback

	prev := ema[len(ema)-1].Value
	ts := last.Timestamp
	out := make([]model.EMAPoint, 0, steps)
	for i := 1; i <= steps; i++ {
		simulated := last.Price + delta*float64(i)
		prev = simulated*alpha + prev*(1-alpha)
		ts = ts.Add(step)
		out = append(out, model.EMAPoint{Timestamp: ts, Value: prev})
	}
	return out
}

type Result struct {
	EMA      []model.EMAPoint `json:"ema"`
	Forecast []model.EMAPoint `json:"forecast"`
}

// Analyze returns the EMA series and its forecast in one pass.
func Analyze(points []model.PricePoint, period, steps int, step time.Duration) Result {
	ema := EMA(points, period)
	return Result{
		EMA:      ema,
		Forecast: Forecast(points, ema, period, steps, step),
	}
}
