package indicator

import (
	"math"

	"papertrader/src/model"
)

type MomentumConfig struct {
	RSIPeriod    int
	SMAWindows   []int
	StatsWindows []int
}

func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		RSIPeriod:    14,
		SMAWindows:   []int{5, 10, 20},
		StatsWindows: []int{7, 30},
	}
}

// PeriodStats averages the bar to bar changes, in percent, of the last
// window bars; window <= 0 takes the whole series. Bars following a zero
// close are skipped. ok is false when no change could be computed.
func PeriodStats(points []model.PricePoint, window int) (model.PeriodStats, bool) {
	from := 1
	if window > 0 && len(points)-window > from {
		from = len(points) - window
	}

	var (
		sum    float64
		n      int
		lo, hi = math.Inf(1), math.Inf(-1)
	)
	for i := from; i < len(points); i++ {
		prev := points[i-1].Price
		if prev == 0 {
			continue
		}
		change := (points[i].Price - prev) / prev * 100
		sum += change
		n++
		lo = math.Min(lo, change)
		hi = math.Max(hi, change)
	}
	if n == 0 {
		return model.PeriodStats{}, false
	}

	avg := sum / float64(n)
	trend := model.TrendBearish
	if avg > 0 {
		trend = model.TrendBullish
	}
	return model.PeriodStats{
		Window:    n,
		AvgChange: avg,
		MaxChange: hi,
		MinChange: lo,
		Trend:     trend,
	}, true
}

// Momentum computes RSI, the SMA windows and the period stats of points.
func Momentum(points []model.PricePoint, cfg MomentumConfig) model.Momentum {
	var m model.Momentum
	if rsi, ok := RSI(points, cfg.RSIPeriod); ok {
		m.RSI = &rsi
	}
	if sma := SMA(points, cfg.SMAWindows...); len(sma) > 0 {
		m.SMA = sma
	}
	for _, w := range cfg.StatsWindows {
		if st, ok := PeriodStats(points, w); ok {
			m.Stats = append(m.Stats, st)
		}
	}
	return m
}
