package indicator

import "papertrader/src/model"

// StreamingEMA is an O(1) per update exponential moving average seeded with
// the simple mean of the first period prices.
type StreamingEMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

func NewStreamingEMA(period int) *StreamingEMA {
	return &StreamingEMA{
		period:     period,
		multiplier: Alpha(period),
	}
}

// Alpha is the smoothing factor 2/(k+1).
func Alpha(period int) float64 {
	return 2.0 / float64(period+1)
}

func (e *StreamingEMA) Update(price float64) {
	e.count++
	if e.count <= e.period {
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}
	e.current = price*e.multiplier + e.current*(1-e.multiplier)
}

func (e *StreamingEMA) Value() float64 { return e.current }
func (e *StreamingEMA) Ready() bool    { return e.period > 0 && e.count >= e.period }

// Peek returns what Value would be after one more price, without mutating.
// Before the seed is complete it returns price.
func (e *StreamingEMA) Peek(price float64) float64 {
	if !e.Ready() {
		return price
	}
	return price*e.multiplier + e.current*(1-e.multiplier)
}

func (e *StreamingEMA) Reset() {
	e.current = 0
	e.count = 0
	e.sum = 0
}

// EMA computes the series over points. The result is aligned to
// points[period-1:] and is empty when there are fewer than period points.
func EMA(points []model.PricePoint, period int) []model.EMAPoint {
	if period <= 0 || len(points) < period {
		return nil
	}

	stream := NewStreamingEMA(period)
	out := make([]model.EMAPoint, 0, len(points)-period+1)
	for _, p := range points {
		stream.Update(p.Price)
		if stream.Ready() {
			out = append(out, model.EMAPoint{Timestamp: p.Timestamp, Value: stream.Value()})
		}
	}
	return out
}
