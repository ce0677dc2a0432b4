package indicator

import "papertrader/src/model"

// NeutralRSI is reported when there are not enough closes.
const NeutralRSI = 50.0

// RSI is the relative strength index of the closes with Wilder smoothing:
// the first averages are plain means over period changes, later ones are
// avg = (prev*(period-1) + x) / period. ok is false, with NeutralRSI, until
// period+1 closes exist.
func RSI(points []model.PricePoint, period int) (float64, bool) {
	if period < 1 || len(points) < period+1 {
		return NeutralRSI, false
	}

	var avgGain, avgLoss float64
	for i := 1; i < len(points); i++ {
		gain, loss := 0.0, 0.0
		if delta := points[i].Price - points[i-1].Price; delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		if i <= period {
			avgGain += gain
			avgLoss += loss
			if i == period {
				avgGain /= float64(period)
				avgLoss /= float64(period)
			}
			continue
		}
		p := float64(period)
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return NeutralRSI, true
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}
