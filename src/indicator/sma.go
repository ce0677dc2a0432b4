package indicator

import "papertrader/src/model"

// SMA returns the mean of the last w closes for every window w that fits in
// points. Windows below 1 are ignored.
func SMA(points []model.PricePoint, windows ...int) map[int]float64 {
	out := make(map[int]float64, len(windows))
	for _, w := range windows {
		if w < 1 || w > len(points) {
			continue
		}
		sum := 0.0
		for _, p := range points[len(points)-w:] {
			sum += p.Price
		}
		out[w] = sum / float64(w)
	}
	return out
}
