package engine

import (
	"math"

	"regime-engine/internal/types"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if !finite(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// minBaseline is the fewest prior samples a ratio-to-baseline needs.
const minBaseline = 5

// ratioToBaseline divides the last value by the mean of up to window values
// before it. NaN when the baseline is missing or not positive.
func ratioToBaseline(values []float64, window int) float64 {
	n := len(values)
	if n < minBaseline+1 {
		return math.NaN()
	}
	cur := values[n-1]
	if !finite(cur) || cur < 0 {
		return math.NaN()
	}
	start := n - 1 - window
	if start < 0 {
		start = 0
	}
	sum, cnt := 0.0, 0
	for _, v := range values[start : n-1] {
		if finite(v) && v >= 0 {
			sum += v
			cnt++
		}
	}
	if cnt < minBaseline || sum <= 0 {
		return math.NaN()
	}
	return cur / (sum / float64(cnt))
}

// validBars drops bars whose price or volume cannot be used.
func validBars(bars []types.Bar) ([]types.Bar, int) {
	out := make([]types.Bar, 0, len(bars))
	for _, b := range bars {
		if !finite(b.Close) || b.Close <= 0 || !finite(b.Volume) || b.Volume < 0 {
			continue
		}
		if b.Amount != nil && (!finite(*b.Amount) || *b.Amount < 0) {
			b.Amount = nil
		}
		out = append(out, b)
	}
	return out, len(bars) - len(out)
}

// putFinite stores v only when it is a real number; NaN has no JSON form.
func putFinite(m map[string]float64, key string, v float64) {
	if finite(v) {
		m[key] = v
	}
}

func flag(m map[string]float64, key string, on bool) {
	if on {
		m[key] = 1
	} else {
		m[key] = 0
	}
}
