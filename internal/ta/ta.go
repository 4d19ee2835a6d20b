package ta

import "math"

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SMA is NaN for every window containing a non-finite sample.
func SMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	// non-finite samples stay out of the sum; a window is defined only while
	// it holds none of them
	sum := 0.0
	bad := 0
	for i, v := range values {
		if finite(v) {
			sum += v
		} else {
			bad++
		}
		if i >= period {
			if old := values[i-period]; finite(old) {
				sum -= old
			} else {
				bad--
			}
		}
		if i >= period-1 && bad == 0 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA seeds with the mean of the first fully finite window ending at or after
// index period-1. Later non-finite samples are skipped: their output is NaN
// and the recursive state carries over to the next finite sample.
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	k := 2.0 / float64(period+1)
	seeded := false
	prev := 0.0
	for i, v := range values {
		if !finite(v) {
			continue
		}
		if !seeded {
			if i < period-1 {
				continue
			}
			sum := 0.0
			ok := true
			for j := i - period + 1; j <= i; j++ {
				if !finite(values[j]) {
					ok = false
					break
				}
				sum += values[j]
			}
			if !ok {
				continue
			}
			prev = sum / float64(period)
			seeded = true
			out[i] = prev
			continue
		}
		prev = v*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// RSI uses Wilder smoothing. A zero average loss yields 100.
func RSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	gain, loss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d >= 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else if d < 0 {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	return 100.0 - 100.0/(1.0+avgGain/avgLoss)
}

type MACDResult struct {
	Line   []float64
	Signal []float64
	Hist   []float64
}

func MACD(closes []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	line := nanSeries(len(closes))
	for i := range closes {
		if finite(fastEMA[i]) && finite(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}
	sig := EMA(line, signal)
	hist := nanSeries(len(closes))
	for i := range closes {
		if finite(line[i]) && finite(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return MACDResult{Line: line, Signal: sig, Hist: hist}
}

// RollingStd is the population standard deviation over the trailing window.
func RollingStd(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	mean := SMA(values, period)
	for i := period - 1; i < len(values); i++ {
		m := mean[i]
		if !finite(m) {
			continue
		}
		s := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - m
			s += d * d
		}
		out[i] = math.Sqrt(s / float64(period))
	}
	return out
}

type BollingerResult struct {
	Mid   []float64
	Upper []float64
	Lower []float64
}

func Bollinger(closes []float64, period int, mult float64) BollingerResult {
	mid := SMA(closes, period)
	sd := RollingStd(closes, period)
	up := nanSeries(len(closes))
	low := nanSeries(len(closes))
	for i := range closes {
		if finite(mid[i]) && finite(sd[i]) {
			up[i] = mid[i] + mult*sd[i]
			low[i] = mid[i] - mult*sd[i]
		}
	}
	return BollingerResult{Mid: mid, Upper: up, Lower: low}
}

func RollingMax(values []float64, period int) []float64 {
	return rollingExtreme(values, period, math.Max)
}

func RollingMin(values []float64, period int) []float64 {
	return rollingExtreme(values, period, math.Min)
}

func rollingExtreme(values []float64, period int, pick func(a, b float64) float64) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		ext := math.NaN()
		for j := i - period + 1; j <= i; j++ {
			if !finite(values[j]) {
				continue
			}
			if math.IsNaN(ext) {
				ext = values[j]
				continue
			}
			ext = pick(ext, values[j])
		}
		out[i] = ext
	}
	return out
}

// Slope is the average per-step delta over the trailing window.
func Slope(series []float64, window int) []float64 {
	out := nanSeries(len(series))
	if window <= 0 {
		return out
	}
	for i := window; i < len(series); i++ {
		curr, prev := series[i], series[i-window]
		if finite(curr) && finite(prev) {
			out[i] = (curr - prev) / float64(window)
		}
	}
	return out
}

// ATR is the simple mean of the true range over the trailing period.
func ATR(highs, lows, closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return out
	}
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	trs := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		trs[i] = math.Max(tr1, math.Max(tr2, tr3))
	}
	sum := 0.0
	for i := 1; i < len(closes); i++ {
		sum += trs[i]
		if i > period {
			sum -= trs[i-period]
		}
		if i >= period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// Last returns the final element, NaN for an empty series.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// LastFinite returns the most recent finite value and whether one exists.
func LastFinite(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if finite(series[i]) {
			return series[i], true
		}
	}
	return math.NaN(), false
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return finite(v)
}
