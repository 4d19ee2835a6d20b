package ta

import "regime-engine/internal/types"

func Closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func Volumes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// Amounts returns nil unless every bar carries an amount.
func Amounts(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		if b.Amount == nil {
			return nil
		}
		out[i] = *b.Amount
	}
	return out
}

func HighsLows(bars []types.Bar) (highs, lows []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}
	return highs, lows
}
