package engine

import (
	"math"

	"regime-engine/internal/store"
	"regime-engine/internal/ta"
	"regime-engine/internal/types"
)

const (
	baselineWindow = 20
	drawdownWindow = 60
	slopeWindow    = 10
	atrPeriod      = 14

	// spread and slope reach ~0.76 of their tanh range at these values
	spreadScale = 0.05
	slopeScale  = 0.005
)

// components are the bar-derived inputs to fusion. Undefined values are NaN.
type components struct {
	close, prevClose float64
	ema20, ema60     float64
	slope, rsi       float64
	spread, slopeRel float64

	volRatio, amountRatio, drawdown float64
	// average true range as a percentage of close
	atrPct float64

	trend, rangeBias, panic float64
}

func computeComponents(bars []types.Bar, th store.Thresholds) components {
	c := components{
		prevClose: math.NaN(), ema20: math.NaN(), ema60: math.NaN(),
		slope: math.NaN(), rsi: math.NaN(), spread: math.NaN(), slopeRel: math.NaN(),
		volRatio: math.NaN(), amountRatio: math.NaN(), drawdown: math.NaN(), atrPct: math.NaN(),
	}
	n := len(bars)
	if n == 0 {
		c.close = math.NaN()
		return c
	}
	closes := ta.Closes(bars)
	c.close = closes[n-1]
	if n > 1 {
		c.prevClose = closes[n-2]
	}

	ema20 := ta.EMA(closes, 20)
	c.ema20 = ta.Last(ema20)
	c.ema60 = ta.Last(ta.EMA(closes, 60))
	c.slope = ta.Last(ta.Slope(ema20, slopeWindow))
	c.rsi = ta.Last(ta.RSI(closes, 14))

	if finite(c.ema20) && finite(c.ema60) && c.ema60 > 0 {
		c.spread = c.ema20/c.ema60 - 1
	}
	if finite(c.slope) && finite(c.ema20) && c.ema20 > 0 {
		c.slopeRel = c.slope / c.ema20
	}

	highs, lows := ta.HighsLows(bars)
	if atr := ta.Last(ta.ATR(highs, lows, closes, atrPeriod)); finite(atr) && c.close > 0 {
		c.atrPct = atr / c.close * 100
	}

	c.volRatio = ratioToBaseline(ta.Volumes(bars), baselineWindow)
	if amounts := ta.Amounts(bars); amounts != nil {
		c.amountRatio = ratioToBaseline(amounts, baselineWindow)
	}
	peak := ta.Last(ta.RollingMax(closes, min(drawdownWindow, n)))
	if finite(peak) && peak > 0 {
		c.drawdown = math.Max(0, 1-c.close/peak)
	}

	trend := 0.0
	if finite(c.spread) {
		trend += 0.5 * math.Tanh(c.spread/spreadScale)
	}
	if finite(c.slopeRel) {
		trend += 0.5 * math.Tanh(c.slopeRel/slopeScale)
	}
	c.trend = clamp(trend, -1, 1)

	if finite(c.rsi) {
		c.rangeBias = clamp((50-c.rsi)/50*(1-math.Abs(c.trend)), -1, 1)
	}

	c.panic = panicScore(c.volRatio, c.drawdown, th)
	return c
}

func panicScore(volRatio, drawdown float64, th store.Thresholds) float64 {
	vol, dd := 0.0, 0.0
	if finite(volRatio) {
		if th.PanicVolRatio > 1 {
			vol = (volRatio - 1) / (th.PanicVolRatio - 1)
		} else if volRatio >= th.PanicVolRatio {
			vol = 1
		}
	}
	if finite(drawdown) {
		if th.PanicDrawdown > 0 {
			dd = drawdown / th.PanicDrawdown
		} else if drawdown > 0 {
			dd = 1
		}
	}
	return clamp01(math.Max(vol, dd))
}

// forcedPanic is the bars-only override that wins over fusion and hysteresis.
func (c components) forcedPanic(th store.Thresholds) bool {
	return (finite(c.volRatio) && c.volRatio >= th.PanicVolRatio) ||
		(finite(c.drawdown) && c.drawdown >= th.PanicDrawdown)
}

type classification struct {
	regime    types.Regime
	candidate types.Regime
	forced    bool
	held      bool
}

// classify maps a fused score to a regime. A change away from prior needs
// the score to clear the threshold by the hysteresis margin.
func classify(fused float64, forced bool, prior types.Regime, hasPrior bool, th store.Thresholds) classification {
	if forced {
		return classification{regime: types.RegimePanic, candidate: types.RegimePanic, forced: true}
	}
	strength := math.Abs(fused)
	thr, h := th.TrendScoreThreshold, th.HysteresisThreshold

	candidate := types.RegimeRange
	if finite(strength) && strength >= thr {
		candidate = types.RegimeTrend
	}
	out := classification{regime: candidate, candidate: candidate}
	if !hasPrior || prior == candidate {
		return out
	}

	clears := false
	switch candidate {
	case types.RegimeTrend:
		clears = strength >= thr+h
	case types.RegimeRange:
		clears = strength <= thr-h
	}
	if !clears {
		out.regime = prior
		out.held = true
	}
	return out
}
