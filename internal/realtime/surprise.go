package realtime

import (
	"math"

	"regime-engine/internal/types"
)

// WindowSize is the number of prior samples kept per (instrument, timeframe).
const WindowSize = 20

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Surprise is actual/expected - 1. ok is false when expected is not a
// positive finite number, which is distinct from a zero surprise.
func Surprise(actual, expected float64) (float64, bool) {
	if !finite(actual) || !finite(expected) || expected <= 0 {
		return 0, false
	}
	return actual/expected - 1, true
}

// Expectation is the mean of pick over the last WindowSize prior samples.
func Expectation(prior []types.TapeSample, pick func(types.TapeSample) float64) (float64, bool) {
	if len(prior) > WindowSize {
		prior = prior[len(prior)-WindowSize:]
	}
	sum, n := 0.0, 0
	for _, s := range prior {
		v := pick(s)
		if !finite(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func volumeOf(s types.TapeSample) float64 { return s.Volume }
func amountOf(s types.TapeSample) float64 { return s.Amount }

// Signal is the surprise read of one tape sample. A nil surprise is undefined.
type Signal struct {
	Ts             int64
	Timeframe      types.Timeframe
	ExpectedVolume *float64
	ExpectedAmount *float64
	VolSurprise    *float64
	AmtSurprise    *float64
}

// Defined reports whether at least one surprise could be computed.
func (s Signal) Defined() bool {
	return s.VolSurprise != nil || s.AmtSurprise != nil
}

// Max returns the larger defined surprise.
func (s Signal) Max() (float64, bool) {
	switch {
	case s.VolSurprise != nil && s.AmtSurprise != nil:
		return math.Max(*s.VolSurprise, *s.AmtSurprise), true
	case s.VolSurprise != nil:
		return *s.VolSurprise, true
	case s.AmtSurprise != nil:
		return *s.AmtSurprise, true
	}
	return 0, false
}

// Evaluate computes the surprise of sample against prior. Precomputed
// surprises on the sample win, then explicit expectations, then the window mean.
func Evaluate(sample types.TapeSample, prior []types.TapeSample) Signal {
	sig := Signal{Ts: sample.Ts, Timeframe: sample.Timeframe}
	sig.ExpectedVolume, sig.VolSurprise = resolve(sample.Volume, sample.ExpectedVolume, sample.VolSurprise, prior, volumeOf)
	sig.ExpectedAmount, sig.AmtSurprise = resolve(sample.Amount, sample.ExpectedAmount, sample.AmtSurprise, prior, amountOf)
	return sig
}

func resolve(actual float64, explicit, precomputed *float64, prior []types.TapeSample, pick func(types.TapeSample) float64) (expected, surprise *float64) {
	if precomputed != nil && finite(*precomputed) {
		surprise = types.Float(*precomputed)
	}
	if explicit != nil && finite(*explicit) {
		expected = types.Float(*explicit)
	} else if mean, ok := Expectation(prior, pick); ok {
		expected = types.Float(mean)
	}
	if surprise == nil && expected != nil {
		if s, ok := Surprise(actual, *expected); ok {
			surprise = types.Float(s)
		}
	}
	return expected, surprise
}

// FromBars derives a tape sample from the latest bar and a prior window from
// the lookback bars before it. ok is false when fewer than lookback+1 bars exist.
func FromBars(bars []types.Bar, tf types.Timeframe, lookback int) (types.TapeSample, []types.TapeSample, bool) {
	if lookback <= 0 {
		lookback = WindowSize
	}
	if len(bars) < lookback+1 {
		return types.TapeSample{}, nil, false
	}
	toSample := func(b types.Bar) types.TapeSample {
		s := types.TapeSample{Ts: b.Ts, Timeframe: tf, Volume: b.Volume, Amount: math.NaN()}
		if b.Amount != nil {
			s.Amount = *b.Amount
		}
		return s
	}
	window := bars[len(bars)-lookback-1:]
	prior := make([]types.TapeSample, 0, lookback)
	for _, b := range window[:lookback] {
		prior = append(prior, toSample(b))
	}
	return toSample(window[lookback]), prior, true
}
