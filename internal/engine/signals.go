package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"regime-engine/internal/interfaces"
	"regime-engine/internal/news"
	"regime-engine/internal/realtime"
	"regime-engine/internal/store"
	"regime-engine/internal/types"
)

// Freshness bounds how far behind now an external signal may lag before it
// is dropped.
type Freshness struct {
	News         time.Duration
	Realtime1m   time.Duration
	RealtimeSlow time.Duration
}

func DefaultFreshness() Freshness {
	return Freshness{News: 30 * time.Minute, Realtime1m: 3 * time.Minute, RealtimeSlow: 6 * time.Minute}
}

func (f Freshness) realtime(tf types.Timeframe) time.Duration {
	if tf == types.Timeframe1m {
		return f.Realtime1m
	}
	return f.RealtimeSlow
}

func stale(ts int64, now time.Time, limit time.Duration) bool {
	return limit > 0 && now.Sub(time.UnixMilli(ts)) > limit
}

// newsTerm is the resolved news contribution; active terms enter fusion.
type newsTerm struct {
	signal *news.Resolved
	active bool
	panic  bool
}

func (e *Engine) newsContribution(ctx context.Context, in interfaces.Inputs, now time.Time, th store.Thresholds) (newsTerm, []string) {
	if e.news == nil || len(in.News) == 0 {
		return newsTerm{}, nil
	}
	items := e.news.Enrich(ctx, in.Instrument, in.News, now)
	sig := e.news.Resolve(ctx, in.Instrument, items, now)
	if sig == nil {
		return newsTerm{}, []string{"News: no qualifying window"}
	}
	if stale(sig.Ts, now, e.freshness.News) {
		return newsTerm{}, []string{fmt.Sprintf("News signal dropped: stale by %s", now.Sub(time.UnixMilli(sig.Ts)).Round(time.Second))}
	}
	t := newsTerm{signal: sig}
	switch {
	case sig.Score < -th.NewsPanicThreshold:
		t.active, t.panic = true, true
		return t, []string{fmt.Sprintf("News risk-off: score %.2f < -%.2f", sig.Score, th.NewsPanicThreshold)}
	case sig.Score > th.NewsTrendThreshold:
		t.active = true
		return t, []string{fmt.Sprintf("News supportive: score %.2f > %.2f", sig.Score, th.NewsTrendThreshold)}
	}
	return t, nil
}

type realtimeTerm struct {
	signal realtime.Signal
	ok     bool
	active bool
	score  float64
	mag    float64
}

func (e *Engine) realtimeContribution(in interfaces.Inputs, bars []types.Bar, now time.Time, c components, th store.Thresholds) (realtimeTerm, []string) {
	var sample types.TapeSample
	prior := in.TapePrior
	switch {
	case in.Tape != nil:
		sample = *in.Tape
	case in.Timeframe.Intraday():
		cur, window, ok := realtime.FromBars(bars, in.Timeframe, realtime.WindowSize)
		if !ok {
			return realtimeTerm{}, nil
		}
		sample, prior = cur, window
	default:
		return realtimeTerm{}, nil
	}
	if sample.Timeframe == "" {
		sample.Timeframe = in.Timeframe
	}
	if stale(sample.Ts, now, e.freshness.realtime(sample.Timeframe)) {
		return realtimeTerm{}, []string{fmt.Sprintf("Realtime tape dropped: stale %s sample", sample.Timeframe)}
	}

	sig := realtime.Evaluate(sample, prior)
	t := realtimeTerm{signal: sig, ok: sig.Defined()}
	if !t.ok {
		return t, []string{"Realtime surprise undefined"}
	}
	surprising := (sig.VolSurprise != nil && *sig.VolSurprise >= th.RealtimeVolSurprise) ||
		(sig.AmtSurprise != nil && *sig.AmtSurprise >= th.RealtimeAmtSurprise)
	if !surprising {
		return t, nil
	}

	// an unchanged close counts as up
	up := !finite(c.prevClose) || c.close >= c.prevClose
	sign := 0.0
	switch {
	case up && (!finite(c.ema60) || c.close > c.ema60):
		sign = 1
	case !up && (!finite(c.ema60) || c.close < c.ema60):
		sign = -1
	}
	if sign == 0 {
		return t, []string{"Realtime surprise without price confirmation"}
	}

	scale := math.Max(0.1, math.Max(th.RealtimeVolSurprise, th.RealtimeAmtSurprise))
	peak, _ := sig.Max()
	t.mag = clamp01(peak / scale)
	t.score = sign * t.mag
	t.active = true
	return t, []string{fmt.Sprintf("Realtime surprise %.2f confirms %s move", peak, direction(sign))}
}

func direction(sign float64) string {
	if sign > 0 {
		return "up"
	}
	return "down"
}
