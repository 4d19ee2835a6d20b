package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"regime-engine/internal/interfaces"
	"regime-engine/internal/logger"
	"regime-engine/internal/strategy"
	"regime-engine/internal/types"
)

var ErrMissingInstrument = errors.New("instrument is required")

// Engine fuses bar, news and tape signals into one decision per call. The
// only state it keeps is the regime memory used for hysteresis.
type Engine struct {
	memory    interfaces.RegimeMemory
	news      interfaces.NewsSignals
	freshness Freshness
	risk      *riskManager
}

func newEngine(mem interfaces.RegimeMemory, ns interfaces.NewsSignals, fresh Freshness) *Engine {
	return &Engine{memory: mem, news: ns, freshness: fresh, risk: newRiskManager()}
}

func (e *Engine) Evaluate(ctx context.Context, in interfaces.Inputs) (types.Decision, error) {
	if in.Instrument == "" {
		return types.Decision{}, ErrMissingInstrument
	}
	cfg := in.Config
	if err := cfg.Validate(); err != nil {
		return types.Decision{}, err
	}
	th := cfg.Thresholds

	bars, dropped := validBars(in.Bars)
	now := in.Now
	if now.IsZero() && len(bars) > 0 {
		now = time.UnixMilli(bars[len(bars)-1].Ts)
	}
	if dropped > 0 {
		logger.Warn(ctx, "Dropped malformed bars",
			"instrument", in.Instrument,
			"timeframe", in.Timeframe,
			"dropped_bars", dropped,
			"kept_bars", len(bars),
		)
	}

	metrics := map[string]float64{"bars": float64(len(bars)), "bars_dropped": float64(dropped)}
	d := types.Decision{
		Owner:      in.Owner,
		Instrument: in.Instrument,
		Timeframe:  in.Timeframe,
		Metrics:    metrics,
	}
	if !now.IsZero() {
		d.Timestamp = now.UnixMilli()
	}

	if len(bars) == 0 {
		d.Regime = types.RegimeRange
		d.Strategy = strategy.ForRegime(types.RegimeRange).ID()
		d.Action = types.ActionHold
		d.PositionCap, _ = e.risk.positionCap(ctx, in.Instrument, cfg, d.Regime, 0, computeComponents(nil, th))
		d.Reasons = []string{"No usable bars: holding"}
		return d, nil
	}

	var reasons []string
	if dropped > 0 {
		reasons = append(reasons, fmt.Sprintf("Dropped %d malformed bars", dropped))
	}

	c := computeComponents(bars, th)

	nt, why := e.newsContribution(ctx, in, now, th)
	reasons = append(reasons, why...)
	rt, why := e.realtimeContribution(in, bars, now, c, th)
	reasons = append(reasons, why...)

	panicScore := c.panic
	if nt.panic {
		panicScore = math.Max(panicScore, clamp01(math.Abs(nt.signal.Score)*nt.signal.Confidence))
	}

	w := cfg.Weights
	num := w.Trend*c.trend + w.Range*c.rangeBias - w.Panic*panicScore
	total := w.Trend
	if nt.active {
		num += w.News * nt.signal.Score
		total += w.News
	}
	if rt.active {
		num += w.Realtime * rt.score
		total += w.Realtime
	}
	fused := num
	if total > 0 {
		fused = num / total
	}
	fused = clamp(fused, -1, 1)

	prior, hasPrior, err := e.memory.Last(ctx, in.Instrument, in.Timeframe)
	if err != nil {
		logger.ErrorWithErr(ctx, "Regime memory read failed; classifying without history", err,
			"instrument", in.Instrument, "timeframe", in.Timeframe)
		hasPrior = false
	}
	forced := c.forcedPanic(th)
	cls := classify(fused, forced, prior, hasPrior, th)
	switch {
	case cls.forced:
		reasons = append(reasons, fmt.Sprintf("PANIC forced: vol ratio %.2f, drawdown %.1f%%", c.volRatio, c.drawdown*100))
	case cls.held:
		reasons = append(reasons, fmt.Sprintf("Hysteresis: holding %s (fused %.2f, candidate %s)", cls.regime, fused, cls.candidate))
	default:
		reasons = append(reasons, fmt.Sprintf("Regime %s: fused %.2f vs threshold %.2f", cls.regime, fused, th.TrendScoreThreshold))
	}

	base := math.Abs(fused)
	if cls.regime == types.RegimePanic {
		base = math.Max(base, panicScore)
	}
	confidence := base
	extW, extSum := 0.0, 0.0
	if nt.active {
		extW += w.News
		extSum += w.News * clamp01(nt.signal.Confidence)
	}
	if rt.active {
		extW += w.Realtime
		extSum += w.Realtime * rt.mag
	}
	if extW > 0 {
		confidence = 0.7*base + 0.3*(extSum/extW)
	}
	confidence = clamp01(confidence)

	strat := strategy.ForRegime(cls.regime)
	res := strat.Decide(bars)
	action := res.Action
	reasons = append(reasons, res.Reasons...)

	panicBuy := cls.regime == types.RegimePanic && action == types.ActionBuy
	if panicBuy {
		action = types.ActionHold
		reasons = append(reasons, "PANIC regime: BUY disabled")
	}
	costFilter := finite(c.volRatio) && c.volRatio < th.VolRatioLow && action != types.ActionHold
	if costFilter {
		action = types.ActionHold
		reasons = append(reasons, fmt.Sprintf("Cost filter: vol ratio %.2f < %.2f", c.volRatio, th.VolRatioLow))
	}
	volFloor := th.VolumeLiquidityFloor()
	liquidityVeto := (finite(c.volRatio) && c.volRatio < volFloor) ||
		(finite(c.amountRatio) && c.amountRatio < th.MinLiquidityAmountRatio)
	if liquidityVeto {
		if action != types.ActionHold {
			logger.Risk(ctx, in.Instrument, "LIQUIDITY_VETO",
				"action", action,
				"vol_ratio", c.volRatio,
				"amount_ratio", c.amountRatio,
			)
		}
		action = types.ActionHold
		reasons = append(reasons, "Liquidity veto: volume/amount below floor")
	}
	volumeExpansion := finite(c.volRatio) && c.volRatio >= th.VolRatioHigh
	if volumeExpansion {
		reasons = append(reasons, fmt.Sprintf("Volume expansion: vol ratio %.2f", c.volRatio))
	}

	posCap, why := e.risk.positionCap(ctx, in.Instrument, cfg, cls.regime, confidence, c)
	reasons = append(reasons, why...)

	putFinite(metrics, "close", c.close)
	putFinite(metrics, "ema20", c.ema20)
	putFinite(metrics, "ema60", c.ema60)
	putFinite(metrics, "ema20_slope", c.slope)
	putFinite(metrics, "rsi14", c.rsi)
	putFinite(metrics, "spread", c.spread)
	putFinite(metrics, "vol_ratio", c.volRatio)
	putFinite(metrics, "amount_ratio", c.amountRatio)
	putFinite(metrics, "drawdown", c.drawdown)
	putFinite(metrics, "atr_pct", c.atrPct)
	metrics["trend"] = c.trend
	metrics["range"] = c.rangeBias
	metrics["panic_bars"] = c.panic
	metrics["panic"] = panicScore
	metrics["fused"] = fused
	metrics["fusion_weight"] = total
	metrics["confidence_base"] = base
	flag(metrics, "forced_panic", cls.forced)
	flag(metrics, "hysteresis_hold", cls.held)
	flag(metrics, "news_active", nt.active)
	flag(metrics, "realtime_active", rt.active)
	flag(metrics, "liquidity_veto", liquidityVeto)
	flag(metrics, "cost_filter", costFilter)
	flag(metrics, "panic_buy_blocked", panicBuy)
	flag(metrics, "volume_expansion", volumeExpansion)

	if nt.signal != nil {
		metrics["news_score"] = nt.signal.Score
		metrics["news_confidence"] = nt.signal.Confidence
		d.ExternalSignals.News = &types.NewsSignalRef{
			Score:      nt.signal.Score,
			Confidence: nt.signal.Confidence,
			Ts:         nt.signal.Ts,
			Sources:    nt.signal.Sources,
			TopTitles:  nt.signal.TopTitles,
		}
	}
	if rt.ok {
		metrics["realtime_score"] = rt.score
		if s := rt.signal.VolSurprise; s != nil {
			metrics["vol_surprise"] = *s
		}
		if s := rt.signal.AmtSurprise; s != nil {
			metrics["amt_surprise"] = *s
		}
		d.ExternalSignals.Realtime = &types.RealtimeRef{
			VolSurprise: rt.signal.VolSurprise,
			AmtSurprise: rt.signal.AmtSurprise,
			Ts:          rt.signal.Ts,
		}
	}

	d.Regime = cls.regime
	if hasPrior {
		d.PriorRegime = prior
	}
	d.RegimeConfidence = clamp01(base)
	d.Strategy = strat.ID()
	d.Action = action
	d.Confidence = confidence
	d.PositionCap = posCap
	d.FusedScore = fused
	d.Scores = types.Scores{Trend: c.trend, Range: c.rangeBias, Panic: panicScore}
	d.Reasons = reasons

	if hasPrior && prior != cls.regime {
		logger.RegimeChange(ctx, in.Instrument, string(in.Timeframe), string(prior), string(cls.regime),
			"fused", fused, "forced", cls.forced)
	}
	if err := e.memory.Remember(ctx, in.Instrument, in.Timeframe, cls.regime); err != nil {
		logger.ErrorWithErr(ctx, "Regime memory write failed", err,
			"instrument", in.Instrument, "timeframe", in.Timeframe, "regime", cls.regime)
	}
	return d, nil
}
