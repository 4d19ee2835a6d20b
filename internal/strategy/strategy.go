package strategy

import (
	"fmt"

	"regime-engine/internal/ta"
	"regime-engine/internal/types"
)

type Result struct {
	Action  types.Action `json:"action"`
	Reasons []string     `json:"reasons"`
}

// Strategy turns a bar sequence into an action. Insufficient history is
// reported as HOLD with a reason, never as an error.
type Strategy interface {
	ID() types.StrategyID
	Decide(bars []types.Bar) Result
}

func hold(reason string) Result {
	return Result{Action: types.ActionHold, Reasons: []string{reason}}
}

type tsmom struct{}

func (tsmom) ID() types.StrategyID { return types.StrategyTSMOM }

func (tsmom) Decide(bars []types.Bar) Result {
	if len(bars) < 60 {
		return hold(fmt.Sprintf("Insufficient bars for TSMOM (%d < 60)", len(bars)))
	}
	closes := ta.Closes(bars)
	ema20 := ta.EMA(closes, 20)
	ema60 := ta.EMA(closes, 60)
	slope := ta.Last(ta.Slope(ema20, 10))
	last := ta.Last(closes)
	e20, e60 := ta.Last(ema20), ta.Last(ema60)

	if ta.IsFinite(e20) && ta.IsFinite(e60) && ta.IsFinite(slope) && last > e20 && e20 > e60 && slope > 0 {
		return Result{Action: types.ActionBuy, Reasons: []string{"Price above EMA20 > EMA60 with positive EMA20 slope"}}
	}
	if ta.IsFinite(e20) && last < e20 {
		return Result{Action: types.ActionSell, Reasons: []string{"Price below EMA20"}}
	}
	return hold("TSMOM neutral signal")
}

type meanReversion struct{}

func (meanReversion) ID() types.StrategyID { return types.StrategyMeanReversion }

func (meanReversion) Decide(bars []types.Bar) Result {
	if len(bars) < 30 {
		return hold(fmt.Sprintf("Insufficient bars for mean reversion (%d < 30)", len(bars)))
	}
	rsi := ta.Last(ta.RSI(ta.Closes(bars), 14))
	switch {
	case !ta.IsFinite(rsi):
		return hold("RSI undefined")
	case rsi < 30:
		return Result{Action: types.ActionBuy, Reasons: []string{fmt.Sprintf("RSI14 %.1f oversold", rsi)}}
	case rsi > 70:
		return Result{Action: types.ActionSell, Reasons: []string{fmt.Sprintf("RSI14 %.1f overbought", rsi)}}
	}
	return hold("Mean reversion neutral signal")
}

type riskOff struct{}

func (riskOff) ID() types.StrategyID { return types.StrategyRiskOff }

func (riskOff) Decide(bars []types.Bar) Result {
	if len(bars) < 30 {
		return hold(fmt.Sprintf("Insufficient bars for risk-off (%d < 30)", len(bars)))
	}
	closes := ta.Closes(bars)
	e20 := ta.Last(ta.EMA(closes, 20))
	if ta.IsFinite(e20) && ta.Last(closes) < e20 {
		return Result{Action: types.ActionSell, Reasons: []string{"Risk-off: price below EMA20"}}
	}
	return hold("Risk-off: stay in cash")
}

var byRegime = map[types.Regime]Strategy{
	types.RegimeTrend: tsmom{},
	types.RegimeRange: meanReversion{},
	types.RegimePanic: riskOff{},
}

// ForRegime returns the strategy bound to a regime. An unknown regime is a
// programming error.
func ForRegime(r types.Regime) Strategy {
	s, ok := byRegime[r]
	if !ok {
		panic(fmt.Sprintf("strategy: no strategy for regime %q", r))
	}
	return s
}
