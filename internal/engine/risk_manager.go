package engine

import (
	"context"
	"fmt"

	"regime-engine/internal/logger"
	"regime-engine/internal/store"
	"regime-engine/internal/types"
)

const (
	lowConfidence   = 0.3
	marginalFactor  = 1.5
	capScaleOnAlert = 0.5
)

// riskManager sizes the position cap of a decision.
type riskManager struct{}

func newRiskManager() *riskManager {
	return &riskManager{}
}

func (rm *riskManager) regimeCap(caps store.PositionCaps, regime types.Regime) float64 {
	switch regime {
	case types.RegimeTrend:
		return caps.Trend
	case types.RegimePanic:
		return caps.Panic
	}
	return caps.Range
}

// marginalLiquidity reports whether either liquidity ratio sits within
// marginalFactor of its floor.
func marginalLiquidity(c components, th store.Thresholds) bool {
	if floor := th.VolumeLiquidityFloor(); floor > 0 && finite(c.volRatio) && c.volRatio < marginalFactor*floor {
		return true
	}
	if floor := th.MinLiquidityAmountRatio; floor > 0 && finite(c.amountRatio) && c.amountRatio < marginalFactor*floor {
		return true
	}
	return false
}

// positionCap returns caps[regime], halved for low confidence and halved
// again for marginal liquidity. It never exceeds caps[regime].
func (rm *riskManager) positionCap(ctx context.Context, instrument string, cfg store.StrategyConfig, regime types.Regime, confidence float64, c components) (float64, []string) {
	base := rm.regimeCap(cfg.PositionCaps, regime)
	capped := base
	var reasons []string
	if confidence < lowConfidence {
		capped *= capScaleOnAlert
		reasons = append(reasons, fmt.Sprintf("Position cap halved: confidence %.2f < %.2f", confidence, lowConfidence))
	}
	if marginalLiquidity(c, cfg.Thresholds) {
		capped *= capScaleOnAlert
		reasons = append(reasons, "Position cap halved: marginal liquidity")
	}
	if capped < base {
		logger.Debug(ctx, "Position cap scaled down",
			"instrument", instrument,
			"regime", regime,
			"base_cap", base,
			"position_cap", capped,
			"confidence", confidence,
		)
	}
	return clamp(capped, 0, base), reasons
}
