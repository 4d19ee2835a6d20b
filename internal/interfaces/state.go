package interfaces

import (
	"context"

	"regime-engine/internal/store"
	"regime-engine/internal/types"
)

// RegimeMemory holds the last reported regime per (instrument, timeframe).
type RegimeMemory interface {
	Last(ctx context.Context, instrument string, tf types.Timeframe) (types.Regime, bool, error)
	Remember(ctx context.Context, instrument string, tf types.Timeframe, regime types.Regime) error
}

type ConfigStore interface {
	Get(ctx context.Context, owner, instrument string) (store.StrategyConfig, error)
	Patch(ctx context.Context, owner, instrument string, p store.ConfigPatch) (store.StrategyConfig, error)
}
