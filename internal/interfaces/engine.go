package interfaces

import (
	"context"
	"time"

	"regime-engine/internal/store"
	"regime-engine/internal/types"
)

// Inputs is everything one evaluation may look at. Fetching it is the
// caller's job; the engine performs no I/O of its own beyond the regime
// memory.
type Inputs struct {
	Owner      string
	Instrument string
	Timeframe  types.Timeframe
	Bars       []types.Bar
	News       []types.NewsItem
	// Tape is the current realtime sample; TapePrior is its expectation window.
	Tape      *types.TapeSample
	TapePrior []types.TapeSample
	Config    store.StrategyConfig
	Now       time.Time
}

type Engine interface {
	Evaluate(ctx context.Context, in Inputs) (types.Decision, error)
}
