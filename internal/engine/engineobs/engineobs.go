package engineobs

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"regime-engine/internal/interfaces"
	"regime-engine/internal/logger"
	"regime-engine/internal/metrics"
	"regime-engine/internal/store"
	"regime-engine/internal/trace"
	"regime-engine/internal/types"
)

type observableEngine struct {
	engine   interfaces.Engine
	recorder *metrics.Recorder
}

var _ interfaces.Engine = (*observableEngine)(nil)

// Wrap adds spans, structured logs and, when rec is non-nil, Prometheus
// metrics around eng.
func Wrap(eng interfaces.Engine, rec *metrics.Recorder) interfaces.Engine {
	return &observableEngine{
		engine:   eng,
		recorder: rec,
	}
}

func (oe *observableEngine) Evaluate(ctx context.Context, in interfaces.Inputs) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("instrument", in.Instrument),
		attribute.String("timeframe", string(in.Timeframe)),
		attribute.Int("bars", len(in.Bars)),
	)

	start := time.Now()

	logger.DebugSkip(ctx, 1, "Starting evaluation",
		"owner", in.Owner,
		"instrument", in.Instrument,
		"timeframe", in.Timeframe,
		"bars", len(in.Bars),
		"news", len(in.News),
	)

	d, err := oe.engine.Evaluate(ctx, in)
	elapsed := time.Since(start)
	if oe.recorder != nil {
		oe.recorder.RecordLatency(elapsed.Seconds())
	}
	if err != nil {
		if oe.recorder != nil {
			oe.recorder.RecordError(errorKind(err))
		}
		logger.ErrorWithErrSkip(ctx, 1, "Evaluation failed", err,
			"instrument", in.Instrument,
			"timeframe", in.Timeframe,
			"duration_ms", elapsed.Milliseconds(),
		)
		return types.Decision{}, err
	}
	if oe.recorder != nil {
		oe.recorder.RecordDecision(d)
	}

	span.SetAttributes(
		attribute.String("regime", string(d.Regime)),
		attribute.String("action", string(d.Action)),
		attribute.Float64("fused_score", d.FusedScore),
	)
	reason := ""
	if len(d.Reasons) > 0 {
		reason = d.Reasons[0]
	}
	logger.Decision(ctx, d.Instrument, string(d.Action), d.Confidence, reason,
		"timeframe", d.Timeframe,
		"regime", d.Regime,
		"strategy", d.Strategy,
		"position_cap", d.PositionCap,
		"fused_score", d.FusedScore,
		"duration_ms", elapsed.Milliseconds(),
	)

	return d, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, store.ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}
