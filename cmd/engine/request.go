package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"regime-engine/internal/decisionlog"
	"regime-engine/internal/interfaces"
	"regime-engine/internal/logger"
	"regime-engine/internal/realtime"
	"regime-engine/internal/store"
	"regime-engine/internal/types"
)

// request is one line of the input stream.
type request struct {
	Owner       string             `json:"owner,omitempty"`
	Instrument  string             `json:"instrument"`
	Timeframe   types.Timeframe    `json:"timeframe"`
	Now         int64              `json:"now,omitempty"`
	Bars        []types.Bar        `json:"bars"`
	News        []types.NewsItem   `json:"news,omitempty"`
	Tape        *types.TapeSample  `json:"tape,omitempty"`
	TapePrior   []types.TapeSample `json:"tapePrior,omitempty"`
	ConfigPatch *store.ConfigPatch `json:"configPatch,omitempty"`
}

// processor resolves per-instrument config and tape history for each
// request before handing it to the engine.
type processor struct {
	engine  interfaces.Engine
	configs interfaces.ConfigStore
	tapes   *realtime.Window
	log     *decisionlog.Log
	owner   string
	now     func() time.Time
}

func (p *processor) inputs(ctx context.Context, req request) (interfaces.Inputs, error) {
	owner := req.Owner
	if owner == "" {
		owner = p.owner
	}
	inst := types.NormalizeSymbol(req.Instrument)

	var (
		cfg store.StrategyConfig
		err error
	)
	if req.ConfigPatch != nil {
		cfg, err = p.configs.Patch(ctx, owner, inst, *req.ConfigPatch)
	} else {
		cfg, err = p.configs.Get(ctx, owner, inst)
	}
	if err != nil {
		return interfaces.Inputs{}, err
	}

	now := p.now()
	if req.Now > 0 {
		now = time.UnixMilli(req.Now)
	}

	in := interfaces.Inputs{
		Owner:      owner,
		Instrument: inst,
		Timeframe:  req.Timeframe,
		Bars:       req.Bars,
		News:       req.News,
		Tape:       req.Tape,
		TapePrior:  req.TapePrior,
		Config:     cfg,
		Now:        now,
	}
	if req.Tape != nil {
		tape := *req.Tape
		if tape.Timeframe == "" {
			tape.Timeframe = req.Timeframe
		}
		if len(in.TapePrior) == 0 {
			// the retained window stands in for a caller-supplied prior
			sig := p.tapes.Observe(inst, tape)
			tape.ExpectedVolume, tape.ExpectedAmount = sig.ExpectedVolume, sig.ExpectedAmount
			tape.VolSurprise, tape.AmtSurprise = sig.VolSurprise, sig.AmtSurprise
		} else {
			p.tapes.Push(inst, tape)
		}
		in.Tape = &tape
	}
	return in, nil
}

// handle evaluates one request and records the decision.
func (p *processor) handle(ctx context.Context, req request) (types.Decision, error) {
	in, err := p.inputs(ctx, req)
	if err != nil {
		return types.Decision{}, err
	}
	d, err := p.engine.Evaluate(ctx, in)
	if err != nil {
		return types.Decision{}, err
	}
	if p.log != nil {
		if err := p.log.Append(d); err != nil {
			logger.Warn(ctx, "Failed to append decision log", "instrument", d.Instrument, "error", err)
		}
	}
	return d, nil
}

// run reads newline-delimited requests from r and writes one JSON line per
// request to w. A bad request yields an error line and does not stop the
// stream.
func (p *processor) run(ctx context.Context, r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	enc := json.NewEncoder(w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}
		d, err := p.handle(ctx, req)
		if err != nil {
			logger.ErrorWithErr(ctx, "Evaluation failed", err, "instrument", req.Instrument)
			if err := enc.Encode(map[string]string{"instrument": req.Instrument, "error": err.Error()}); err != nil {
				return err
			}
			continue
		}
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
}
