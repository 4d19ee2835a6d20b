package realtime

import (
	"sync"

	"regime-engine/internal/types"
)

type windowKey struct {
	instrument string
	timeframe  types.Timeframe
}

// Window retains the most recent samples per (instrument, timeframe).
type Window struct {
	mu       sync.Mutex
	capacity int
	samples  map[windowKey][]types.TapeSample
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = WindowSize
	}
	return &Window{capacity: capacity, samples: make(map[windowKey][]types.TapeSample)}
}

// Push appends a sample, evicting the oldest beyond capacity. Out-of-order
// samples (ts not after the newest) are dropped.
func (w *Window) Push(instrument string, sample types.TapeSample) bool {
	key := windowKey{instrument: instrument, timeframe: sample.Timeframe}
	w.mu.Lock()
	defer w.mu.Unlock()
	cur := w.samples[key]
	if n := len(cur); n > 0 && sample.Ts <= cur[n-1].Ts {
		return false
	}
	cur = append(cur, sample)
	if len(cur) > w.capacity {
		cur = append([]types.TapeSample(nil), cur[len(cur)-w.capacity:]...)
	}
	w.samples[key] = cur
	return true
}

// Prior returns a copy of the retained samples, oldest first.
func (w *Window) Prior(instrument string, tf types.Timeframe) []types.TapeSample {
	w.mu.Lock()
	defer w.mu.Unlock()
	cur := w.samples[windowKey{instrument: instrument, timeframe: tf}]
	out := make([]types.TapeSample, len(cur))
	copy(out, cur)
	return out
}

// Observe evaluates sample against the retained window and then retains it.
func (w *Window) Observe(instrument string, sample types.TapeSample) Signal {
	sig := Evaluate(sample, w.Prior(instrument, sample.Timeframe))
	w.Push(instrument, sample)
	return sig
}
