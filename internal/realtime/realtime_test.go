package realtime

import (
	"math"
	"sync"
	"testing"

	"regime-engine/internal/types"
)

func TestSurprise(t *testing.T) {
	if _, ok := Surprise(100, 0); ok {
		t.Fatal("expected=0 must be undefined")
	}
	if _, ok := Surprise(100, math.NaN()); ok {
		t.Fatal("non-finite expectation must be undefined")
	}
	s, ok := Surprise(200, 100)
	if !ok || s != 1.0 {
		t.Fatalf("Surprise(2x) = %v, %v; want 1.0", s, ok)
	}
	s, ok = Surprise(100, 100)
	if !ok || s != 0 {
		t.Fatalf("Surprise(1x) = %v, %v; want defined zero", s, ok)
	}
}

func samples(vols ...float64) []types.TapeSample {
	out := make([]types.TapeSample, len(vols))
	for i, v := range vols {
		out[i] = types.TapeSample{Ts: int64(i + 1), Timeframe: types.Timeframe1m, Volume: v, Amount: v * 10}
	}
	return out
}

func TestExpectationUsesLastTwenty(t *testing.T) {
	vols := make([]float64, 25)
	for i := range vols {
		vols[i] = 100
	}
	vols[0] = 1e9
	got, ok := Expectation(samples(vols...), volumeOf)
	if !ok || got != 100 {
		t.Fatalf("Expectation = %v, %v; want 100", got, ok)
	}
	if _, ok := Expectation(nil, volumeOf); ok {
		t.Fatal("empty window must be undefined")
	}
}

func TestEvaluate(t *testing.T) {
	prior := samples(100, 100, 100)
	sig := Evaluate(types.TapeSample{Ts: 10, Timeframe: types.Timeframe1m, Volume: 200, Amount: 1000}, prior)
	if sig.VolSurprise == nil || *sig.VolSurprise != 1 {
		t.Fatalf("vol surprise = %v, want 1", sig.VolSurprise)
	}
	if sig.AmtSurprise == nil || *sig.AmtSurprise != 0 {
		t.Fatalf("amt surprise = %v, want 0", sig.AmtSurprise)
	}
	if m, ok := sig.Max(); !ok || m != 1 {
		t.Fatalf("Max = %v, %v", m, ok)
	}
}

func TestEvaluateExplicitExpectationWins(t *testing.T) {
	prior := samples(100, 100)
	sig := Evaluate(types.TapeSample{Volume: 150, ExpectedVolume: types.Float(50), ExpectedAmount: types.Float(0)}, prior)
	if sig.VolSurprise == nil || *sig.VolSurprise != 2 {
		t.Fatalf("vol surprise = %v, want 2", sig.VolSurprise)
	}
	if sig.AmtSurprise != nil {
		t.Fatalf("explicit zero expectation must leave amount surprise undefined, got %v", *sig.AmtSurprise)
	}
	if !sig.Defined() {
		t.Fatal("expected a defined signal")
	}
}

func TestEvaluatePrecomputedSurprise(t *testing.T) {
	sig := Evaluate(types.TapeSample{Volume: 1, VolSurprise: types.Float(0.9)}, nil)
	if sig.VolSurprise == nil || *sig.VolSurprise != 0.9 {
		t.Fatalf("vol surprise = %v, want 0.9", sig.VolSurprise)
	}
	if sig.AmtSurprise != nil {
		t.Fatal("amount surprise should be undefined without history")
	}
}

func TestWindowCapAndOrder(t *testing.T) {
	w := NewWindow(20)
	for i := 1; i <= 25; i++ {
		w.Push("A", types.TapeSample{Ts: int64(i), Timeframe: types.Timeframe1m, Volume: float64(i)})
	}
	if w.Push("A", types.TapeSample{Ts: 3, Timeframe: types.Timeframe1m}) {
		t.Fatal("out-of-order sample must be dropped")
	}
	got := w.Prior("A", types.Timeframe1m)
	if len(got) != 20 || got[0].Ts != 6 || got[19].Ts != 25 {
		t.Fatalf("window = %d samples, first %d last %d", len(got), got[0].Ts, got[len(got)-1].Ts)
	}
	if len(w.Prior("A", types.Timeframe5m)) != 0 || len(w.Prior("B", types.Timeframe1m)) != 0 {
		t.Fatal("windows must be partitioned by key")
	}
}

func TestWindowConcurrentKeys(t *testing.T) {
	w := NewWindow(5)
	var wg sync.WaitGroup
	for _, inst := range []string{"A", "B", "C", "D"} {
		wg.Add(1)
		go func(inst string) {
			defer wg.Done()
			for i := 1; i <= 50; i++ {
				w.Observe(inst, types.TapeSample{Ts: int64(i), Timeframe: types.Timeframe5m, Volume: 10})
			}
		}(inst)
	}
	wg.Wait()
	for _, inst := range []string{"A", "B", "C", "D"} {
		if got := w.Prior(inst, types.Timeframe5m); len(got) != 5 || got[4].Ts != 50 {
			t.Fatalf("%s window = %+v", inst, got)
		}
	}
}

func TestFromBars(t *testing.T) {
	bars := make([]types.Bar, 21)
	for i := range bars {
		bars[i] = types.Bar{Ts: int64(i), Volume: 100}
	}
	bars[20].Volume = 300
	cur, prior, ok := FromBars(bars, types.Timeframe1m, 20)
	if !ok || len(prior) != 20 || cur.Volume != 300 {
		t.Fatalf("FromBars = %+v, %d, %v", cur, len(prior), ok)
	}
	sig := Evaluate(cur, prior)
	if sig.VolSurprise == nil || *sig.VolSurprise != 2 {
		t.Fatalf("vol surprise = %v, want 2", sig.VolSurprise)
	}
	if sig.AmtSurprise != nil {
		t.Fatal("bars without amount must leave amount surprise undefined")
	}
	if _, _, ok := FromBars(bars[:20], types.Timeframe1m, 20); ok {
		t.Fatal("expected insufficient bars")
	}
}
