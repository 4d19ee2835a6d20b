package engine

import (
	"math"
	"testing"

	"regime-engine/internal/store"
	"regime-engine/internal/types"
)

func TestClassifyHysteresis(t *testing.T) {
	th := store.DefaultStrategyConfig("o", "X").Thresholds // threshold 0.6, margin 0.15
	cases := []struct {
		name     string
		fused    float64
		forced   bool
		prior    types.Regime
		hasPrior bool
		want     types.Regime
		held     bool
	}{
		{"fresh trend", 0.62, false, "", false, types.RegimeTrend, false},
		{"fresh range", 0.2, false, "", false, types.RegimeRange, false},
		{"negative trend", -0.8, false, types.RegimeRange, true, types.RegimeTrend, false},
		{"range holds inside margin", 0.65, false, types.RegimeRange, true, types.RegimeRange, true},
		{"range flips past margin", 0.76, false, types.RegimeRange, true, types.RegimeTrend, false},
		{"trend holds inside margin", 0.5, false, types.RegimeTrend, true, types.RegimeTrend, true},
		{"trend leaves past margin", 0.44, false, types.RegimeTrend, true, types.RegimeRange, false},
		{"panic holds for weak trend", 0.7, false, types.RegimePanic, true, types.RegimePanic, true},
		{"panic leaves for strong trend", 0.8, false, types.RegimePanic, true, types.RegimeTrend, false},
		{"panic leaves for calm range", 0.3, false, types.RegimePanic, true, types.RegimeRange, false},
		{"forced panic ignores prior", 0.9, true, types.RegimeTrend, true, types.RegimePanic, false},
		{"same regime never held", 0.61, false, types.RegimeTrend, true, types.RegimeTrend, false},
		{"trend leaves at lower boundary", th.TrendScoreThreshold - th.HysteresisThreshold, false, types.RegimeTrend, true, types.RegimeRange, false},
		{"range flips at upper boundary", th.TrendScoreThreshold + th.HysteresisThreshold, false, types.RegimeRange, true, types.RegimeTrend, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.fused, tc.forced, tc.prior, tc.hasPrior, th)
			if got.regime != tc.want || got.held != tc.held {
				t.Fatalf("classify(%v) = %s held=%v, want %s held=%v", tc.fused, got.regime, got.held, tc.want, tc.held)
			}
		})
	}
}

func TestPanicScore(t *testing.T) {
	th := store.DefaultStrategyConfig("o", "X").Thresholds
	cases := []struct {
		name     string
		volRatio float64
		drawdown float64
		want     float64
	}{
		{"quiet", 1, 0, 0},
		{"half drawdown", 1, 0.04, 0.5},
		{"vol at threshold", 2.2, 0, 1},
		{"undefined inputs", math.NaN(), math.NaN(), 0},
		{"volume dry-up is not panic", 0.2, 0, 0},
		{"saturates", 5, 0.5, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := panicScore(tc.volRatio, tc.drawdown, th); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("panicScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRatioToBaseline(t *testing.T) {
	vals := []float64{10, 10, 10, 10, 10, 30}
	if got := ratioToBaseline(vals, 20); got != 3 {
		t.Fatalf("ratio = %v, want 3", got)
	}
	if got := ratioToBaseline(vals[:5], 20); !math.IsNaN(got) {
		t.Fatalf("short baseline = %v, want NaN", got)
	}
	if got := ratioToBaseline([]float64{0, 0, 0, 0, 0, 5}, 20); !math.IsNaN(got) {
		t.Fatalf("zero baseline = %v, want NaN", got)
	}
}

func TestComputeComponentsUptrend(t *testing.T) {
	th := store.DefaultStrategyConfig("o", "X").Thresholds
	c := computeComponents(uptrend(90), th)
	if c.trend < 0.9 || c.trend > 1 {
		t.Fatalf("trend = %v", c.trend)
	}
	if c.rsi != 100 {
		t.Fatalf("rsi = %v", c.rsi)
	}
	if c.volRatio != 1 || c.drawdown != 0 || c.panic != 0 {
		t.Fatalf("vol ratio %v drawdown %v panic %v", c.volRatio, c.drawdown, c.panic)
	}
	if !math.IsNaN(c.amountRatio) {
		t.Fatalf("amount ratio = %v, want NaN without amounts", c.amountRatio)
	}
}

func TestComputeComponentsShortHistory(t *testing.T) {
	th := store.DefaultStrategyConfig("o", "X").Thresholds
	c := computeComponents(uptrend(10), th)
	if !math.IsNaN(c.ema20) || !math.IsNaN(c.spread) || c.trend != 0 || c.rangeBias != 0 {
		t.Fatalf("short history components = %+v", c)
	}
}

func TestComputeComponentsATRPercent(t *testing.T) {
	th := store.DefaultStrategyConfig("o", "X").Thresholds
	b := make([]types.Bar, 30)
	for i := range b {
		b[i] = types.Bar{Ts: int64(i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	}
	c := computeComponents(b, th)
	if math.Abs(c.atrPct-2) > 1e-9 {
		t.Fatalf("atr pct = %v, want 2", c.atrPct)
	}
	if c := computeComponents(b[:10], th); !math.IsNaN(c.atrPct) {
		t.Fatalf("atr pct on 10 bars = %v, want NaN", c.atrPct)
	}
}
