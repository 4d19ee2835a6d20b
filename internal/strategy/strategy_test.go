package strategy

import (
	"strings"
	"testing"

	"regime-engine/internal/types"
)

func series(n int, next func(i int) float64) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		c := next(i)
		bars[i] = types.Bar{Ts: int64(i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func rising(n int) []types.Bar {
	price := 100.0
	return series(n, func(int) float64 { price *= 1.01; return price })
}

func falling(n int) []types.Bar {
	price := 100.0
	return series(n, func(int) float64 { price *= 0.99; return price })
}

func TestEveryRegimeHasAStrategy(t *testing.T) {
	want := map[types.Regime]types.StrategyID{
		types.RegimeTrend: types.StrategyTSMOM,
		types.RegimeRange: types.StrategyMeanReversion,
		types.RegimePanic: types.StrategyRiskOff,
	}
	for _, r := range types.Regimes {
		if got := ForRegime(r).ID(); got != want[r] {
			t.Errorf("ForRegime(%s) = %s, want %s", r, got, want[r])
		}
	}
}

func TestForRegimePanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	ForRegime(types.Regime("SIDEWAYS"))
}

func TestStrategies(t *testing.T) {
	cases := []struct {
		name   string
		regime types.Regime
		bars   []types.Bar
		want   types.Action
		reason string
	}{
		{"tsmom insufficient", types.RegimeTrend, rising(59), types.ActionHold, "Insufficient"},
		{"tsmom uptrend", types.RegimeTrend, rising(90), types.ActionBuy, "EMA20"},
		{"tsmom downtrend", types.RegimeTrend, falling(90), types.ActionSell, "below EMA20"},
		{"mean reversion insufficient", types.RegimeRange, rising(29), types.ActionHold, "Insufficient"},
		{"mean reversion overbought", types.RegimeRange, rising(40), types.ActionSell, "overbought"},
		{"mean reversion oversold", types.RegimeRange, falling(40), types.ActionBuy, "oversold"},
		{"risk off insufficient", types.RegimePanic, falling(10), types.ActionHold, "Insufficient"},
		{"risk off falling", types.RegimePanic, falling(40), types.ActionSell, "below EMA20"},
		{"risk off rising", types.RegimePanic, rising(40), types.ActionHold, "cash"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ForRegime(tc.regime).Decide(tc.bars)
			if got.Action != tc.want {
				t.Fatalf("action = %s, want %s (%v)", got.Action, tc.want, got.Reasons)
			}
			if len(got.Reasons) == 0 || !strings.Contains(got.Reasons[0], tc.reason) {
				t.Fatalf("reasons = %v, want one mentioning %q", got.Reasons, tc.reason)
			}
		})
	}
}

func TestMeanReversionNeutral(t *testing.T) {
	bars := series(40, func(i int) float64 {
		if i%2 == 0 {
			return 100
		}
		return 101
	})
	if got := ForRegime(types.RegimeRange).Decide(bars); got.Action != types.ActionHold {
		t.Fatalf("action = %s, want HOLD", got.Action)
	}
}
