package news

import (
	"math"
	"testing"
	"time"

	"regime-engine/internal/types"
)

var aggNow = time.UnixMilli(1_700_000_000_000)

func minutesAgo(m int) int64 {
	return aggNow.Add(-time.Duration(m) * time.Minute).UnixMilli()
}

func sample(ageMin int, score, conf float64) SentimentSample {
	return SentimentSample{PublishedAt: minutesAgo(ageMin), SentimentScore: types.Float(score), Confidence: types.Float(conf)}
}

func item(ageMin int, title, source string, score, impact float64) types.NewsItem {
	return types.NewsItem{
		Ts:             minutesAgo(ageMin),
		Title:          title,
		Source:         source,
		SentimentScore: types.Float(score),
		ImpactScore:    types.Float(impact),
	}
}

func TestTwoItemsIsNoSignal(t *testing.T) {
	samples := []SentimentSample{sample(1, 0.5, 0.5), sample(2, 0.5, 0.5)}
	if got := RollingSentimentOf(samples, aggNow, 2, 0.01); got != nil {
		t.Fatalf("age-decay with 2 items = %+v, want nil", got)
	}
	items := []types.NewsItem{item(1, "a", "rss", 0.5, 0.5), item(2, "b", "rss", 0.5, 0.5)}
	if got := RollingNewsSignalOf(items, aggNow, SignalOptions{}); got != nil {
		t.Fatalf("impact-decay with 2 items = %+v, want nil", got)
	}
}

func TestThreeIdenticalItemsKeepTheirSentiment(t *testing.T) {
	samples := []SentimentSample{sample(5, 0.4, 0.6), sample(5, 0.4, 0.6), sample(5, 0.4, 0.6)}
	rs := RollingSentimentOf(samples, aggNow, 2, 0.01)
	if rs == nil {
		t.Fatal("expected a signal")
	}
	if math.Abs(rs.Score-0.4) > 1e-12 || math.Abs(rs.Confidence-0.6) > 1e-12 || rs.Count != 3 {
		t.Fatalf("age-decay = %+v", rs)
	}

	items := []types.NewsItem{item(5, "a", "rss", 0.4, 0.5), item(5, "b", "rss", 0.4, 0.5), item(5, "c", "gov", 0.4, 0.5)}
	sig := RollingNewsSignalOf(items, aggNow, SignalOptions{})
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if math.Abs(sig.Score-0.4) > 1e-12 {
		t.Fatalf("impact-decay score = %v, want 0.4", sig.Score)
	}
	// min(1, 3/6) * 0.5
	if math.Abs(sig.Confidence-0.25) > 1e-12 {
		t.Fatalf("confidence = %v, want 0.25", sig.Confidence)
	}
	if len(sig.Sources) != 2 || sig.Sources[0] != "rss" || sig.Sources[1] != "gov" {
		t.Fatalf("sources = %v", sig.Sources)
	}
}

func TestOlderItemsWeighLess(t *testing.T) {
	newerPositive := []SentimentSample{sample(1, 1, 0.5), sample(60, -1, 0.5), sample(30, 0, 0.5)}
	olderPositive := []SentimentSample{sample(60, 1, 0.5), sample(1, -1, 0.5), sample(30, 0, 0.5)}
	if rs := RollingSentimentOf(newerPositive, aggNow, 2, 0.01); rs == nil || rs.Score <= 0 {
		t.Fatalf("newer positive item should dominate, got %+v", rs)
	}
	if rs := RollingSentimentOf(olderPositive, aggNow, 2, 0.01); rs == nil || rs.Score >= 0 {
		t.Fatalf("older positive item should be outweighed, got %+v", rs)
	}

	a := []types.NewsItem{item(1, "pos", "rss", 1, 0.5), item(60, "neg", "rss", -1, 0.5), item(30, "flat", "rss", 0, 0.5)}
	b := []types.NewsItem{item(60, "pos", "rss", 1, 0.5), item(1, "neg", "rss", -1, 0.5), item(30, "flat", "rss", 0, 0.5)}
	if sig := RollingNewsSignalOf(a, aggNow, SignalOptions{}); sig == nil || sig.Score <= 0 {
		t.Fatalf("newer positive item should dominate, got %+v", sig)
	}
	if sig := RollingNewsSignalOf(b, aggNow, SignalOptions{}); sig == nil || sig.Score >= 0 {
		t.Fatalf("older positive item should be outweighed, got %+v", sig)
	}
}

func TestWindowExcludesOldItems(t *testing.T) {
	samples := []SentimentSample{sample(1, 1, 1), sample(2, 1, 1), sample(200, 1, 1)}
	if got := RollingSentimentOf(samples, aggNow, 2, 0.01); got != nil {
		t.Fatalf("expected nil once the 200 minute item falls outside 2h, got %+v", got)
	}
}

func TestImpactDecayRequiresScoredItems(t *testing.T) {
	items := []types.NewsItem{
		item(1, "a", "rss", 0.3, 0.5),
		item(2, "b", "rss", 0.3, 0.5),
		{Ts: minutesAgo(3), Title: "unscored", Source: "rss"},
	}
	if got := RollingNewsSignalOf(items, aggNow, SignalOptions{}); got != nil {
		t.Fatalf("expected nil with only two scored items, got %+v", got)
	}
}

func TestImpactDecayExplain(t *testing.T) {
	items := []types.NewsItem{
		item(1, "small", "rss", 0.1, 0.5),
		item(1, "big", "rss", -0.9, 0.9),
		item(90, "old", "rss", 0.9, 0.9),
		item(2, "mid", "gov", 0.5, 0.5),
	}
	sig := RollingNewsSignalOf(items, aggNow, SignalOptions{})
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Explain.N != 4 || len(sig.Explain.TopTitles) != 3 {
		t.Fatalf("explain = %+v", sig.Explain)
	}
	if sig.Explain.TopTitles[0] != "big" || sig.Explain.TopTitles[1] != "mid" {
		t.Fatalf("top titles = %v", sig.Explain.TopTitles)
	}
	if sig.Ts != minutesAgo(1) {
		t.Fatalf("ts = %d, want latest item", sig.Ts)
	}
	if math.Abs(sig.Explain.AvgImpact-0.7) > 1e-12 {
		t.Fatalf("avg impact = %v, want 0.7", sig.Explain.AvgImpact)
	}
}

func TestMissingImpactDefaultsToHalf(t *testing.T) {
	items := []types.NewsItem{
		{Ts: minutesAgo(1), Title: "a", SentimentScore: types.Float(0.2)},
		{Ts: minutesAgo(1), Title: "b", SentimentScore: types.Float(0.2)},
		{Ts: minutesAgo(1), Title: "c", SentimentScore: types.Float(0.2)},
	}
	sig := RollingNewsSignalOf(items, aggNow, SignalOptions{})
	if sig == nil || math.Abs(sig.Explain.AvgImpact-0.5) > 1e-12 {
		t.Fatalf("signal = %+v", sig)
	}
	if len(sig.Sources) != 0 {
		t.Fatalf("sources = %v, want none", sig.Sources)
	}
}
