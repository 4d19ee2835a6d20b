package news

import (
	"math"
	"sort"
	"time"

	"regime-engine/internal/types"
)

const minSignalItems = 3

// SentimentSample is an item that only carries sentiment and confidence.
type SentimentSample struct {
	PublishedAt    int64
	SentimentScore *float64
	Confidence     *float64
}

type RollingSentiment struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Count      int     `json:"count"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finitePtr(p *float64) bool {
	return p != nil && isFinite(*p)
}

// RollingSentimentOf aggregates samples published within windowHours of now,
// weighting each by exp(-decayK * ageMinutes). It returns nil when fewer than
// three samples qualify.
func RollingSentimentOf(items []SentimentSample, now time.Time, windowHours, decayK float64) *RollingSentiment {
	nowMs := now.UnixMilli()
	cutoff := float64(nowMs) - math.Max(0, windowHours)*3600000
	var weightSum, weightedScore, weightedConf float64
	count := 0
	for _, it := range items {
		if float64(it.PublishedAt) < cutoff || !finitePtr(it.SentimentScore) {
			continue
		}
		ageMinutes := math.Max(0, float64(nowMs-it.PublishedAt)/60000)
		w := math.Exp(-decayK * ageMinutes)
		weightSum += w
		weightedScore += *it.SentimentScore * w
		if finitePtr(it.Confidence) {
			weightedConf += *it.Confidence * w
		}
		count++
	}
	if count < minSignalItems || !(weightSum > 0) {
		return nil
	}
	return &RollingSentiment{
		Score:      clamp(weightedScore/weightSum, -1, 1),
		Confidence: clamp01(weightedConf / weightSum),
		Count:      count,
	}
}

type SignalExplain struct {
	TopTitles []string `json:"topTitles"`
	N         int      `json:"n"`
	AvgImpact float64  `json:"avgImpact"`
}

// Signal is the impact-weighted rolling news signal.
type Signal struct {
	Score      float64       `json:"score"`
	Confidence float64       `json:"confidence"`
	Ts         int64         `json:"ts"`
	Sources    []string      `json:"sources"`
	Explain    SignalExplain `json:"explain"`
}

type SignalOptions struct {
	Window   time.Duration
	HalfLife time.Duration
}

const (
	DefaultSignalWindow   = 2 * time.Hour
	DefaultSignalHalfLife = 20 * time.Minute
	defaultImpact         = 0.5
)

type scoredItem struct {
	title     string
	source    string
	sentiment float64
	weight    float64
	impact    float64
}

// RollingNewsSignalOf weights each item in the window by
// impact * exp(-age/halfLife). Items without a finite sentiment are dropped
// and at least three must remain, otherwise the result is nil.
func RollingNewsSignalOf(items []types.NewsItem, now time.Time, opts SignalOptions) *Signal {
	window := opts.Window
	if window <= 0 {
		window = DefaultSignalWindow
	}
	halfLife := opts.HalfLife
	if halfLife <= 0 {
		halfLife = DefaultSignalHalfLife
	}
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()

	var latest int64
	inWindow := 0
	scored := make([]scoredItem, 0, len(items))
	for _, it := range items {
		if it.Ts < cutoff {
			continue
		}
		if inWindow == 0 || it.Ts > latest {
			latest = it.Ts
		}
		inWindow++
		if !finitePtr(it.SentimentScore) {
			continue
		}
		impact := defaultImpact
		if finitePtr(it.ImpactScore) {
			impact = *it.ImpactScore
		}
		dt := math.Max(0, float64(nowMs-it.Ts))
		scored = append(scored, scoredItem{
			title:     it.Title,
			source:    it.Source,
			sentiment: *it.SentimentScore,
			weight:    impact * math.Exp(-dt/float64(halfLife.Milliseconds())),
			impact:    impact,
		})
	}
	if inWindow < minSignalItems || len(scored) < minSignalItems {
		return nil
	}

	var weightSum, weightedScore, impactSum float64
	for _, it := range scored {
		weightSum += it.weight
		weightedScore += it.sentiment * it.weight
		impactSum += it.impact
	}
	if !(weightSum > 0) {
		return nil
	}
	n := len(scored)
	avgImpact := impactSum / float64(n)

	ranked := make([]scoredItem, n)
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].sentiment*ranked[i].weight) > math.Abs(ranked[j].sentiment*ranked[j].weight)
	})
	top := make([]string, 0, 3)
	for i := 0; i < len(ranked) && i < 3; i++ {
		top = append(top, ranked[i].title)
	}

	sources := make([]string, 0)
	seen := make(map[string]struct{})
	for _, it := range scored {
		if it.source == "" {
			continue
		}
		if _, ok := seen[it.source]; ok {
			continue
		}
		seen[it.source] = struct{}{}
		sources = append(sources, it.source)
	}

	return &Signal{
		Score:      clamp(weightedScore/weightSum, -1, 1),
		Confidence: clamp01(math.Min(1, float64(n)/6) * avgImpact),
		Ts:         latest,
		Sources:    sources,
		Explain:    SignalExplain{TopTitles: top, N: n, AvgImpact: avgImpact},
	}
}

// SamplesFromItems projects news items onto the age-decay input shape.
func SamplesFromItems(items []types.NewsItem) []SentimentSample {
	out := make([]SentimentSample, 0, len(items))
	for _, it := range items {
		out = append(out, SentimentSample{
			PublishedAt:    it.Ts,
			SentimentScore: it.SentimentScore,
			Confidence:     it.SentimentConfidence,
		})
	}
	return out
}
