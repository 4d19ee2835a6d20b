package news

import (
	"context"
	"time"

	"regime-engine/internal/logger"
	"regime-engine/internal/types"
)

// Service enriches raw news items and resolves them into one signal.
type Service struct {
	scorer  *Scorer
	regions *RegionClassifier
	cfg     *ServiceConfig
}

// ServiceConfig configures the news signal service
type ServiceConfig struct {
	Window        time.Duration // Rolling window of the impact-decay signal
	HalfLife      time.Duration // Half-life of the impact-decay weights
	MinConfidence float64       // Impact-decay signals below this fall through to age decay
	DecayK        float64       // Per-minute decay of the age-decay fallback
	Enabled       bool          // Whether news contributes at all
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Window:        DefaultSignalWindow,
		HalfLife:      DefaultSignalHalfLife,
		MinConfidence: 0.25,
		DecayK:        0.01,
		Enabled:       true,
	}
}

// NewService creates a news service. regions may be nil, in which case
// items keep whatever region they arrived with.
func NewService(scorer *Scorer, regions *RegionClassifier, cfg *ServiceConfig) *Service {
	if scorer == nil {
		scorer = NewScorer(nil)
	}
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{scorer: scorer, regions: regions, cfg: cfg}
}

// Enrich drops fingerprint duplicates and fills in sentiment, impact, tags,
// event type and region where the item does not already carry them.
// The input slice is not modified.
func (s *Service) Enrich(ctx context.Context, symbol string, items []types.NewsItem, now time.Time) []types.NewsItem {
	out := make([]types.NewsItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	dropped := 0
	for _, it := range items {
		fp := Fingerprint(it.URL, it.Title, it.Ts, it.Source)
		if _, dup := seen[fp]; dup {
			dropped++
			continue
		}
		seen[fp] = struct{}{}

		if !finitePtr(it.SentimentScore) {
			sent := BasicSentiment(it.Title, it.Content)
			it.SentimentScore = types.Float(sent.Score)
			it.SentimentConfidence = types.Float(sent.Confidence)
		}
		if !finitePtr(it.ImpactScore) || len(it.Tags) == 0 {
			impact := s.scorer.ScoreImpact(ImpactInput{
				Symbol:       symbol,
				Title:        it.Title,
				Source:       it.Source,
				PublishedAt:  time.UnixMilli(it.Ts),
				Content:      it.Content,
				MarketLinked: it.MarketLinked,
			}, now)
			if !finitePtr(it.ImpactScore) {
				it.ImpactScore = types.Float(impact.Score)
			}
			if len(it.Tags) == 0 {
				it.Tags = impact.Tags
			}
			if it.EventType == "" {
				it.EventType = impact.EventType
			}
		}
		if it.Region == "" && s.regions != nil {
			it.Region = string(s.regions.Classify(NormalizeSource(it)).Region)
		}
		out = append(out, it)
	}
	if dropped > 0 {
		logger.Debug(ctx, "Dropped duplicate news items", "symbol", symbol, "dropped", dropped)
	}
	return out
}

const (
	SourceItemsRolling = "items_rolling"
	SourceAgeDecay     = "age_decay"
)

// Resolved is the news signal handed to the fusion engine.
type Resolved struct {
	Score      float64
	Confidence float64
	Ts         int64
	Sources    []string
	TopTitles  []string
	SourceType string
}

// Resolve prefers the impact-decay signal and falls back to age decay when
// the former is missing or under-confident. nil means no signal.
func (s *Service) Resolve(ctx context.Context, symbol string, items []types.NewsItem, now time.Time) *Resolved {
	if !s.cfg.Enabled || len(items) == 0 {
		return nil
	}
	sig := RollingNewsSignalOf(items, now, SignalOptions{Window: s.cfg.Window, HalfLife: s.cfg.HalfLife})
	if sig != nil && sig.Confidence >= s.cfg.MinConfidence {
		return &Resolved{
			Score:      sig.Score,
			Confidence: sig.Confidence,
			Ts:         sig.Ts,
			Sources:    sig.Sources,
			TopTitles:  sig.Explain.TopTitles,
			SourceType: SourceItemsRolling,
		}
	}

	rolling := RollingSentimentOf(SamplesFromItems(items), now, s.cfg.Window.Hours(), s.cfg.DecayK)
	if rolling == nil || !(rolling.Confidence > 0) || rolling.Score == 0 {
		logger.Debug(ctx, "No qualifying news window", "symbol", symbol, "items", len(items))
		return nil
	}
	cutoff := now.Add(-s.cfg.Window).UnixMilli()
	var latest int64
	var sources []string
	seen := make(map[string]struct{})
	for _, it := range items {
		if it.Ts < cutoff {
			continue
		}
		if it.Ts > latest {
			latest = it.Ts
		}
		if _, ok := seen[it.Source]; it.Source != "" && !ok {
			seen[it.Source] = struct{}{}
			sources = append(sources, it.Source)
		}
	}
	return &Resolved{
		Score:      rolling.Score,
		Confidence: rolling.Confidence,
		Ts:         latest,
		Sources:    sources,
		SourceType: SourceAgeDecay,
	}
}
