package news

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"regime-engine/internal/types"
)

var defaultKeywords = []string{
	"立案", "监管", "处罚", "问询", "调查",
	"业绩", "财报", "预增", "预亏",
	"并购", "重组",
	"停牌", "复牌",
	"减持", "增持", "回购",
	"涨停", "跌停",
	"暴雷", "违约",
	"risk", "investigation", "earnings", "merger", "acquisition", "halt", "buyback",
}

// Event types, in match priority order.
const (
	EventRegulatory   = "监管"
	EventEarnings     = "业绩"
	EventMerger       = "并购"
	EventHalt         = "停牌"
	EventIncrease     = "增持"
	EventDecrease     = "减持"
	EventLimitMove    = "涨停"
	EventRiskIncident = "风险"
)

type eventRule struct {
	eventType string
	keywords  []string
}

var eventTypeRules = []eventRule{
	{EventRegulatory, []string{"立案", "监管", "处罚", "问询", "调查", "investigation"}},
	{EventEarnings, []string{"业绩", "财报", "预增", "预亏", "earnings"}},
	{EventMerger, []string{"并购", "重组", "merger", "acquisition"}},
	{EventHalt, []string{"停牌", "复牌", "halt"}},
	{EventIncrease, []string{"增持", "回购", "buyback"}},
	{EventDecrease, []string{"减持"}},
	{EventLimitMove, []string{"涨停", "跌停"}},
	{EventRiskIncident, []string{"暴雷", "违约", "risk"}},
}

var (
	positiveWords = []string{"利好", "增长", "超预期", "上调", "创新高", "profit", "growth", "upgrade", "surge", "beat", "strong", "rally"}
	negativeWords = []string{"利空", "下调", "亏损", "暴雷", "违约", "停牌", "处罚", "loss", "downgrade", "miss", "fraud", "crash"}
)

const maxKeywords = 10

// PlainText strips markup from feed content. Text without tags is returned unchanged.
func PlainText(content string) string {
	if !strings.Contains(content, "<") {
		return content
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func matchText(title, content string) string {
	return strings.ToLower(title + " " + PlainText(content))
}

// ExtractKeywords returns the watched keywords found in title and content,
// deduplicated, in list order, at most ten.
func ExtractKeywords(title, content string) []string {
	text := matchText(title, content)
	matched := make([]string, 0, 4)
	seen := make(map[string]struct{})
	for _, kw := range defaultKeywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			seen[kw] = struct{}{}
			matched = append(matched, kw)
			if len(matched) == maxKeywords {
				break
			}
		}
	}
	return matched
}

// InferEventType returns the first rule that matches, or "" when none does.
func InferEventType(title, content string) string {
	text := matchText(title, content)
	for _, rule := range eventTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return rule.eventType
			}
		}
	}
	return ""
}

// Sentiment is a keyword-count sentiment estimate.
type Sentiment struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

func BasicSentiment(title, content string) Sentiment {
	text := matchText(title, content)
	pos, neg := 0, 0
	for _, kw := range positiveWords {
		if strings.Contains(text, strings.ToLower(kw)) {
			pos++
		}
	}
	for _, kw := range negativeWords {
		if strings.Contains(text, strings.ToLower(kw)) {
			neg++
		}
	}
	matches := pos + neg
	if matches == 0 {
		return Sentiment{Score: 0, Confidence: 0.3}
	}
	return Sentiment{
		Score:      clamp(float64(pos-neg)/math.Max(3, float64(matches)), -1, 1),
		Confidence: clamp(0.25+float64(matches)*0.08, 0.3, 0.65),
	}
}

// SourceWeights maps a lower-cased source key to its base impact weight.
type SourceWeights map[string]float64

const unknownSourceWeight = 0.5

// DefaultSourceWeights returns a fresh copy of the built-in weights.
func DefaultSourceWeights() SourceWeights {
	return SourceWeights{
		"rss":      0.3,
		"akshare":  0.6,
		"tushare":  0.9,
		"gov":      0.95,
		"exchange": 0.9,
		"manual":   0.4,
	}
}

// ParseSourceWeights overlays "source:weight,source:weight" onto the defaults.
// Malformed pairs are ignored.
func ParseSourceWeights(raw string) SourceWeights {
	weights := DefaultSourceWeights()
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			continue
		}
		num, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
			continue
		}
		weights[key] = num
	}
	return weights
}

func (w SourceWeights) Weight(source string) float64 {
	if v, ok := w[strings.ToLower(source)]; ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	return unknownSourceWeight
}

// ImpactInput describes one item to score.
type ImpactInput struct {
	Symbol       string
	Title        string
	Source       string
	PublishedAt  time.Time
	Content      string
	MarketLinked bool
}

type Impact struct {
	Score     float64  `json:"impactScore"`
	Tags      []string `json:"tags"`
	EventType string   `json:"eventType,omitempty"`
}

// Scorer computes per-item impact against an injected source weight table.
type Scorer struct {
	weights SourceWeights
}

func NewScorer(weights SourceWeights) *Scorer {
	if weights == nil {
		weights = DefaultSourceWeights()
	}
	return &Scorer{weights: weights}
}

func (s *Scorer) ScoreImpact(in ImpactInput, now time.Time) Impact {
	sourceWeight := s.weights.Weight(in.Source)

	keywords := ExtractKeywords(in.Title, in.Content)
	keywordBoost := math.Min(0.35, float64(len(keywords))*0.08)

	ageMin := math.Max(0, now.Sub(in.PublishedAt).Minutes())
	recencyBoost := 0.0
	switch {
	case ageMin <= 10:
		recencyBoost = 0.3
	case ageMin <= 30:
		recencyBoost = 0.2
	case ageMin <= 120:
		recencyBoost = 0.1
	}

	symbolBoost := 0.0
	raw := strings.ToUpper(strings.TrimSpace(in.Symbol))
	code := types.SymbolCode(raw)
	if raw != "" && (strings.Contains(in.Title, raw) || (code != "" && strings.Contains(in.Title, code))) {
		symbolBoost = 0.2
	}

	marketBoost := 0.0
	if in.MarketLinked {
		marketBoost = 0.2
	}

	return Impact{
		Score:     clamp(sourceWeight+keywordBoost+recencyBoost+symbolBoost+marketBoost, 0, 1),
		Tags:      keywords,
		EventType: InferEventType(in.Title, in.Content),
	}
}

// clamp maps non-finite input to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
