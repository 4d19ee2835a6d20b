package news

import (
	"encoding/json"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"regime-engine/internal/types"
)

type Region string

const (
	RegionDomestic Region = "domestic"
	RegionGlobal   Region = "global"
)

type RegionReason string

const (
	ReasonPublisherRule RegionReason = "publisherRule"
	ReasonFeedRule      RegionReason = "feedRule"
	ReasonHostRule      RegionReason = "hostRule"
	ReasonTLDRule       RegionReason = "tldRule"
	ReasonLangFallback  RegionReason = "langFallback"
	ReasonDefault       RegionReason = "default"
)

type RegionResult struct {
	Region     Region       `json:"region"`
	Reason     RegionReason `json:"reason"`
	Confidence float64      `json:"confidence"`
}

// RegionRules is the on-disk rules document.
type RegionRules struct {
	PublisherRules map[string]Region `json:"publisherRules"`
	HostRules      map[string]Region `json:"hostRules"`
}

// NormalizedSource is the subset of an item used for region classification.
type NormalizedSource struct {
	SourceName string
	URLHost    string
	Title      string
	FeedName   string
	FeedID     string
}

func NormalizeSource(item types.NewsItem) NormalizedSource {
	name := strings.TrimSpace(item.Source)
	if name == "" {
		name = strings.TrimSpace(item.FeedName)
	}
	return NormalizedSource{
		SourceName: name,
		URLHost:    parseHost(item.URL),
		Title:      strings.TrimSpace(item.Title),
		FeedName:   strings.TrimSpace(item.FeedName),
		FeedID:     strings.TrimSpace(item.FeedID),
	}
}

func parseHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func hasCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4e00 && r <= 0x9fff {
			return true
		}
	}
	return false
}

// RegionClassifier resolves an item's region against a rules file that is
// re-read whenever its modification time changes. A missing or malformed file
// keeps the last good rules.
type RegionClassifier struct {
	path string

	mu    sync.RWMutex
	rules RegionRules
	mtime time.Time

	statsMu sync.Mutex
	stats   map[RegionReason]int
}

func NewRegionClassifier(path string) *RegionClassifier {
	return &RegionClassifier{
		path:  path,
		rules: RegionRules{PublisherRules: map[string]Region{}, HostRules: map[string]Region{}},
		stats: make(map[RegionReason]int),
	}
}

func (c *RegionClassifier) loadRules() RegionRules {
	c.mu.RLock()
	cached, cachedMtime := c.rules, c.mtime
	c.mu.RUnlock()

	if c.path == "" {
		return cached
	}
	info, err := os.Stat(c.path)
	if err != nil || info.ModTime().Equal(cachedMtime) {
		return cached
	}
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return cached
	}
	var doc RegionRules
	if err := json.Unmarshal(raw, &doc); err != nil {
		return cached
	}
	if doc.PublisherRules == nil {
		doc.PublisherRules = map[string]Region{}
	}
	if doc.HostRules == nil {
		doc.HostRules = map[string]Region{}
	}

	c.mu.Lock()
	c.rules = doc
	c.mtime = info.ModTime()
	c.mu.Unlock()
	return doc
}

func (c *RegionClassifier) Classify(src NormalizedSource) RegionResult {
	res := c.classify(src)
	c.statsMu.Lock()
	c.stats[res.Reason]++
	c.statsMu.Unlock()
	return res
}

func (c *RegionClassifier) classify(src NormalizedSource) RegionResult {
	rules := c.loadRules()
	host := strings.ToLower(strings.TrimSpace(src.URLHost))

	if r, ok := rules.PublisherRules[src.SourceName]; ok && src.SourceName != "" {
		return RegionResult{Region: r, Reason: ReasonPublisherRule, Confidence: 0.98}
	}
	if r, ok := rules.PublisherRules[src.FeedName]; ok && src.FeedName != "" {
		return RegionResult{Region: r, Reason: ReasonFeedRule, Confidence: 0.97}
	}
	if r, ok := rules.PublisherRules[src.FeedID]; ok && src.FeedID != "" {
		return RegionResult{Region: r, Reason: ReasonFeedRule, Confidence: 0.97}
	}
	if r, ok := rules.HostRules[host]; ok && host != "" {
		return RegionResult{Region: r, Reason: ReasonHostRule, Confidence: 0.9}
	}
	if strings.HasSuffix(host, ".cn") {
		return RegionResult{Region: RegionDomestic, Reason: ReasonTLDRule, Confidence: 0.75}
	}
	if src.Title != "" {
		region := RegionGlobal
		if hasCJK(src.Title) {
			region = RegionDomestic
		}
		return RegionResult{Region: region, Reason: ReasonLangFallback, Confidence: 0.6}
	}
	return RegionResult{Region: RegionGlobal, Reason: ReasonDefault, Confidence: 0.5}
}

// Stats returns how often each rule decided a classification.
func (c *RegionClassifier) Stats() map[RegionReason]int {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	out := make(map[RegionReason]int, len(c.stats))
	for k, v := range c.stats {
		out[k] = v
	}
	return out
}
