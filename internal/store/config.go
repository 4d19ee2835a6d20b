package store

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config is the process-level configuration read by cmd/engine. Per
// instrument strategy parameters live in StrategyConfig instead.
type Config struct {
	Owner string `yaml:"owner" default:"default"`

	DecisionLog struct {
		Dir               string `yaml:"dir" default:"logs/decisions"`
		CompressAfterDays int    `yaml:"compress_after_days" default:"7"`
		RetentionDays     int    `yaml:"retention_days" default:"30"`
	} `yaml:"decision_log"`

	News struct {
		SourceWeights   string  `yaml:"source_weights"`
		WindowMinutes   int     `yaml:"window_minutes" default:"120"`
		HalfLifeMinutes int     `yaml:"half_life_minutes" default:"20"`
		MinConfidence   float64 `yaml:"min_confidence" default:"0.25"`
		DecayK          float64 `yaml:"decay_k" default:"0.01"`
		RegionRulesPath string  `yaml:"region_rules_path"`
	} `yaml:"news"`

	Freshness struct {
		NewsMinutes         int `yaml:"news_minutes" default:"30"`
		RealtimeMinutes1m   int `yaml:"realtime_minutes_1m" default:"3"`
		RealtimeMinutesSlow int `yaml:"realtime_minutes_slow" default:"6"`
	} `yaml:"freshness"`

	State struct {
		Backend        string `yaml:"backend" default:"memory"`
		RedisURL       string `yaml:"redis_url"`
		RegimeTTLHours int    `yaml:"regime_ttl_hours" default:"72"`
	} `yaml:"state"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	// RedisURL is the legacy top-level location of state.redis_url.
	RedisURL string `yaml:"redis_url"`
}

func (c *Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if c.State.Backend != "memory" && c.State.Backend != "redis" {
		return fmt.Errorf("invalid state.backend '%s': must be 'memory' or 'redis'", c.State.Backend)
	}
	if c.State.Backend == "redis" && c.State.RedisURL == "" {
		return fmt.Errorf("state.redis_url is required when state.backend is 'redis'")
	}
	if c.State.RegimeTTLHours < 0 {
		return fmt.Errorf("state.regime_ttl_hours must be >= 0, got %d", c.State.RegimeTTLHours)
	}
	if c.DecisionLog.CompressAfterDays < 0 || c.DecisionLog.RetentionDays < 0 {
		return fmt.Errorf("decision_log day counts must be >= 0")
	}
	if c.DecisionLog.RetentionDays > 0 && c.DecisionLog.RetentionDays < c.DecisionLog.CompressAfterDays {
		return fmt.Errorf("decision_log.retention_days (%d) must be >= compress_after_days (%d)",
			c.DecisionLog.RetentionDays, c.DecisionLog.CompressAfterDays)
	}
	if c.News.WindowMinutes <= 0 || c.News.HalfLifeMinutes <= 0 {
		return fmt.Errorf("news.window_minutes and news.half_life_minutes must be > 0")
	}
	if c.News.MinConfidence < 0 || c.News.MinConfidence > 1 {
		return fmt.Errorf("news.min_confidence must be between 0-1, got %.2f", c.News.MinConfidence)
	}
	if c.Freshness.NewsMinutes <= 0 || c.Freshness.RealtimeMinutes1m <= 0 || c.Freshness.RealtimeMinutesSlow <= 0 {
		return fmt.Errorf("freshness windows must be > 0")
	}
	return nil
}

func (c *Config) NewsWindow() time.Duration {
	return time.Duration(c.News.WindowMinutes) * time.Minute
}

func (c *Config) NewsHalfLife() time.Duration {
	return time.Duration(c.News.HalfLifeMinutes) * time.Minute
}

func (c *Config) RegimeTTL() time.Duration {
	return time.Duration(c.State.RegimeTTLHours) * time.Hour
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("store: default config: %v", err))
	}
	return &c
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	// defaults first so that explicit zeros in the file survive
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// Backward compatibility: copy top-level redis_url into state
	if c.RedisURL != "" && c.State.RedisURL == "" {
		c.State.RedisURL = c.RedisURL
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
