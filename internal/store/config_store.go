package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type configKey struct {
	owner      string
	instrument string
}

// MemoryConfigStore keeps strategy configs in process memory.
type MemoryConfigStore struct {
	mu      sync.Mutex
	configs map[configKey]StrategyConfig
}

func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{configs: make(map[configKey]StrategyConfig)}
}

// Get returns the config for (owner, instrument), creating defaults on first
// access.
func (s *MemoryConfigStore) Get(ctx context.Context, owner, instrument string) (StrategyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(owner, instrument), nil
}

func (s *MemoryConfigStore) getLocked(owner, instrument string) StrategyConfig {
	key := configKey{owner: owner, instrument: instrument}
	cfg, ok := s.configs[key]
	if !ok {
		cfg = DefaultStrategyConfig(owner, instrument)
		s.configs[key] = cfg
	}
	return cfg
}

func (s *MemoryConfigStore) Patch(ctx context.Context, owner, instrument string, p ConfigPatch) (StrategyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.getLocked(owner, instrument).Apply(p)
	if err != nil {
		return StrategyConfig{}, err
	}
	s.configs[configKey{owner: owner, instrument: instrument}] = next
	return next, nil
}

// RedisConfigStore keeps one JSON document per (owner, instrument). Patches
// are serialised within the process; concurrent writers in other processes
// are last-writer-wins.
type RedisConfigStore struct {
	mu     sync.Mutex
	client RedisClient
	prefix string
}

func NewRedisConfigStore(client RedisClient) *RedisConfigStore {
	return &RedisConfigStore{client: client, prefix: "strategy_config:"}
}

func (s *RedisConfigStore) key(owner, instrument string) string {
	return s.prefix + owner + ":" + instrument
}

func (s *RedisConfigStore) Get(ctx context.Context, owner, instrument string) (StrategyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, owner, instrument)
}

func (s *RedisConfigStore) getLocked(ctx context.Context, owner, instrument string) (StrategyConfig, error) {
	raw, err := s.client.Get(ctx, s.key(owner, instrument)).Bytes()
	if errors.Is(err, redis.Nil) {
		cfg := DefaultStrategyConfig(owner, instrument)
		if err := s.save(ctx, cfg); err != nil {
			return StrategyConfig{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return StrategyConfig{}, fmt.Errorf("load strategy config %s/%s: %w", owner, instrument, err)
	}
	return LoadStrategyConfig(raw, owner, instrument)
}

func (s *RedisConfigStore) save(ctx context.Context, cfg StrategyConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(cfg.Owner, cfg.Instrument), data, 0).Err(); err != nil {
		return fmt.Errorf("save strategy config %s/%s: %w", cfg.Owner, cfg.Instrument, err)
	}
	return nil
}

func (s *RedisConfigStore) Patch(ctx context.Context, owner, instrument string, p ConfigPatch) (StrategyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.getLocked(ctx, owner, instrument)
	if err != nil {
		return StrategyConfig{}, err
	}
	next, err := cur.Apply(p)
	if err != nil {
		return StrategyConfig{}, err
	}
	if err := s.save(ctx, next); err != nil {
		return StrategyConfig{}, err
	}
	return next, nil
}
