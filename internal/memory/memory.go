// Package memory retains the last classified regime per (instrument,
// timeframe). It is the only state the fusion engine carries between
// evaluations.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"regime-engine/internal/store"
	"regime-engine/internal/types"
)

type key struct {
	instrument string
	timeframe  types.Timeframe
}

type InMemory struct {
	mu      sync.RWMutex
	regimes map[key]types.Regime
}

func NewInMemory() *InMemory {
	return &InMemory{regimes: make(map[key]types.Regime)}
}

func (m *InMemory) Last(ctx context.Context, instrument string, tf types.Timeframe) (types.Regime, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.regimes[key{instrument: instrument, timeframe: tf}]
	return r, ok, nil
}

func (m *InMemory) Remember(ctx context.Context, instrument string, tf types.Timeframe, regime types.Regime) error {
	if !regime.Valid() {
		return fmt.Errorf("remember regime %q: unknown regime", regime)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regimes[key{instrument: instrument, timeframe: tf}] = regime
	return nil
}

// Redis stores one key per (instrument, timeframe) with an optional TTL so
// abandoned instruments age out.
type Redis struct {
	client store.RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedis(client store.RedisClient, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: "regime:", ttl: ttl}
}

func (r *Redis) key(instrument string, tf types.Timeframe) string {
	return r.prefix + instrument + ":" + string(tf)
}

func (r *Redis) Last(ctx context.Context, instrument string, tf types.Timeframe) (types.Regime, bool, error) {
	v, err := r.client.Get(ctx, r.key(instrument, tf)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load regime %s/%s: %w", instrument, tf, err)
	}
	regime := types.Regime(v)
	if !regime.Valid() {
		// a foreign value is treated as no memory
		return "", false, nil
	}
	return regime, true, nil
}

func (r *Redis) Remember(ctx context.Context, instrument string, tf types.Timeframe, regime types.Regime) error {
	if !regime.Valid() {
		return fmt.Errorf("remember regime %q: unknown regime", regime)
	}
	if err := r.client.Set(ctx, r.key(instrument, tf), string(regime), r.ttl).Err(); err != nil {
		return fmt.Errorf("save regime %s/%s: %w", instrument, tf, err)
	}
	return nil
}
