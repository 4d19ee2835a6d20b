package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"regime-engine/internal/types"
)

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	ttl    map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

type regimeMemory interface {
	Last(ctx context.Context, instrument string, tf types.Timeframe) (types.Regime, bool, error)
	Remember(ctx context.Context, instrument string, tf types.Timeframe, regime types.Regime) error
}

func TestMemories(t *testing.T) {
	ctx := context.Background()
	impls := map[string]regimeMemory{
		"in-memory": NewInMemory(),
		"redis":     NewRedis(newFakeRedis(), time.Hour),
	}
	for name, m := range impls {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := m.Last(ctx, "SSE:600519", types.Timeframe1d); ok || err != nil {
				t.Fatalf("empty memory: ok=%v err=%v", ok, err)
			}
			if err := m.Remember(ctx, "SSE:600519", types.Timeframe1d, types.RegimeTrend); err != nil {
				t.Fatal(err)
			}
			r, ok, err := m.Last(ctx, "SSE:600519", types.Timeframe1d)
			if err != nil || !ok || r != types.RegimeTrend {
				t.Fatalf("Last = %s, %v, %v", r, ok, err)
			}
			if _, ok, _ := m.Last(ctx, "SSE:600519", types.Timeframe5m); ok {
				t.Fatal("memory must be keyed by timeframe")
			}
			if err := m.Remember(ctx, "SSE:600519", types.Timeframe1d, types.Regime("BULL")); err == nil {
				t.Fatal("expected error for unknown regime")
			}
		})
	}
}

func TestRedisTTLAndForeignValues(t *testing.T) {
	fr := newFakeRedis()
	m := NewRedis(fr, 72*time.Hour)
	ctx := context.Background()
	if err := m.Remember(ctx, "X", types.Timeframe1m, types.RegimePanic); err != nil {
		t.Fatal(err)
	}
	if fr.ttl["regime:X:1m"] != 72*time.Hour {
		t.Fatalf("ttl = %v", fr.ttl["regime:X:1m"])
	}
	fr.data["regime:X:1m"] = "garbage"
	if _, ok, err := m.Last(ctx, "X", types.Timeframe1m); ok || err != nil {
		t.Fatalf("foreign value: ok=%v err=%v", ok, err)
	}
	fr.getErr = errors.New("down")
	if _, _, err := m.Last(ctx, "X", types.Timeframe1m); err == nil {
		t.Fatal("expected read error")
	}
}

func TestInMemoryConcurrentKeys(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst := fmt.Sprintf("I%d", i)
			for j := 0; j < 100; j++ {
				_ = m.Remember(ctx, inst, types.Timeframe1m, types.Regimes[j%len(types.Regimes)])
			}
		}(i)
	}
	wg.Wait()
	for i := 0; i < 8; i++ {
		r, ok, _ := m.Last(ctx, fmt.Sprintf("I%d", i), types.Timeframe1m)
		if !ok || r != types.Regimes[99%len(types.Regimes)] {
			t.Fatalf("I%d = %s", i, r)
		}
	}
}
