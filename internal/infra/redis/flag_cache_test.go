package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"flagguess/internal/domain"
	"flagguess/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestFlagCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{inner: memory.NewStaticFlagLoader(sampleFlags())}
	cache := NewFlagCache(newClient(mr), loader, time.Minute)

	flags, err := cache.LoadFlags(context.Background())
	if err != nil {
		t.Fatalf("load flags: %v", err)
	}
	if len(flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(flags))
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}

	// Second call should hit cache, loader not incremented.
	flags, _ = cache.LoadFlags(context.Background())
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if flags[0].CountryName != "France" || flags[1].CountryName != "Japan" {
		t.Fatalf("cached flags not ordered by id: %+v", flags)
	}
	if mr.TTL(flagsKey) < time.Minute {
		t.Fatalf("expected ttl with jitter, got %s", mr.TTL(flagsKey))
	}
}

func TestFlagCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{inner: memory.NewStaticFlagLoader(sampleFlags())}
	cache := NewFlagCache(newClient(mr), loader, time.Minute)

	_, _ = cache.LoadFlags(context.Background())
	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.LoadFlags(context.Background())
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.count())
	}
}

func TestFlagCacheDoesNotCacheEmptyTable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewFlagCache(newClient(mr), memory.NewStaticFlagLoader(nil), time.Minute)
	flags, err := cache.LoadFlags(context.Background())
	if err != nil || len(flags) != 0 {
		t.Fatalf("expected empty result, got %v %v", flags, err)
	}
	if mr.Exists(flagsKey) {
		t.Fatalf("empty table should not be cached")
	}
}

type countingLoader struct {
	inner *memory.StaticFlagLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadFlags(ctx context.Context) ([]domain.Flag, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.inner.LoadFlags(ctx)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleFlags() []domain.Flag {
	return []domain.Flag{
		{ID: 1, CountryName: "France", ImageRef: "fr.svg"},
		{ID: 2, CountryName: "Japan", ImageRef: "jp.svg"},
	}
}
