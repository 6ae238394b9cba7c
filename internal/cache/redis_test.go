package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) string {
	url := os.Getenv("OVOICE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: OVOICE_TEST_REDIS_URL not set")
	}
	return url
}

func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	opts := DefaultRedisCacheOptions()
	opts.URL = skipIfNoRedis(t)
	opts.Prefix = "ovoice-test:"
	opts.DefaultTTL = time.Minute

	cache, err := NewRedisCache(opts)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	_ = cache.Clear(context.Background())
	t.Cleanup(func() {
		_ = cache.Clear(context.Background())
		_ = cache.Close()
	})
	return cache
}

func TestRedisCache_Basic(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := cache.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get returned %q, want %q", got, "v")
	}

	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "list:voice:newest:1:12", []byte("x"), 0)
	_ = cache.Set(ctx, "list:comment:newest:1:20", []byte("y"), 0)

	if err := cache.DeleteByPrefix(ctx, "list:voice:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if _, err := cache.Get(ctx, "list:voice:newest:1:12"); !errors.Is(err, ErrCacheMiss) {
		t.Error("voice entry survived prefix delete")
	}
	if _, err := cache.Get(ctx, "list:comment:newest:1:20"); err != nil {
		t.Errorf("comment entry removed: %v", err)
	}
}

func TestRedisCache_Ping(t *testing.T) {
	cache := newTestRedisCache(t)
	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisCache_EmptyURL(t *testing.T) {
	if _, err := NewRedisCache(RedisCacheOptions{}); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestRedisCache_InvalidURL(t *testing.T) {
	if _, err := NewRedisCache(RedisCacheOptions{URL: "not-a-url"}); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestNew_Memory(t *testing.T) {
	c, backend := New(Config{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()

	if backend != BackendMemory {
		t.Errorf("backend = %q, want %q", backend, BackendMemory)
	}
	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("cache type = %T, want *MemoryCache", c)
	}
}

func TestNew_RedisFallback(t *testing.T) {
	// Nothing listens on port 1.
	c, backend := New(Config{RedisURL: "redis://127.0.0.1:1/0", DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()

	if backend != BackendMemory {
		t.Errorf("backend = %q, want fallback to %q", backend, BackendMemory)
	}
}
