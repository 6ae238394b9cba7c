package cache

import (
	"context"
	"testing"
	"time"
)

type page struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

func TestTypedCache_RoundTrip(t *testing.T) {
	mc := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = mc.Close() }()
	tc := NewTypedCache[page](mc, time.Minute)
	ctx := context.Background()

	if _, ok := tc.Get(ctx, "list:voice:newest:1:12"); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	tc.Set(ctx, "list:voice:newest:1:12", page{Items: []string{"a"}, Total: 1})
	got, ok := tc.Get(ctx, "list:voice:newest:1:12")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Total != 1 || len(got.Items) != 1 {
		t.Errorf("got %+v", got)
	}

	tc.Invalidate(ctx, "list:voice:")
	if _, ok := tc.Get(ctx, "list:voice:newest:1:12"); ok {
		t.Error("entry survived invalidation")
	}
}

func TestTypedCache_NilBackend(t *testing.T) {
	tc := NewTypedCache[page](nil, time.Minute)
	ctx := context.Background()

	tc.Set(ctx, "k", page{Total: 1})
	if _, ok := tc.Get(ctx, "k"); ok {
		t.Error("nil backend must never hit")
	}
	tc.Invalidate(ctx, "k")
}

func TestTypedCache_ClosedBackend(t *testing.T) {
	mc := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	_ = mc.Close()
	tc := NewTypedCache[page](mc, time.Minute)

	tc.Set(context.Background(), "k", page{Total: 1})
	if _, ok := tc.Get(context.Background(), "k"); ok {
		t.Error("closed backend must miss")
	}
}
