// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// TypedCache stores JSON-encoded values of type T. Backend failures are
// logged and treated as misses so callers can always fall through to the
// database.
type TypedCache[T any] struct {
	cache Cache
	ttl   time.Duration
}

// NewTypedCache wraps c. A nil c yields a cache that never hits.
func NewTypedCache[T any](c Cache, ttl time.Duration) *TypedCache[T] {
	return &TypedCache[T]{cache: c, ttl: ttl}
}

// Get returns the cached value for key.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	if c == nil || c.cache == nil {
		return value, false
	}

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if err != ErrCacheMiss {
			slog.Debug("cache get failed", "key", key, "error", err)
		}
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		slog.Debug("cache entry undecodable", "key", key, "error", err)
		return value, false
	}
	return value, true
}

// Set stores value under key with the default TTL.
func (c *TypedCache[T]) Set(ctx context.Context, key string, value T) {
	if c == nil || c.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		slog.Debug("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		slog.Debug("cache set failed", "key", key, "error", err)
	}
}

// Invalidate removes every entry under prefix.
func (c *TypedCache[T]) Invalidate(ctx context.Context, prefix string) {
	if c == nil || c.cache == nil {
		return
	}
	if err := c.cache.DeleteByPrefix(ctx, prefix); err != nil {
		slog.Warn("cache invalidation failed", "category", "cache", "prefix", prefix, "error", err)
	}
}
