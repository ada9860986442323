// Copyright 2025 ClientAssist
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"clientassist/platform/shared/logger"
)

// ResultCache stores shaped result rows under a fingerprint key. All
// implementations are advisory: a Get that cannot reach the store reports a
// miss, and a failed Set is logged and dropped. The dispatcher never sees a
// cache error.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]map[string]interface{}, bool)
	Set(ctx context.Context, key string, rows []map[string]interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
}

// RedisResultCache caches results in Redis with per-entry TTLs
type RedisResultCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisResultCache builds a Redis-backed result cache. A nil client yields
// a cache that always misses, which keeps the degraded-Redis path identical
// to the miss path.
func NewRedisResultCache(client *redis.Client, log *logger.Logger) *RedisResultCache {
	return &RedisResultCache{client: client, log: log}
}

func (c *RedisResultCache) Get(ctx context.Context, key string) ([]map[string]interface{}, bool) {
	if c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		if c.log != nil {
			c.log.Warn("", "", "", "cache lookup failed, treating as miss", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, false
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		if c.log != nil {
			c.log.Warn("", "", "", "cache entry is not valid JSON, treating as miss", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, false
	}
	return rows, true
}

func (c *RedisResultCache) Set(ctx context.Context, key string, rows []map[string]interface{}, ttl time.Duration) {
	if c.client == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		if c.log != nil {
			c.log.Warn("", "", "", "failed to encode rows for cache", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}
	if err := c.client.SetEX(ctx, cacheKey(key), data, ttl).Err(); err != nil && c.log != nil {
		c.log.Warn("", "", "", "cache store failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (c *RedisResultCache) Invalidate(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(key)).Err(); err != nil && c.log != nil {
		c.log.Warn("", "", "", "cache invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

type memoryCacheEntry struct {
	rows      []map[string]interface{}
	expiresAt time.Time
}

// MemoryResultCache is a process-local cache for single-instance deployments
// and tests. Expired entries are evicted lazily on lookup.
type MemoryResultCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	now     func() time.Time
}

// NewMemoryResultCache builds an empty in-memory cache
func NewMemoryResultCache() *MemoryResultCache {
	return &MemoryResultCache{
		entries: make(map[string]memoryCacheEntry),
		now:     time.Now,
	}
}

func (c *MemoryResultCache) Get(_ context.Context, key string) ([]map[string]interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.rows, true
}

func (c *MemoryResultCache) Set(_ context.Context, key string, rows []map[string]interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = memoryCacheEntry{rows: rows, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryResultCache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
