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
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"clientassist/platform/shared/logger"
)

// Admission is the outcome of one rate-limit check
type Admission struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter admits or rejects one invocation against a fixed window
// counter keyed by (caller, function). A limit of zero or below means
// unlimited.
type RateLimiter interface {
	Admit(ctx context.Context, callerID, functionID string, limit int) Admission
}

type rateWindow struct {
	count       int
	windowStart time.Time
}

// MemoryRateLimiter counts invocations in process memory. It backs
// single-instance deployments and serves as the fallback when Redis is
// unreachable.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	window  time.Duration
	now     func() time.Time
}

// NewMemoryRateLimiter builds an in-memory limiter with the given window
func NewMemoryRateLimiter(window time.Duration) *MemoryRateLimiter {
	if window <= 0 {
		window = time.Hour
	}
	return &MemoryRateLimiter{
		windows: make(map[string]*rateWindow),
		window:  window,
		now:     time.Now,
	}
}

// Admit counts this invocation against the caller's window. A rejected
// invocation is not counted; only admitted work consumes quota.
func (l *MemoryRateLimiter) Admit(_ context.Context, callerID, functionID string, limit int) Admission {
	if limit <= 0 {
		return Admission{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := rateLimitKey(callerID, functionID)
	now := l.now()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.windowStart) >= l.window {
		w = &rateWindow{windowStart: now}
		l.windows[key] = w
	}

	w.count++
	if w.count > limit {
		w.count--
		retryAfter := l.window - now.Sub(w.windowStart)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return Admission{Allowed: false, RetryAfter: retryAfter}
	}
	return Admission{Allowed: true}
}

// RedisRateLimiter shares windows across gateway instances through Redis.
// Redis errors never reject a caller; admission falls back to the in-memory
// limiter so a Redis outage degrades to per-instance limiting instead of an
// outage of the gateway itself.
type RedisRateLimiter struct {
	client   *redis.Client
	window   time.Duration
	fallback *MemoryRateLimiter
	log      *logger.Logger
}

// NewRedisRateLimiter builds a Redis-backed limiter with the given window
func NewRedisRateLimiter(client *redis.Client, window time.Duration, log *logger.Logger) *RedisRateLimiter {
	if window <= 0 {
		window = time.Hour
	}
	return &RedisRateLimiter{
		client:   client,
		window:   window,
		fallback: NewMemoryRateLimiter(window),
		log:      log,
	}
}

// Admit increments the shared window counter. Rejections are compensated
// with a DECR so a burst of rejected calls cannot hold the window full.
func (l *RedisRateLimiter) Admit(ctx context.Context, callerID, functionID string, limit int) Admission {
	if limit <= 0 {
		return Admission{Allowed: true}
	}
	if l.client == nil {
		return l.fallback.Admit(ctx, callerID, functionID, limit)
	}

	key := rateLimitKey(callerID, functionID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		if l.log != nil {
			l.log.Warn(logger.RedactIdentity(callerID), "", functionID,
				"rate limiter falling back to local window", map[string]interface{}{
					"error": err.Error(),
				})
		}
		return l.fallback.Admit(ctx, callerID, functionID, limit)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil && l.log != nil {
			l.log.Warn(logger.RedactIdentity(callerID), "", functionID,
				"failed to set rate limit window expiry", map[string]interface{}{
					"error": err.Error(),
				})
		}
	}

	if count > int64(limit) {
		// Give back the slot so rejected calls do not consume quota.
		_ = l.client.Decr(ctx, key).Err()

		retryAfter := l.window
		if ttl, err := l.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		} else if err == nil && ttl < 0 {
			// Counter survived without an expiry (crash between INCR and
			// EXPIRE). Restore the window rather than lock the caller out.
			_ = l.client.Expire(ctx, key, l.window).Err()
		}
		return Admission{Allowed: false, RetryAfter: retryAfter}
	}
	return Admission{Allowed: true}
}
