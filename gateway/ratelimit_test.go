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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestMemoryRateLimiterWindow(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if a := limiter.Admit(ctx, "caller-1", "get_client_notes", 3); !a.Allowed {
			t.Fatalf("invocation %d should be admitted", i+1)
		}
	}

	rejected := limiter.Admit(ctx, "caller-1", "get_client_notes", 3)
	if rejected.Allowed {
		t.Fatal("fourth invocation should be rejected")
	}
	if rejected.RetryAfter <= 0 || rejected.RetryAfter > time.Hour {
		t.Errorf("unexpected retry-after: %v", rejected.RetryAfter)
	}

	// Window expiry resets the counter.
	now = now.Add(time.Hour + time.Minute)
	if a := limiter.Admit(ctx, "caller-1", "get_client_notes", 3); !a.Allowed {
		t.Error("invocation after window expiry should be admitted")
	}
}

func TestMemoryRateLimiterRejectionsDoNotConsumeQuota(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	limiter.Admit(ctx, "caller-1", "fn", 1)
	for i := 0; i < 10; i++ {
		limiter.Admit(ctx, "caller-1", "fn", 1)
	}

	// Count must still sit at the limit, not past it.
	limiter.mu.Lock()
	count := limiter.windows[rateLimitKey("caller-1", "fn")].count
	limiter.mu.Unlock()
	if count != 1 {
		t.Errorf("expected window count 1 after rejected bursts, got %d", count)
	}
}

func TestMemoryRateLimiterIsolation(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Hour)
	ctx := context.Background()

	limiter.Admit(ctx, "caller-1", "fn", 1)
	if a := limiter.Admit(ctx, "caller-1", "fn", 1); a.Allowed {
		t.Error("caller-1 should be over limit")
	}
	if a := limiter.Admit(ctx, "caller-2", "fn", 1); !a.Allowed {
		t.Error("caller-2 has an independent window")
	}
	if a := limiter.Admit(ctx, "caller-1", "other_fn", 1); !a.Allowed {
		t.Error("windows are per function")
	}
}

func TestMemoryRateLimiterUnlimited(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Hour)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if a := limiter.Admit(ctx, "caller-1", "fn", 0); !a.Allowed {
			t.Fatal("zero limit means unlimited")
		}
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRateLimiter(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRedisRateLimiter(client, time.Hour, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if a := limiter.Admit(ctx, "caller-1", "fn", 2); !a.Allowed {
			t.Fatalf("invocation %d should be admitted", i+1)
		}
	}

	rejected := limiter.Admit(ctx, "caller-1", "fn", 2)
	if rejected.Allowed {
		t.Fatal("third invocation should be rejected")
	}
	if rejected.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", rejected.RetryAfter)
	}

	// The rejection's DECR keeps the counter at the limit.
	got, err := mr.Get(rateLimitKey("caller-1", "fn"))
	if err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	if got != "2" {
		t.Errorf("expected counter 2 after rejection, got %s", got)
	}

	// Window expiry admits again.
	mr.FastForward(time.Hour + time.Minute)
	if a := limiter.Admit(ctx, "caller-1", "fn", 2); !a.Allowed {
		t.Error("invocation after window expiry should be admitted")
	}
}

func TestRedisRateLimiterFallsBackOnError(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRedisRateLimiter(client, time.Hour, nil)
	ctx := context.Background()

	mr.Close()

	// Redis down: the local fallback still enforces the limit.
	if a := limiter.Admit(ctx, "caller-1", "fn", 1); !a.Allowed {
		t.Fatal("first invocation should be admitted via fallback")
	}
	if a := limiter.Admit(ctx, "caller-1", "fn", 1); a.Allowed {
		t.Error("fallback should enforce the limit")
	}
}

func TestRedisRateLimiterNilClient(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, time.Hour, nil)
	ctx := context.Background()
	if a := limiter.Admit(ctx, "caller-1", "fn", 1); !a.Allowed {
		t.Fatal("first invocation should be admitted")
	}
	if a := limiter.Admit(ctx, "caller-1", "fn", 1); a.Allowed {
		t.Error("nil client should still enforce limits locally")
	}
}
