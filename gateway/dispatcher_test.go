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
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"clientassist/platform/connectors/base"
	"clientassist/platform/connectors/registry"
	"clientassist/platform/shared/logger"
	"clientassist/platform/shared/types"
)

// fakeConnector serves canned rows or a canned error and counts queries
type fakeConnector struct {
	rows       []map[string]interface{}
	queryErr   error
	queryDelay time.Duration
	queries    int64
	lastQuery  *base.Query
}

func (f *fakeConnector) Connect(_ context.Context, _ *base.ConnectorConfig) error { return nil }
func (f *fakeConnector) Disconnect(_ context.Context) error                       { return nil }
func (f *fakeConnector) HealthCheck(_ context.Context) (*base.HealthStatus, error) {
	return &base.HealthStatus{Healthy: true}, nil
}
func (f *fakeConnector) Query(ctx context.Context, query *base.Query) (*base.QueryResult, error) {
	atomic.AddInt64(&f.queries, 1)
	f.lastQuery = query
	if f.queryDelay > 0 {
		select {
		case <-time.After(f.queryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &base.QueryResult{Rows: f.rows, RowCount: len(f.rows), Connector: "primary"}, nil
}
func (f *fakeConnector) Execute(_ context.Context, _ *base.Command) (*base.CommandResult, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeConnector) Name() string           { return "primary" }
func (f *fakeConnector) Type() string           { return "postgres" }
func (f *fakeConnector) Version() string        { return "test" }
func (f *fakeConnector) Capabilities() []string { return []string{"query"} }

// stubLimiter admits or rejects everything
type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	calls      int
}

func (s *stubLimiter) Admit(_ context.Context, _, _ string, _ int) Admission {
	s.calls++
	return Admission{Allowed: s.allowed, RetryAfter: s.retryAfter}
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	connector  *fakeConnector
	limiter    *stubLimiter
	cache      *MemoryResultCache
}

func newDispatcherFixture(t *testing.T, conn *fakeConnector) *dispatcherFixture {
	t.Helper()
	catalog, err := NewCatalog(BuiltinFunctions())
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}

	reg := registry.NewRegistry()
	if err := reg.Register("primary", conn, &base.ConnectorConfig{Name: "primary", Type: "postgres"}); err != nil {
		t.Fatalf("failed to register connector: %v", err)
	}

	limiter := &stubLimiter{allowed: true}
	cache := NewMemoryResultCache()
	return &dispatcherFixture{
		dispatcher: NewDispatcher(catalog, limiter, cache, reg, logger.New("test"), 5*time.Second),
		connector:  conn,
		limiter:    limiter,
		cache:      cache,
	}
}

func salesCaller(clients ...string) *types.CallerContext {
	return &types.CallerContext{
		Identity: "user@example.com",
		Roles:    []types.Role{types.RoleSales},
		Clients:  clients,
	}
}

func notesRequest(clientID string) *InvocationRequest {
	return &InvocationRequest{
		FunctionID: "get_client_notes",
		Arguments:  map[string]interface{}{"client_id": clientID},
		RequestID:  "req-1",
	}
}

func TestInvokeSuccess(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})

	result := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-1"))
	if result.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%s)", result.Status, result.Error)
	}
	if result.RowCount != 2 || result.FromCache {
		t.Errorf("unexpected result: count=%d cached=%v", result.RowCount, result.FromCache)
	}
	if result.DurationMs < 0 {
		t.Errorf("expected non-negative duration, got %v", result.DurationMs)
	}

	// Caller values only ever flow into bound parameters.
	if len(fix.connector.lastQuery.Args) != 2 || fix.connector.lastQuery.Args[0] != "c-1" {
		t.Errorf("unexpected bound args: %v", fix.connector.lastQuery.Args)
	}
}

func TestInvokeUnknownFunction(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{})
	result := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), &InvocationRequest{
		FunctionID: "get_everything",
		Arguments:  map[string]interface{}{"client_id": "c-1"},
	})
	if result.Status != StatusUnknownFunction {
		t.Errorf("expected unknown_function, got %s", result.Status)
	}
}

func TestInvokeRoleDenied(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})

	// get_payment_history requires admin or finance; sales lacks both.
	result := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), &InvocationRequest{
		FunctionID: "get_payment_history",
		Arguments:  map[string]interface{}{"client_id": "c-1"},
	})
	if result.Status != StatusDenied {
		t.Fatalf("expected denied, got %s", result.Status)
	}
	if fix.connector.queries != 0 {
		t.Error("denied invocation must not reach the datastore")
	}
	if fix.limiter.calls != 0 {
		t.Error("denied invocation must not consume rate quota")
	}
}

func TestInvokeScopeDenied(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})

	result := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-9"))
	if result.Status != StatusDenied {
		t.Fatalf("expected denied, got %s", result.Status)
	}
	if fix.connector.queries != 0 {
		t.Error("out-of-scope invocation must not reach the datastore")
	}
}

func TestDeniedMessagesIndistinguishable(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})

	roleDenied := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), &InvocationRequest{
		FunctionID: "get_payment_history",
		Arguments:  map[string]interface{}{"client_id": "c-1"},
	})
	scopeDenied := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-9"))

	if roleDenied.Error != scopeDenied.Error {
		t.Errorf("role and scope denials must be indistinguishable: %q vs %q",
			roleDenied.Error, scopeDenied.Error)
	}
}

func TestInvokeInvalidArguments(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing required", map[string]interface{}{}},
		{"empty client id", map[string]interface{}{"client_id": ""}},
		{"unknown argument", map[string]interface{}{"client_id": "c-1", "verbose": true}},
		{"wrong type", map[string]interface{}{"client_id": "c-1", "limit": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), &InvocationRequest{
				FunctionID: "get_client_notes",
				Arguments:  tt.args,
			})
			if result.Status != StatusInvalidArguments {
				t.Errorf("expected invalid_arguments, got %s", result.Status)
			}
		})
	}
	if fix.connector.queries != 0 {
		t.Error("invalid arguments must not reach the datastore")
	}
}

func TestInvokeRateLimited(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})
	fix.limiter.allowed = false
	fix.limiter.retryAfter = 90 * time.Second

	result := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-1"))
	if result.Status != StatusRateLimited {
		t.Fatalf("expected rate_limited, got %s", result.Status)
	}
	if result.RetryAfterSeconds != 90 {
		t.Errorf("expected retry-after 90s, got %d", result.RetryAfterSeconds)
	}
	if fix.connector.queries != 0 {
		t.Error("rate-limited invocation must not reach the datastore")
	}
}

func TestInvokeCacheHitSkipsExecution(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})
	caller := salesCaller("c-1")

	first := fix.dispatcher.Invoke(context.Background(), caller, notesRequest("c-1"))
	if first.Status != StatusOK || first.FromCache {
		t.Fatalf("expected fresh ok result, got %+v", first)
	}

	second := fix.dispatcher.Invoke(context.Background(), caller, notesRequest("c-1"))
	if second.Status != StatusOK || !second.FromCache {
		t.Fatalf("expected cached result, got %+v", second)
	}
	if second.RowCount != 2 {
		t.Errorf("cached result should carry the rows, got %d", second.RowCount)
	}
	if fix.connector.queries != 1 {
		t.Errorf("expected exactly one datastore query, got %d", fix.connector.queries)
	}
}

func TestInvokeCacheHitStillRateLimited(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})
	caller := salesCaller("c-1")

	fix.dispatcher.Invoke(context.Background(), caller, notesRequest("c-1"))

	// Admission runs before the cache lookup, so a hit still counts.
	fix.limiter.allowed = true
	fix.limiter.calls = 0
	fix.dispatcher.Invoke(context.Background(), caller, notesRequest("c-1"))
	if fix.limiter.calls != 1 {
		t.Errorf("cache hit must still pass rate admission, calls=%d", fix.limiter.calls)
	}

	fix.limiter.allowed = false
	result := fix.dispatcher.Invoke(context.Background(), caller, notesRequest("c-1"))
	if result.Status != StatusRateLimited {
		t.Errorf("rate limit applies even when the result is cached, got %s", result.Status)
	}
}

func TestInvokeCacheIsolatedByScope(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})

	wideCaller := &types.CallerContext{
		Identity: "admin@example.com",
		Roles:    []types.Role{types.RoleAdmin},
		Clients:  []string{"c-1", "c-2"},
	}
	fix.dispatcher.Invoke(context.Background(), wideCaller, notesRequest("c-1"))

	// Same function and arguments, different scope: must not share an entry.
	result := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-1"))
	if result.FromCache {
		t.Error("callers with different scopes must not share cache entries")
	}
	if fix.connector.queries != 2 {
		t.Errorf("expected two datastore queries, got %d", fix.connector.queries)
	}
}

func TestInvokeCacheExpiryReExecutes(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: testRows})
	caller := salesCaller("c-1")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fix.cache.now = func() time.Time { return now }

	fix.dispatcher.Invoke(context.Background(), caller, notesRequest("c-1"))

	// get_client_notes carries a 300s TTL.
	now = now.Add(301 * time.Second)
	result := fix.dispatcher.Invoke(context.Background(), caller, notesRequest("c-1"))
	if result.FromCache {
		t.Error("expired entry must not be served")
	}
	if fix.connector.queries != 2 {
		t.Errorf("expected re-execution after TTL expiry, got %d queries", fix.connector.queries)
	}
}

func TestInvokeDegradedCacheStillExecutes(t *testing.T) {
	catalog, err := NewCatalog(BuiltinFunctions())
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	conn := &fakeConnector{rows: testRows}
	reg := registry.NewRegistry()
	if err := reg.Register("primary", conn, &base.ConnectorConfig{Name: "primary", Type: "postgres"}); err != nil {
		t.Fatalf("failed to register connector: %v", err)
	}

	mr, client := newTestRedis(t)
	cache := NewRedisResultCache(client, logger.New("test"))
	dispatcher := NewDispatcher(catalog, nil, cache, reg, logger.New("test"), 5*time.Second)

	mr.Close()

	// Cache store unreachable: the invocation still succeeds directly and
	// no cache error appears in the result.
	result := dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-1"))
	if result.Status != StatusOK {
		t.Fatalf("expected ok in degraded mode, got %s (%s)", result.Status, result.Error)
	}
	if result.FromCache || result.RowCount != 2 {
		t.Errorf("expected direct execution result, got %+v", result)
	}
}

// Full pipeline walkthrough: sales caller scoped to one client retrieves the
// client summary, the result lands in the cache, and the second call is
// served from it.
func TestInvokeSummaryScenario(t *testing.T) {
	summary := []map[string]interface{}{
		{"client_id": "client42", "name": "Acme", "payment_count": 3, "total_paid": 1200.50},
	}
	fix := newDispatcherFixture(t, &fakeConnector{rows: summary})
	caller := salesCaller("client42")
	req := &InvocationRequest{
		FunctionID: "get_client_summary",
		Arguments:  map[string]interface{}{"client_id": "client42"},
	}

	first := fix.dispatcher.Invoke(context.Background(), caller, req)
	if first.Status != StatusOK || first.FromCache || first.RowCount != 1 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second := fix.dispatcher.Invoke(context.Background(), caller, req)
	if second.Status != StatusOK || !second.FromCache {
		t.Fatalf("expected cached second result: %+v", second)
	}
	if fix.connector.queries != 1 {
		t.Errorf("executor must run exactly once, got %d", fix.connector.queries)
	}
}

func TestInvokeUncacheableFunctionSkipsCache(t *testing.T) {
	fix := newDispatcherFixture(t, &fakeConnector{rows: []map[string]interface{}{{"transaction_count": 4}}})
	caller := &types.CallerContext{
		Identity: "fin@example.com",
		Roles:    []types.Role{types.RoleFinance},
		Clients:  []string{"c-1"},
	}
	req := &InvocationRequest{
		FunctionID: "get_transaction_count",
		Arguments:  map[string]interface{}{"client_id": "c-1"},
	}

	fix.dispatcher.Invoke(context.Background(), caller, req)
	fix.dispatcher.Invoke(context.Background(), caller, req)
	if fix.connector.queries != 2 {
		t.Errorf("uncacheable function must always execute, got %d queries", fix.connector.queries)
	}
}

func TestInvokeExecutionFailure(t *testing.T) {
	dbErr := fmt.Errorf(`pq: relation "notes" does not exist`)
	fix := newDispatcherFixture(t, &fakeConnector{queryErr: dbErr})

	result := fix.dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-1"))
	if result.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	// The database detail stays in the log.
	if result.Error != msgFailed {
		t.Errorf("database error must not leak to the caller: %q", result.Error)
	}
}

func TestInvokeFailureNotCached(t *testing.T) {
	conn := &fakeConnector{queryErr: fmt.Errorf("connection reset")}
	fix := newDispatcherFixture(t, conn)
	caller := salesCaller("c-1")

	fix.dispatcher.Invoke(context.Background(), caller, notesRequest("c-1"))

	conn.queryErr = nil
	conn.rows = testRows
	result := fix.dispatcher.Invoke(context.Background(), caller, notesRequest("c-1"))
	if result.Status != StatusOK || result.FromCache {
		t.Errorf("failure must not populate the cache: %+v", result)
	}
}

func TestInvokeTimeout(t *testing.T) {
	catalog, err := NewCatalog(BuiltinFunctions())
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	conn := &fakeConnector{rows: testRows, queryDelay: 200 * time.Millisecond}
	reg := registry.NewRegistry()
	if err := reg.Register("primary", conn, &base.ConnectorConfig{Name: "primary", Type: "postgres"}); err != nil {
		t.Fatalf("failed to register connector: %v", err)
	}
	dispatcher := NewDispatcher(catalog, nil, nil, reg, logger.New("test"), 20*time.Millisecond)

	result := dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-1"))
	if result.Status != StatusTimeout {
		t.Errorf("expected timeout, got %s (%s)", result.Status, result.Error)
	}
}

func TestInvokeNilLimiterAndCache(t *testing.T) {
	catalog, err := NewCatalog(BuiltinFunctions())
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	conn := &fakeConnector{rows: testRows}
	reg := registry.NewRegistry()
	if err := reg.Register("primary", conn, &base.ConnectorConfig{Name: "primary", Type: "postgres"}); err != nil {
		t.Fatalf("failed to register connector: %v", err)
	}
	dispatcher := NewDispatcher(catalog, nil, nil, reg, logger.New("test"), time.Second)

	result := dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-1"))
	if result.Status != StatusOK {
		t.Errorf("dispatcher must run without limiter and cache, got %s", result.Status)
	}
}

func TestInvokeConnectorUnavailable(t *testing.T) {
	catalog, err := NewCatalog(BuiltinFunctions())
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	dispatcher := NewDispatcher(catalog, nil, nil, registry.NewRegistry(), logger.New("test"), time.Second)

	result := dispatcher.Invoke(context.Background(), salesCaller("c-1"), notesRequest("c-1"))
	if result.Status != StatusFailed {
		t.Errorf("expected failed when connector is missing, got %s", result.Status)
	}
	if result.Error != msgFailed {
		t.Errorf("infrastructure detail must not leak: %q", result.Error)
	}
}
