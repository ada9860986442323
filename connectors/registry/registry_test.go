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

package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clientassist/platform/connectors/base"
)

// fakeConnector is a minimal in-memory Connector for registry tests
type fakeConnector struct {
	name        string
	connectErr  error
	connects    int32
	disconnects int32
}

func (f *fakeConnector) Connect(ctx context.Context, config *base.ConnectorConfig) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	atomic.AddInt32(&f.connects, 1)
	f.name = config.Name
	return nil
}

func (f *fakeConnector) Disconnect(ctx context.Context) error {
	atomic.AddInt32(&f.disconnects, 1)
	return nil
}

func (f *fakeConnector) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	return &base.HealthStatus{Healthy: true, Timestamp: time.Now()}, nil
}

func (f *fakeConnector) Query(ctx context.Context, q *base.Query) (*base.QueryResult, error) {
	return &base.QueryResult{Connector: f.name}, nil
}

func (f *fakeConnector) Execute(ctx context.Context, c *base.Command) (*base.CommandResult, error) {
	return &base.CommandResult{Success: true, Connector: f.name}, nil
}

func (f *fakeConnector) Name() string           { return f.name }
func (f *fakeConnector) Type() string           { return "fake" }
func (f *fakeConnector) Version() string        { return "0.0.1" }
func (f *fakeConnector) Capabilities() []string { return []string{"query"} }

func testConfig(name string) *base.ConnectorConfig {
	return &base.ConnectorConfig{
		Name:    name,
		Type:    "fake",
		Timeout: time.Second,
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConnector{}

	if err := reg.Register("primary", conn, testConfig("primary")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := reg.Get("primary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != conn {
		t.Error("expected same connector instance")
	}

	// Duplicate registration fails
	if err := reg.Register("primary", &fakeConnector{}, testConfig("primary")); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegisterConnectFailure(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConnector{connectErr: errors.New("connection refused")}

	if err := reg.Register("primary", conn, testConfig("primary")); err == nil {
		t.Fatal("expected registration to fail when connect fails")
	}

	if _, err := reg.Get("primary"); err == nil {
		t.Error("expected failed connector to be absent from registry")
	}
}

func TestLazyLoad(t *testing.T) {
	reg := NewRegistry()

	var created int32
	reg.SetFactory(func(connectorType string) (base.Connector, error) {
		if connectorType != "fake" {
			return nil, errors.New("unknown connector type")
		}
		atomic.AddInt32(&created, 1)
		return &fakeConnector{}, nil
	})

	if err := reg.RegisterConfig(testConfig("primary")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Concurrent Gets instantiate exactly one connector
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Get("primary"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&created); n != 1 {
		t.Errorf("expected factory called once, got %d", n)
	}
}

func TestGetUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get("missing"); err == nil {
		t.Error("expected error for unknown connector")
	}
}

func TestUnregister(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConnector{}

	if err := reg.Register("primary", conn, testConfig("primary")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := reg.Unregister("primary"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&conn.disconnects) != 1 {
		t.Error("expected connector to be disconnected")
	}
	if _, err := reg.Get("primary"); err == nil {
		t.Error("expected connector to be gone after unregister")
	}

	if err := reg.Unregister("primary"); err == nil {
		t.Error("expected error unregistering twice")
	}
}

func TestHealthCheckAllAndShutdown(t *testing.T) {
	reg := NewRegistry()
	a := &fakeConnector{}
	b := &fakeConnector{}

	if err := reg.Register("a", a, testConfig("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Register("b", b, testConfig("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses := reg.HealthCheckAll(context.Background())
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	for name, status := range statuses {
		if !status.Healthy {
			t.Errorf("expected %s healthy", name)
		}
	}

	reg.Shutdown(context.Background())
	if atomic.LoadInt32(&a.disconnects) != 1 || atomic.LoadInt32(&b.disconnects) != 1 {
		t.Error("expected all connectors disconnected on shutdown")
	}
}

func TestList(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterConfig(testConfig("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.RegisterConfig(testConfig("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := reg.List()
	if len(names) != 2 {
		t.Errorf("expected 2 names, got %v", names)
	}
}
