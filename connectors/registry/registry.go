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
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"clientassist/platform/connectors/base"
)

// ConnectorFactory creates a connector instance based on type
type ConnectorFactory func(connectorType string) (base.Connector, error)

// Registry manages all registered datastore connectors.
// Thread-safe for concurrent access.
type Registry struct {
	connectors map[string]base.Connector
	configs    map[string]*base.ConnectorConfig
	factory    ConnectorFactory // Factory for lazy-loading connectors
	mu         sync.RWMutex
	logger     *log.Logger
}

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		connectors: make(map[string]base.Connector),
		configs:    make(map[string]*base.ConnectorConfig),
		logger:     log.New(os.Stdout, "[REGISTRY] ", log.LstdFlags),
	}
}

// SetFactory sets the connector factory for lazy-loading.
// This should be called after registry initialization to enable lazy
// connector instantiation from registered configs.
func (r *Registry) SetFactory(factory ConnectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factory = factory
	r.logger.Println("Connector factory configured for lazy-loading")
}

// RegisterConfig stores a connector configuration without connecting.
// The connector is instantiated via the factory on first Get.
func (r *Registry) RegisterConfig(config *base.ConnectorConfig) error {
	if config == nil || config.Name == "" {
		return fmt.Errorf("connector config must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[config.Name]; exists {
		return fmt.Errorf("connector '%s' already registered", config.Name)
	}

	r.configs[config.Name] = config
	r.logger.Printf("Registered connector config: %s (type: %s)", config.Name, config.Type)

	return nil
}

// Register adds a new connector to the registry and connects it.
// Returns error if a connector with the same name already exists.
func (r *Registry) Register(name string, connector base.Connector, config *base.ConnectorConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connectors[name]; exists {
		return fmt.Errorf("connector '%s' already registered", name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout(config))
	defer cancel()

	if err := connector.Connect(ctx, config); err != nil {
		r.logger.Printf("Failed to connect connector '%s': %v", name, err)
		return fmt.Errorf("failed to connect connector '%s': %w", name, err)
	}

	r.connectors[name] = connector
	r.configs[name] = config

	r.logger.Printf("Registered connector '%s' (type: %s)", name, config.Type)

	return nil
}

// Unregister removes a connector from the registry and disconnects it
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	connector, exists := r.connectors[name]
	if !exists {
		return fmt.Errorf("connector '%s' not found", name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := connector.Disconnect(ctx); err != nil {
		r.logger.Printf("Error disconnecting connector '%s': %v", name, err)
	}

	delete(r.connectors, name)
	delete(r.configs, name)

	r.logger.Printf("Unregistered connector '%s'", name)

	return nil
}

// Get retrieves a connector by name, lazy-loading if necessary
func (r *Registry) Get(name string) (base.Connector, error) {
	r.mu.RLock()
	connector, exists := r.connectors[name]
	config, hasConfig := r.configs[name]
	factory := r.factory
	r.mu.RUnlock()

	if exists {
		return connector, nil
	}

	if hasConfig && factory != nil {
		return r.lazyLoadConnector(name, config)
	}

	return nil, fmt.Errorf("connector '%s' not found", name)
}

// lazyLoadConnector creates and connects a connector instance from its
// registered config
func (r *Registry) lazyLoadConnector(name string, config *base.ConnectorConfig) (base.Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check if connector was created by another goroutine
	if connector, exists := r.connectors[name]; exists {
		return connector, nil
	}

	r.logger.Printf("Lazy-loading connector '%s' (type: %s)", name, config.Type)

	connector, err := r.factory(config.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector '%s': %w", name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout(config))
	defer cancel()

	if err := connector.Connect(ctx, config); err != nil {
		r.logger.Printf("Failed to connect lazy-loaded connector '%s': %v", name, err)
		return nil, fmt.Errorf("failed to connect connector '%s': %w", name, err)
	}

	r.connectors[name] = connector
	r.logger.Printf("Successfully lazy-loaded connector '%s'", name)

	return connector, nil
}

// GetConfig retrieves a connector's configuration by name
func (r *Registry) GetConfig(name string) (*base.ConnectorConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, exists := r.configs[name]
	if !exists {
		return nil, fmt.Errorf("config for connector '%s' not found", name)
	}

	return config, nil
}

// List returns all registered connector names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	return names
}

// HealthCheckAll runs health checks on all connected connectors
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]*base.HealthStatus {
	r.mu.RLock()
	connectors := make(map[string]base.Connector, len(r.connectors))
	for name, c := range r.connectors {
		connectors[name] = c
	}
	r.mu.RUnlock()

	statuses := make(map[string]*base.HealthStatus, len(connectors))
	for name, c := range connectors {
		status, err := c.HealthCheck(ctx)
		if err != nil {
			status = &base.HealthStatus{Healthy: false, Error: err.Error(), Timestamp: time.Now()}
		}
		statuses[name] = status
	}
	return statuses
}

// Shutdown disconnects all connectors
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, connector := range r.connectors {
		if err := connector.Disconnect(ctx); err != nil {
			r.logger.Printf("Error disconnecting connector '%s': %v", name, err)
		}
		delete(r.connectors, name)
	}
	r.logger.Println("All connectors disconnected")
}

func connectTimeout(config *base.ConnectorConfig) time.Duration {
	if config != nil && config.Timeout > 0 {
		return config.Timeout
	}
	return 5 * time.Second
}
