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
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"clientassist/platform/shared/types"
)

// ErrUnknownFunction is returned by Catalog.Get for unregistered function IDs
var ErrUnknownFunction = fmt.Errorf("unknown function")

// ArgType is the declared type of a function argument
type ArgType string

const (
	ArgString ArgType = "string"
	ArgInt    ArgType = "int"
	ArgFloat  ArgType = "float"
	ArgBool   ArgType = "bool"
)

// ArgSpec declares one argument of a catalog function
type ArgSpec struct {
	Name     string      `yaml:"name" json:"name"`
	Type     ArgType     `yaml:"type" json:"type"`
	Required bool        `yaml:"required" json:"required"`
	Default  interface{} `yaml:"default,omitempty" json:"default,omitempty"`
}

// FunctionDescriptor is the declarative definition of one retrievable
// function: who may call it, how it is cached and rate limited, its argument
// schema, and the parameterized statement it runs. The statement references
// arguments positionally in the order of Args; caller values only ever flow
// into bound parameters.
type FunctionDescriptor struct {
	Name          string       `yaml:"name" json:"name"`
	Version       string       `yaml:"version" json:"version"`
	Description   string       `yaml:"description,omitempty" json:"description,omitempty"`
	RequiredRoles []types.Role `yaml:"required_roles" json:"required_roles"`
	CacheTTL      int          `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"`
	RateLimit     int          `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	Connector     string       `yaml:"connector,omitempty" json:"connector,omitempty"`
	ClientIDArg   string       `yaml:"client_id_arg,omitempty" json:"client_id_arg,omitempty"`
	Args          []ArgSpec    `yaml:"args" json:"args"`
	Query         string       `yaml:"query" json:"-"`
}

const (
	defaultConnectorName = "primary"
	defaultClientIDArg   = "client_id"
)

// Validate checks descriptor invariants at registration time so invocation
// never has to
func (d *FunctionDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("function name is required")
	}
	if d.Version == "" {
		return fmt.Errorf("function '%s': version is required", d.Name)
	}
	if len(d.RequiredRoles) == 0 {
		return fmt.Errorf("function '%s': at least one required role", d.Name)
	}
	for _, role := range d.RequiredRoles {
		if !role.IsValid() {
			return fmt.Errorf("function '%s': unknown role '%s'", d.Name, role)
		}
	}
	if d.Query == "" {
		return fmt.Errorf("function '%s': query is required", d.Name)
	}
	seen := make(map[string]bool, len(d.Args))
	for _, arg := range d.Args {
		if arg.Name == "" {
			return fmt.Errorf("function '%s': argument name is required", d.Name)
		}
		if seen[arg.Name] {
			return fmt.Errorf("function '%s': duplicate argument '%s'", d.Name, arg.Name)
		}
		seen[arg.Name] = true
		switch arg.Type {
		case ArgString, ArgInt, ArgFloat, ArgBool:
		default:
			return fmt.Errorf("function '%s': argument '%s' has unknown type '%s'", d.Name, arg.Name, arg.Type)
		}
		// Optional arguments need a default so the bound parameter list is
		// always complete.
		if !arg.Required && arg.Default == nil {
			return fmt.Errorf("function '%s': optional argument '%s' needs a default", d.Name, arg.Name)
		}
	}
	if !seen[d.clientIDArg()] {
		return fmt.Errorf("function '%s': client scope argument '%s' is not declared", d.Name, d.clientIDArg())
	}
	return nil
}

// TTL returns the cache TTL, or zero when the function is uncacheable
func (d *FunctionDescriptor) TTL() time.Duration {
	if d.CacheTTL <= 0 {
		return 0
	}
	return time.Duration(d.CacheTTL) * time.Second
}

// ConnectorName returns the datastore connector this function runs against
func (d *FunctionDescriptor) ConnectorName() string {
	if d.Connector == "" {
		return defaultConnectorName
	}
	return d.Connector
}

func (d *FunctionDescriptor) clientIDArg() string {
	if d.ClientIDArg == "" {
		return defaultClientIDArg
	}
	return d.ClientIDArg
}

// ValidateArgs checks provided arguments against the schema and returns the
// normalized argument map: unknown names rejected, required names enforced,
// defaults applied, values coerced to the declared type. JSON numbers arrive
// as float64 and are narrowed for int arguments.
func (d *FunctionDescriptor) ValidateArgs(provided map[string]interface{}) (map[string]interface{}, error) {
	declared := make(map[string]ArgSpec, len(d.Args))
	for _, arg := range d.Args {
		declared[arg.Name] = arg
	}

	for name := range provided {
		if _, ok := declared[name]; !ok {
			return nil, fmt.Errorf("unknown argument '%s'", name)
		}
	}

	normalized := make(map[string]interface{}, len(d.Args))
	for _, arg := range d.Args {
		value, ok := provided[arg.Name]
		if !ok || value == nil {
			if arg.Required {
				return nil, fmt.Errorf("missing required argument '%s'", arg.Name)
			}
			normalized[arg.Name] = arg.Default
			continue
		}
		coerced, err := coerceArg(arg.Type, value)
		if err != nil {
			return nil, fmt.Errorf("argument '%s': %w", arg.Name, err)
		}
		normalized[arg.Name] = coerced
	}
	return normalized, nil
}

// QueryArgs returns the bound parameter values in declaration order
func (d *FunctionDescriptor) QueryArgs(normalized map[string]interface{}) []interface{} {
	args := make([]interface{}, 0, len(d.Args))
	for _, arg := range d.Args {
		args = append(args, normalized[arg.Name])
	}
	return args
}

func coerceArg(argType ArgType, value interface{}) (interface{}, error) {
	switch argType {
	case ArgString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return s, nil
	case ArgInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != float64(int(v)) {
				return nil, fmt.Errorf("expected integer, got %v", v)
			}
			return int(v), nil
		case json.Number:
			i, err := v.Int64()
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %v", v)
			}
			return int(i), nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", value)
		}
	case ArgFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("expected number, got %v", v)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("expected number, got %T", value)
		}
	case ArgBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", value)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown argument type '%s'", argType)
	}
}

// Catalog is the registered set of function descriptors. Lookups are
// lock-free; Reload swaps the whole set atomically so in-flight invocations
// keep a consistent view.
type Catalog struct {
	functions atomic.Value // map[string]*FunctionDescriptor
}

// NewCatalog builds a catalog from the given descriptors
func NewCatalog(descriptors []*FunctionDescriptor) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Reload(descriptors); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload validates and atomically replaces the registered function set
func (c *Catalog) Reload(descriptors []*FunctionDescriptor) error {
	functions := make(map[string]*FunctionDescriptor, len(descriptors))
	for _, desc := range descriptors {
		if err := desc.Validate(); err != nil {
			return err
		}
		if _, exists := functions[desc.Name]; exists {
			return fmt.Errorf("duplicate function '%s'", desc.Name)
		}
		functions[desc.Name] = desc
	}
	c.functions.Store(functions)
	return nil
}

// Get returns the descriptor for a function ID, or ErrUnknownFunction
func (c *Catalog) Get(functionID string) (*FunctionDescriptor, error) {
	functions := c.functions.Load().(map[string]*FunctionDescriptor)
	desc, ok := functions[functionID]
	if !ok {
		return nil, ErrUnknownFunction
	}
	return desc, nil
}

// List returns all descriptors sorted by name
func (c *Catalog) List() []*FunctionDescriptor {
	functions := c.functions.Load().(map[string]*FunctionDescriptor)
	out := make([]*FunctionDescriptor, 0, len(functions))
	for _, desc := range functions {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// catalogFile is the YAML shape of an external function catalog
type catalogFile struct {
	Version   string                `yaml:"version"`
	Functions []*FunctionDescriptor `yaml:"functions"`
}

// LoadCatalogFile builds a catalog from a YAML file
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(file.Functions) == 0 {
		return nil, fmt.Errorf("catalog file '%s' declares no functions", path)
	}
	return NewCatalog(file.Functions)
}
