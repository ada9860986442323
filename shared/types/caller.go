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

// Package types provides shared type definitions used across ClientAssist
// components. This file defines the caller identity and row-level scope
// model consumed by the authorization gates.
package types

import (
	"sort"
	"strings"
)

// Role represents a caller role recognized by the permission registry
type Role string

const (
	// RoleAdmin has access to every function and every client
	RoleAdmin Role = "admin"
	// RoleSales covers client relationship functions
	RoleSales Role = "sales"
	// RoleSupport covers assigned-client support functions
	RoleSupport Role = "support"
	// RoleFinance covers payment and invoice functions
	RoleFinance Role = "finance"
	// RoleReadonly has no function grants by default
	RoleReadonly Role = "readonly"
)

// String returns the string representation of the Role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the Role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSales, RoleSupport, RoleFinance, RoleReadonly:
		return true
	default:
		return false
	}
}

// CallerContext carries the identity, roles, and row-level client scope of
// one invocation. It is owned by the call stack of a single invocation and
// must never be shared or persisted by the pipeline.
type CallerContext struct {
	// Identity is the unique caller identifier (user id or service account)
	Identity string `json:"identity"`

	// Roles the caller holds
	Roles []Role `json:"roles"`

	// AllClients grants access to every client row (admin-equivalent)
	AllClients bool `json:"all_clients"`

	// Clients is the set of client identifiers the caller may access
	// when AllClients is false
	Clients []string `json:"clients,omitempty"`
}

// HasRole returns true if the caller holds the given role
func (c *CallerContext) HasRole(role Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole returns true if the caller holds at least one of the given roles
func (c *CallerContext) HasAnyRole(roles []Role) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// CanAccessClient implements the row-level scope gate. It is independent of
// any role check: holding a role that grants function-level access does not
// imply access to a specific client.
func (c *CallerContext) CanAccessClient(clientID string) bool {
	if clientID == "" {
		return false
	}
	if c.AllClients {
		return true
	}
	for _, id := range c.Clients {
		if id == clientID {
			return true
		}
	}
	return false
}

// ScopeID returns a deterministic identifier of the caller's row-level
// scope. Two callers with the same accessible-client set share a scope ID;
// callers with different sets never do. Used as the mandatory scope
// component of cache fingerprints.
func (c *CallerContext) ScopeID() string {
	if c.AllClients {
		return "all"
	}
	if len(c.Clients) == 0 {
		return "none"
	}
	ids := make([]string, len(c.Clients))
	copy(ids, c.Clients)
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
