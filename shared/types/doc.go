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

/*
Package types provides shared type definitions used across ClientAssist
components.

# Overview

This package contains the caller identity model shared between the gateway
HTTP layer and the dispatcher pipeline. It is the single source of truth for
roles and row-level client scoping.

# Caller Context

A CallerContext is supplied fresh on every invocation by the front-end
collaborator and is never persisted:

	caller := &types.CallerContext{
	    Identity: "alice@example.com",
	    Roles:    []types.Role{types.RoleSales},
	    Clients:  []string{"client42"},
	}

	if caller.HasRole(types.RoleAdmin) || caller.CanAccessClient("client42") {
	    // proceed
	}

# Thread Safety

All types in this package are treated as immutable after construction and
are safe for concurrent reads.
*/
package types
