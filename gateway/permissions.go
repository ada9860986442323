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

import "clientassist/platform/shared/types"

// defaultRoleLimits are the per-hour invocation limits applied when a
// descriptor does not set its own
var defaultRoleLimits = map[types.Role]int{
	types.RoleAdmin:    1000,
	types.RoleSales:    500,
	types.RoleSupport:  500,
	types.RoleFinance:  300,
	types.RoleReadonly: 100,
}

// IsAuthorized reports whether the caller holds any of the function's
// required roles. Role possession alone grants nothing about which clients
// the caller may read; that is the scope gate's job.
func IsAuthorized(caller *types.CallerContext, desc *FunctionDescriptor) bool {
	if caller == nil {
		return false
	}
	return caller.HasAnyRole(desc.RequiredRoles)
}

// EffectiveLimit returns the rate limit applied to this caller invoking this
// function: the descriptor's own limit when set, otherwise the most generous
// default among the caller's roles.
func EffectiveLimit(caller *types.CallerContext, desc *FunctionDescriptor) int {
	if desc.RateLimit > 0 {
		return desc.RateLimit
	}
	limit := 0
	for _, role := range caller.Roles {
		if l, ok := defaultRoleLimits[role]; ok && l > limit {
			limit = l
		}
	}
	return limit
}
