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

// Package main is the entry point for the ClientAssist gateway service.
//
// The gateway mediates between the conversational assistant and the client
// database: it authenticates callers, enforces role and client-scope
// authorization, applies rate limits, and serves cached or freshly executed
// retrieval functions.
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	DATABASE_URL - PostgreSQL connection string
//	REDIS_URL - Redis connection string (optional; enables shared cache and rate limits)
//	JWT_SECRET - Secret for JWT token validation (required)
//	FUNCTIONS_FILE - YAML function catalog (optional; builtins used otherwise)
//	CONNECTORS_FILE - YAML connector configuration (optional)
//	INVOCATION_TIMEOUT_SECONDS - Per-invocation deadline (default: 30)
//	RATE_LIMIT_WINDOW_SECONDS - Rate limit window (default: 3600)
package main

import (
	"log"

	"clientassist/platform/gateway"
)

func main() {
	if err := gateway.Run(); err != nil {
		log.Fatalf("gateway failed to start: %v", err)
	}
}
