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
Package gateway implements the ClientAssist function gateway: the mediation
layer between a conversational AI front-end and the client database.

# Invocation pipeline

Every function invocation runs the same pipeline inside the Dispatcher:

	role gate -> scope gate -> rate admission -> cache lookup
	          -> (miss) query execution -> cache populate

Gate order is fixed; later gates assume earlier ones passed. Every terminal
state is a typed InvocationResult. Gate failures (denied, rate_limited) are
ordinary result values. Infrastructure failures are logged with the function
ID and a redacted caller identity, then surfaced as generic failures; the
database error detail never reaches the caller.

The cache is advisory: when Redis is unreachable the dispatcher falls back
to direct execution and never reports a cache error to the caller.

# Function catalog

Functions are declarative descriptors (name, version, required roles, cache
TTL, rate limit, argument schema, SQL template) registered once at startup,
either built-in or from a YAML file. Execution bodies receive validated,
already-authorized arguments and must not re-implement authorization.

# HTTP surface

Run starts the HTTP service:

	POST /api/v1/invoke     invoke a function (JWT bearer auth)
	GET  /api/v1/functions  list functions visible to the caller
	GET  /health            connector health
	GET  /metrics           Prometheus metrics
*/
package gateway
