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

// Status represents the terminal state of an invocation
type Status string

const (
	// StatusOK means the function executed (or was served from cache)
	StatusOK Status = "ok"
	// StatusDenied means a role or scope gate failed. The two reasons are
	// deliberately not distinguished in the result.
	StatusDenied Status = "denied"
	// StatusRateLimited means rate admission rejected the invocation
	StatusRateLimited Status = "rate_limited"
	// StatusUnknownFunction means the function ID is not in the catalog
	StatusUnknownFunction Status = "unknown_function"
	// StatusInvalidArguments means the arguments failed schema validation
	StatusInvalidArguments Status = "invalid_arguments"
	// StatusFailed means the datastore query failed
	StatusFailed Status = "failed"
	// StatusTimeout means the invocation exceeded its deadline
	StatusTimeout Status = "timeout"
)

// User-facing messages. Denied never distinguishes role from scope, and
// Failed never carries the database error detail.
const (
	msgDenied          = "access denied"
	msgUnknownFunction = "unknown function"
	msgRateLimited     = "rate limit exceeded, retry later"
	msgFailed          = "function execution failed"
	msgTimeout         = "invocation timed out"
)

// InvocationRequest is one function call from the front-end collaborator
type InvocationRequest struct {
	FunctionID string                 `json:"function_id"`
	Arguments  map[string]interface{} `json:"arguments"`
	RequestID  string                 `json:"request_id,omitempty"`
}

// InvocationResult is the typed outcome of one invocation. It is the only
// thing that crosses the pipeline boundary; raw errors never do.
type InvocationResult struct {
	Status            Status                   `json:"status"`
	FunctionID        string                   `json:"function_id"`
	RequestID         string                   `json:"request_id"`
	Rows              []map[string]interface{} `json:"rows,omitempty"`
	RowCount          int                      `json:"row_count"`
	FromCache         bool                     `json:"from_cache"`
	RetryAfterSeconds int                      `json:"retry_after_seconds,omitempty"`
	Error             string                   `json:"error,omitempty"`
	DurationMs        float64                  `json:"duration_ms"`
}

// OK reports whether the invocation produced a result
func (r *InvocationResult) OK() bool {
	return r.Status == StatusOK
}
