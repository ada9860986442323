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
	"errors"
	"fmt"
	"time"

	"clientassist/platform/connectors/base"
	"clientassist/platform/connectors/registry"
	"clientassist/platform/shared/logger"
	"clientassist/platform/shared/types"
)

const defaultInvocationTimeout = 30 * time.Second

// Dispatcher runs the invocation pipeline. Gates run in a fixed order and
// every outcome is a typed InvocationResult; Invoke never returns an error.
type Dispatcher struct {
	catalog    *Catalog
	limiter    RateLimiter
	cache      ResultCache
	connectors *registry.Registry
	log        *logger.Logger
	timeout    time.Duration
}

// NewDispatcher wires the pipeline. A nil cache disables caching entirely;
// a nil limiter disables rate admission.
func NewDispatcher(catalog *Catalog, limiter RateLimiter, cache ResultCache, connectors *registry.Registry, log *logger.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultInvocationTimeout
	}
	return &Dispatcher{
		catalog:    catalog,
		limiter:    limiter,
		cache:      cache,
		connectors: connectors,
		log:        log,
		timeout:    timeout,
	}
}

// Invoke runs one function invocation through the full pipeline:
// catalog lookup, role gate, argument validation, scope gate, rate
// admission, cache lookup, query execution, cache population.
func (d *Dispatcher) Invoke(ctx context.Context, caller *types.CallerContext, req *InvocationRequest) *InvocationResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result := d.invoke(ctx, caller, req)
	result.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0

	invocationsTotal.WithLabelValues(req.FunctionID, string(result.Status)).Inc()
	invocationDuration.WithLabelValues(req.FunctionID).Observe(result.DurationMs)
	return result
}

func (d *Dispatcher) invoke(ctx context.Context, caller *types.CallerContext, req *InvocationRequest) *InvocationResult {
	callerID := logger.RedactIdentity(caller.Identity)

	desc, err := d.catalog.Get(req.FunctionID)
	if err != nil {
		return d.terminal(req, StatusUnknownFunction, msgUnknownFunction)
	}

	// Role gate. The result deliberately matches the scope gate's so a
	// caller cannot probe which one rejected them.
	if !IsAuthorized(caller, desc) {
		d.log.Warn(callerID, req.RequestID, req.FunctionID, "role gate denied invocation", map[string]interface{}{
			"reason":         "missing_role",
			"required_roles": desc.RequiredRoles,
		})
		return d.terminal(req, StatusDenied, msgDenied)
	}

	// Arguments validate before the scope gate because the client scope
	// value is itself an argument.
	args, err := desc.ValidateArgs(req.Arguments)
	if err != nil {
		return d.terminal(req, StatusInvalidArguments, err.Error())
	}

	clientID, _ := args[desc.clientIDArg()].(string)
	if clientID == "" {
		return d.terminal(req, StatusInvalidArguments,
			fmt.Sprintf("argument '%s' must be a non-empty client id", desc.clientIDArg()))
	}
	if !caller.CanAccessClient(clientID) {
		d.log.Warn(callerID, req.RequestID, req.FunctionID, "scope gate denied invocation", map[string]interface{}{
			"reason": "client_out_of_scope",
		})
		return d.terminal(req, StatusDenied, msgDenied)
	}

	if d.limiter != nil {
		admission := d.limiter.Admit(ctx, caller.Identity, req.FunctionID, EffectiveLimit(caller, desc))
		if !admission.Allowed {
			rateLimitRejections.WithLabelValues(req.FunctionID).Inc()
			result := d.terminal(req, StatusRateLimited, msgRateLimited)
			result.RetryAfterSeconds = int(admission.RetryAfter.Round(time.Second).Seconds())
			if result.RetryAfterSeconds < 1 {
				result.RetryAfterSeconds = 1
			}
			return result
		}
	}

	fingerprint := Fingerprint(desc.Name, desc.Version, caller.ScopeID(), args)
	cacheable := d.cache != nil && desc.TTL() > 0

	if cacheable {
		if rows, ok := d.cache.Get(ctx, fingerprint); ok {
			cacheLookups.WithLabelValues("hit").Inc()
			result := d.terminal(req, StatusOK, "")
			result.Rows = rows
			result.RowCount = len(rows)
			result.FromCache = true
			return result
		}
		cacheLookups.WithLabelValues("miss").Inc()
	}

	rows, err := d.execute(ctx, desc, args)
	if err != nil {
		if isTimeout(ctx, err) {
			d.log.ErrorWithErr(callerID, req.RequestID, req.FunctionID, "invocation timed out", err, nil)
			return d.terminal(req, StatusTimeout, msgTimeout)
		}
		// Detail stays in the log; callers get the generic failure.
		d.log.ErrorWithErr(callerID, req.RequestID, req.FunctionID, "query execution failed", err, map[string]interface{}{
			"connector": desc.ConnectorName(),
		})
		return d.terminal(req, StatusFailed, msgFailed)
	}

	if cacheable {
		d.cache.Set(ctx, fingerprint, rows, desc.TTL())
	}

	d.log.InfoWithDuration(callerID, req.RequestID, req.FunctionID, "invocation completed",
		0, map[string]interface{}{"row_count": len(rows)})

	result := d.terminal(req, StatusOK, "")
	result.Rows = rows
	result.RowCount = len(rows)
	return result
}

func (d *Dispatcher) execute(ctx context.Context, desc *FunctionDescriptor, args map[string]interface{}) ([]map[string]interface{}, error) {
	conn, err := d.connectors.Get(desc.ConnectorName())
	if err != nil {
		return nil, fmt.Errorf("connector '%s' unavailable: %w", desc.ConnectorName(), err)
	}

	result, err := conn.Query(ctx, &base.Query{
		Statement: desc.Query,
		Args:      desc.QueryArgs(args),
	})
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

func (d *Dispatcher) terminal(req *InvocationRequest, status Status, message string) *InvocationResult {
	return &InvocationResult{
		Status:     status,
		FunctionID: req.FunctionID,
		RequestID:  req.RequestID,
		Error:      message,
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
