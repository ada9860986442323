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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clientassist/platform/connectors/registry"
	"clientassist/platform/shared/logger"
)

// Server exposes the gateway over HTTP
type Server struct {
	dispatcher *Dispatcher
	catalog    *Catalog
	connectors *registry.Registry
	jwtSecret  []byte
	log        *logger.Logger
}

// NewServer wires the HTTP layer around a dispatcher
func NewServer(dispatcher *Dispatcher, catalog *Catalog, connectors *registry.Registry, jwtSecret []byte, log *logger.Logger) *Server {
	return &Server{
		dispatcher: dispatcher,
		catalog:    catalog,
		connectors: connectors,
		jwtSecret:  jwtSecret,
		log:        log,
	}
}

// Router builds the route table. Authenticated routes live under /api/v1.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/invoke", s.handleInvoke).Methods(http.MethodPost)
	api.HandleFunc("/functions", s.handleListFunctions).Methods(http.MethodGet)
	return r
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing caller context")
		return
	}

	var req InvocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.FunctionID == "" {
		writeJSONError(w, http.StatusBadRequest, "function_id is required")
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	result := s.dispatcher.Invoke(r.Context(), caller, &req)
	writeJSON(w, httpStatusFor(result.Status), result, result.RetryAfterSeconds)
}

// functionSummary is the caller-visible view of a descriptor. The SQL text
// never leaves the gateway.
type functionSummary struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	CacheTTL    int       `json:"cache_ttl,omitempty"`
	Args        []ArgSpec `json:"args"`
}

func (s *Server) handleListFunctions(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing caller context")
		return
	}

	visible := make([]functionSummary, 0)
	for _, desc := range s.catalog.List() {
		if !IsAuthorized(caller, desc) {
			continue
		}
		visible = append(visible, functionSummary{
			Name:        desc.Name,
			Version:     desc.Version,
			Description: desc.Description,
			CacheTTL:    desc.CacheTTL,
			Args:        desc.Args,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"functions": visible,
		"count":     len(visible),
	}, 0)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithHealthTimeout(r)
	defer cancel()

	statuses := s.connectors.HealthCheckAll(ctx)
	healthy := true
	for _, status := range statuses {
		if !status.Healthy {
			healthy = false
			break
		}
	}

	code := http.StatusOK
	overall := "healthy"
	if !healthy {
		code = http.StatusServiceUnavailable
		overall = "degraded"
	}
	writeJSON(w, code, map[string]interface{}{
		"status":     overall,
		"connectors": statuses,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}, 0)
}

func contextWithHealthTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

// httpStatusFor maps invocation outcomes onto HTTP status codes
func httpStatusFor(status Status) int {
	switch status {
	case StatusOK:
		return http.StatusOK
	case StatusDenied:
		return http.StatusForbidden
	case StatusRateLimited:
		return http.StatusTooManyRequests
	case StatusUnknownFunction:
		return http.StatusNotFound
	case StatusInvalidArguments:
		return http.StatusBadRequest
	case StatusTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}, retryAfterSeconds int) {
	w.Header().Set("Content-Type", "application/json")
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSeconds))
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message}, 0)
}
