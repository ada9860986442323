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
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"clientassist/platform/shared/types"
)

type contextKey string

const callerContextKey contextKey = "caller"

// callerClaims is the JWT payload issued by the identity service
type callerClaims struct {
	Roles      []string `json:"roles"`
	Clients    []string `json:"clients,omitempty"`
	AllClients bool     `json:"all_clients,omitempty"`
	jwt.RegisteredClaims
}

// ParseCallerToken validates a bearer token and builds the caller context.
// Only HMAC-signed tokens are accepted; an attacker must not be able to
// downgrade to "none" or swap in an asymmetric key.
func ParseCallerToken(tokenString string, secret []byte) (*types.CallerContext, error) {
	claims := &callerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	roles := make([]types.Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		role := types.Role(r)
		if !role.IsValid() {
			return nil, fmt.Errorf("token carries unknown role '%s'", r)
		}
		roles = append(roles, role)
	}

	return &types.CallerContext{
		Identity:   claims.Subject,
		Roles:      roles,
		AllClients: claims.AllClients,
		Clients:    claims.Clients,
	}, nil
}

// CallerFromContext returns the authenticated caller stored by the auth
// middleware
func CallerFromContext(ctx context.Context) (*types.CallerContext, bool) {
	caller, ok := ctx.Value(callerContextKey).(*types.CallerContext)
	return caller, ok
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		caller, err := ParseCallerToken(strings.TrimPrefix(header, "Bearer "), s.jwtSecret)
		if err != nil {
			s.log.Warn("", "", "", "rejected request with invalid token", map[string]interface{}{
				"error": err.Error(),
			})
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), callerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
