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

package base

import (
	"fmt"
	"net/url"
	"strings"
)

// DSNValidationOptions configures connection-URL validation behavior
type DSNValidationOptions struct {
	// AllowedSchemes specifies permitted URL schemes for this connector type,
	// e.g. ["postgres", "postgresql"]
	AllowedSchemes []string
	// RequireHost rejects DSNs without an explicit hostname
	RequireHost bool
}

// ValidateDSN validates a URL-form connection string before a connector
// opens it. It checks:
//   - DSN format and scheme
//   - presence of a hostname when required
//
// Connectors whose drivers use non-URL DSNs (mysql) validate the rebuilt
// DSN components individually instead.
func ValidateDSN(rawDSN string, opts DSNValidationOptions) error {
	if rawDSN == "" {
		return fmt.Errorf("connection URL cannot be empty")
	}

	parsed, err := url.Parse(rawDSN)
	if err != nil {
		return fmt.Errorf("invalid connection URL format: %w", err)
	}

	if err := validateScheme(parsed.Scheme, opts.AllowedSchemes); err != nil {
		return err
	}

	if opts.RequireHost && parsed.Hostname() == "" {
		return fmt.Errorf("connection URL must contain a hostname")
	}

	return nil
}

// validateScheme checks if the DSN scheme is allowed
func validateScheme(scheme string, allowedSchemes []string) error {
	if len(allowedSchemes) == 0 {
		return fmt.Errorf("no allowed schemes configured")
	}

	scheme = strings.ToLower(scheme)
	for _, allowed := range allowedSchemes {
		if scheme == strings.ToLower(allowed) {
			return nil
		}
	}

	return fmt.Errorf("connection URL scheme %q is not allowed; permitted schemes: %v", scheme, allowedSchemes)
}

// RedactDSN masks the password component of a URL-form DSN for logging
func RedactDSN(rawDSN string) string {
	parsed, err := url.Parse(rawDSN)
	if err != nil || parsed.User == nil {
		return rawDSN
	}
	if _, hasPassword := parsed.User.Password(); hasPassword {
		parsed.User = url.UserPassword(parsed.User.Username(), "xxxxx")
	}
	return parsed.String()
}
