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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"clientassist/platform/connectors/base"
)

// LoadPostgresConfig builds a postgres connector config from environment
// variables (DATABASE_URL, DB_TIMEOUT_SECONDS, DB_MAX_OPEN_CONNS)
func LoadPostgresConfig(connectorName string) (*base.ConnectorConfig, error) {
	connectionURL := os.Getenv("DATABASE_URL")
	if connectionURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &base.ConnectorConfig{
		Name:          connectorName,
		Type:          "postgres",
		ConnectionURL: connectionURL,
		Credentials:   map[string]string{},
		Options: map[string]interface{}{
			"max_open_conns": getEnvInt("DB_MAX_OPEN_CONNS", 25),
			"max_idle_conns": getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		Timeout:    time.Duration(getEnvInt("DB_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries: 3,
	}, nil
}

// LoadMySQLConfig builds a mysql connector config from environment
// variables (MYSQL_DSN, DB_TIMEOUT_SECONDS)
func LoadMySQLConfig(connectorName string) (*base.ConnectorConfig, error) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("MYSQL_DSN is required")
	}

	return &base.ConnectorConfig{
		Name:          connectorName,
		Type:          "mysql",
		ConnectionURL: dsn,
		Credentials:   map[string]string{},
		Options:       map[string]interface{}{},
		Timeout:       time.Duration(getEnvInt("DB_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:    3,
	}, nil
}

// ValidateConfig checks that a connector config carries the fields its type
// requires
func ValidateConfig(config *base.ConnectorConfig) error {
	if config.Name == "" {
		return fmt.Errorf("connector name is required")
	}

	switch config.Type {
	case "postgres":
		if config.ConnectionURL == "" {
			return fmt.Errorf("connector '%s': connection_url is required for postgres", config.Name)
		}
	case "mysql":
		if config.ConnectionURL == "" {
			if _, ok := config.Options["database"]; !ok {
				return fmt.Errorf("connector '%s': connection_url or options.database is required for mysql", config.Name)
			}
		}
	case "":
		return fmt.Errorf("connector '%s': type is required", config.Name)
	default:
		return fmt.Errorf("connector '%s': unknown type '%s'", config.Name, config.Type)
	}

	return nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
