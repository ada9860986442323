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

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"clientassist/platform/connectors/base"
)

const defaultTimeout = 5 * time.Second

// PostgresConnector implements the datastore Connector interface for
// PostgreSQL
type PostgresConnector struct {
	config *base.ConnectorConfig
	db     *sql.DB
	logger *log.Logger
}

// NewPostgresConnector creates a new PostgreSQL connector instance
func NewPostgresConnector() *PostgresConnector {
	return &PostgresConnector{
		logger: log.New(os.Stdout, "[POSTGRES] ", log.LstdFlags),
	}
}

// Connect establishes a connection pool to PostgreSQL
func (c *PostgresConnector) Connect(ctx context.Context, config *base.ConnectorConfig) error {
	if err := base.ValidateDSN(config.ConnectionURL, base.DSNValidationOptions{
		AllowedSchemes: []string{"postgres", "postgresql"},
		RequireHost:    true,
	}); err != nil {
		return base.NewConnectorError(config.Name, "Connect", "invalid connection URL", err)
	}

	c.config = config

	db, err := sql.Open("postgres", config.ConnectionURL)
	if err != nil {
		return base.NewConnectorError(config.Name, "Connect", "failed to open connection", err)
	}

	// Configure connection pool
	maxOpenConns := 25
	maxIdleConns := 5
	connMaxLifetime := 5 * time.Minute

	if val, ok := config.Options["max_open_conns"].(int); ok {
		maxOpenConns = val
	}
	if val, ok := config.Options["max_idle_conns"].(int); ok {
		maxIdleConns = val
	}
	if val, ok := config.Options["conn_max_lifetime"].(string); ok {
		if duration, err := time.ParseDuration(val); err == nil {
			connMaxLifetime = duration
		}
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		return base.NewConnectorError(config.Name, "Connect", "failed to ping database", err)
	}

	c.db = db
	c.logger.Printf("Connected to PostgreSQL: %s (%s, max_conns=%d)",
		config.Name, base.RedactDSN(config.ConnectionURL), maxOpenConns)

	return nil
}

// Disconnect closes the database connection pool
func (c *PostgresConnector) Disconnect(ctx context.Context) error {
	if c.db == nil {
		return nil
	}

	if err := c.db.Close(); err != nil {
		return base.NewConnectorError(c.config.Name, "Disconnect", "failed to close connection", err)
	}

	c.logger.Printf("Disconnected from PostgreSQL: %s", c.config.Name)
	return nil
}

// HealthCheck verifies the database connection is healthy
func (c *PostgresConnector) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	if c.db == nil {
		return &base.HealthStatus{
			Healthy: false,
			Error:   "database not connected",
		}, nil
	}

	start := time.Now()
	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return &base.HealthStatus{
			Healthy:   false,
			Latency:   latency,
			Timestamp: time.Now(),
			Error:     err.Error(),
		}, nil
	}

	stats := c.db.Stats()
	details := map[string]string{
		"open_connections": fmt.Sprintf("%d", stats.OpenConnections),
		"in_use":           fmt.Sprintf("%d", stats.InUse),
		"idle":             fmt.Sprintf("%d", stats.Idle),
	}

	return &base.HealthStatus{
		Healthy:   true,
		Latency:   latency,
		Details:   details,
		Timestamp: time.Now(),
	}, nil
}

// Query executes a SELECT query and returns results. The statement must use
// $1..$n placeholders matching query.Args; values are always bound, never
// interpolated.
func (c *PostgresConnector) Query(ctx context.Context, query *base.Query) (*base.QueryResult, error) {
	if c.db == nil {
		return nil, base.NewConnectorError(c.name(), "Query", "database not connected", nil)
	}

	queryCtx, cancel := context.WithTimeout(ctx, c.timeout(query.Timeout))
	defer cancel()

	start := time.Now()
	rows, err := c.db.QueryContext(queryCtx, query.Statement, query.Args...)
	if err != nil {
		return nil, base.NewConnectorError(c.name(), "Query", "query execution failed", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, base.NewConnectorError(c.name(), "Query", "failed to get columns", err)
	}

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		if query.Limit > 0 && len(results) >= query.Limit {
			break
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, base.NewConnectorError(c.name(), "Query", "failed to scan row", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			// lib/pq returns text columns as []byte
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, base.NewConnectorError(c.name(), "Query", "error during row iteration", err)
	}

	duration := time.Since(start)

	c.logger.Printf("Query executed: %d rows in %v", len(results), duration)

	return &base.QueryResult{
		Rows:      results,
		RowCount:  len(results),
		Duration:  duration,
		Cached:    false,
		Connector: c.name(),
	}, nil
}

// Execute runs INSERT, UPDATE, DELETE, or other write operations
func (c *PostgresConnector) Execute(ctx context.Context, cmd *base.Command) (*base.CommandResult, error) {
	if c.db == nil {
		return nil, base.NewConnectorError(c.name(), "Execute", "database not connected", nil)
	}

	execCtx, cancel := context.WithTimeout(ctx, c.timeout(cmd.Timeout))
	defer cancel()

	start := time.Now()
	result, err := c.db.ExecContext(execCtx, cmd.Statement, cmd.Args...)
	if err != nil {
		return nil, base.NewConnectorError(c.name(), "Execute", "command execution failed", err)
	}

	duration := time.Since(start)

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Printf("Warning: Could not get rows affected: %v", err)
		rowsAffected = 0
	}

	c.logger.Printf("Command executed: %d rows affected in %v", rowsAffected, duration)

	return &base.CommandResult{
		Success:      true,
		RowsAffected: int(rowsAffected),
		Duration:     duration,
		Message:      fmt.Sprintf("%s completed", cmd.Action),
		Connector:    c.name(),
	}, nil
}

// Name returns the connector instance name
func (c *PostgresConnector) Name() string {
	return c.name()
}

// Type returns the connector type
func (c *PostgresConnector) Type() string {
	return "postgres"
}

// Version returns the connector version
func (c *PostgresConnector) Version() string {
	return "1.0.0"
}

// Capabilities returns the list of supported capabilities
func (c *PostgresConnector) Capabilities() []string {
	return []string{"query", "execute", "transactions"}
}

func (c *PostgresConnector) name() string {
	if c.config == nil {
		return "postgres"
	}
	return c.config.Name
}

func (c *PostgresConnector) timeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if c.config != nil && c.config.Timeout > 0 {
		return c.config.Timeout
	}
	return defaultTimeout
}
