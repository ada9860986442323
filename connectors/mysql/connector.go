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

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"clientassist/platform/connectors/base"
)

const defaultTimeout = 5 * time.Second

// MySQLConnector implements the datastore Connector interface for MySQL
// and MariaDB
type MySQLConnector struct {
	config *base.ConnectorConfig
	db     *sql.DB
	logger *log.Logger
}

// NewMySQLConnector creates a new MySQL connector instance
func NewMySQLConnector() *MySQLConnector {
	return &MySQLConnector{
		logger: log.New(os.Stdout, "[MYSQL] ", log.LstdFlags),
	}
}

// Connect establishes a connection pool to MySQL
func (c *MySQLConnector) Connect(ctx context.Context, config *base.ConnectorConfig) error {
	c.config = config

	dsn, err := c.buildDSN(config)
	if err != nil {
		return base.NewConnectorError(config.Name, "Connect", "failed to build DSN", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return base.NewConnectorError(config.Name, "Connect", "failed to open connection", err)
	}

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

	if err := db.PingContext(ctx); err != nil {
		return base.NewConnectorError(config.Name, "Connect", "failed to ping database", err)
	}

	c.db = db
	c.logger.Printf("Connected to MySQL: %s (max_conns=%d)", config.Name, maxOpenConns)

	return nil
}

// buildDSN constructs a mysql DSN from the connector config. A full DSN in
// ConnectionURL wins; otherwise the DSN is built from options and
// credentials.
func (c *MySQLConnector) buildDSN(config *base.ConnectorConfig) (string, error) {
	if config.ConnectionURL != "" {
		return c.enhanceDSN(config.ConnectionURL), nil
	}

	host := "localhost"
	port := 3306
	database := ""

	if h, ok := config.Options["host"].(string); ok {
		host = h
	}
	if p, ok := config.Options["port"].(float64); ok {
		port = int(p)
	}
	if p, ok := config.Options["port"].(int); ok {
		port = p
	}
	if d, ok := config.Options["database"].(string); ok {
		database = d
	}

	if database == "" {
		return "", fmt.Errorf("database name is required")
	}

	username := config.Credentials["username"]
	password := config.Credentials["password"]

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", username, password, host, port, database)

	params := []string{
		"parseTime=true",          // Parse TIME/DATE/DATETIME to time.Time
		"loc=UTC",                 // Use UTC timezone
		"charset=utf8mb4",         // Full UTF-8 support
		"timeout=10s",             // Connection timeout
		"multiStatements=false",   // Disable multi-statements (SQL injection prevention)
		"interpolateParams=false", // Use server-side prepared statements
	}

	if tls, ok := config.Options["tls"].(string); ok {
		params = append(params, fmt.Sprintf("tls=%s", tls))
	}

	return dsn + "?" + strings.Join(params, "&"), nil
}

// enhanceDSN ensures parseTime is enabled on a caller-supplied DSN
func (c *MySQLConnector) enhanceDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

// Disconnect closes the database connection pool
func (c *MySQLConnector) Disconnect(ctx context.Context) error {
	if c.db == nil {
		return nil
	}

	if err := c.db.Close(); err != nil {
		return base.NewConnectorError(c.name(), "Disconnect", "failed to close connection", err)
	}

	c.logger.Printf("Disconnected from MySQL: %s", c.name())
	return nil
}

// HealthCheck verifies the database connection is healthy
func (c *MySQLConnector) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
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
// ? placeholders matching query.Args.
func (c *MySQLConnector) Query(ctx context.Context, query *base.Query) (*base.QueryResult, error) {
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
			// go-sql-driver returns text columns as []byte
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
func (c *MySQLConnector) Execute(ctx context.Context, cmd *base.Command) (*base.CommandResult, error) {
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

	return &base.CommandResult{
		Success:      true,
		RowsAffected: int(rowsAffected),
		Duration:     duration,
		Message:      fmt.Sprintf("%s completed", cmd.Action),
		Connector:    c.name(),
	}, nil
}

// Name returns the connector instance name
func (c *MySQLConnector) Name() string {
	return c.name()
}

// Type returns the connector type
func (c *MySQLConnector) Type() string {
	return "mysql"
}

// Version returns the connector version
func (c *MySQLConnector) Version() string {
	return "1.0.0"
}

// Capabilities returns the list of supported capabilities
func (c *MySQLConnector) Capabilities() []string {
	return []string{"query", "execute", "transactions"}
}

func (c *MySQLConnector) name() string {
	if c.config == nil {
		return "mysql"
	}
	return c.config.Name
}

func (c *MySQLConnector) timeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if c.config != nil && c.config.Timeout > 0 {
		return c.config.Timeout
	}
	return defaultTimeout
}
