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
Package base provides the core interfaces and types for ClientAssist
datastore connectors.

# Overview

The base package defines the Connector interface that all datastore
connectors must implement. The gateway dispatcher executes function queries
through this interface and never touches a database driver directly.

# Connector Interface

All connectors implement the Connector interface:

	type Connector interface {
	    // Lifecycle
	    Connect(ctx context.Context, config *ConnectorConfig) error
	    Disconnect(ctx context.Context) error
	    HealthCheck(ctx context.Context) (*HealthStatus, error)

	    // Data Operations
	    Query(ctx context.Context, query *Query) (*QueryResult, error)

	    // Action Operations
	    Execute(ctx context.Context, cmd *Command) (*CommandResult, error)

	    // Metadata
	    Name() string
	    Type() string
	    Version() string
	    Capabilities() []string
	}

# Query Operations

Queries carry a fixed SQL template and ordered bound arguments:

	query := &Query{
	    Statement: "SELECT note_text, created_by FROM notes WHERE client_id = $1 LIMIT $2",
	    Args:      []interface{}{"client42", 100},
	    Timeout:   5 * time.Second,
	}

	result, err := connector.Query(ctx, query)
	if err != nil {
	    return err
	}

	for _, row := range result.Rows {
	    fmt.Println(row["note_text"])
	}

Caller-influenced values are passed exclusively through Args. Building a
Statement by string concatenation of request data is a bug, no matter how
trusted the value looks.

# Error Handling

All connector errors are wrapped in ConnectorError for consistent handling:

	result, err := connector.Query(ctx, query)
	var connErr *ConnectorError
	if errors.As(err, &connErr) {
	    log.Printf("Connector: %s, Operation: %s, Message: %s",
	        connErr.ConnectorName, connErr.Operation, connErr.Message)
	}

# Thread Safety

All Connector implementations must be safe for concurrent use. The
interface methods can be called from multiple goroutines simultaneously.
*/
package base
