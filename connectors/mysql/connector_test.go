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
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"clientassist/platform/connectors/base"
)

func newMockConnector(t *testing.T) (*MySQLConnector, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &MySQLConnector{
		config: &base.ConnectorConfig{
			Name:    "primary",
			Type:    "mysql",
			Timeout: 5 * time.Second,
		},
		db:     db,
		logger: log.New(os.Stdout, "[MYSQL] ", log.LstdFlags),
	}, mock
}

func TestBuildDSN(t *testing.T) {
	c := NewMySQLConnector()

	tests := []struct {
		name        string
		config      *base.ConnectorConfig
		wantErr     bool
		contains    []string
		notContains []string
	}{
		{
			name: "built from options",
			config: &base.ConnectorConfig{
				Options:     map[string]interface{}{"host": "db.internal", "port": 3307, "database": "clients"},
				Credentials: map[string]string{"username": "gateway", "password": "secret"},
			},
			contains: []string{
				"gateway:secret@tcp(db.internal:3307)/clients",
				"parseTime=true",
				"multiStatements=false",
				"interpolateParams=false",
			},
		},
		{
			name: "missing database name",
			config: &base.ConnectorConfig{
				Options: map[string]interface{}{"host": "db.internal"},
			},
			wantErr: true,
		},
		{
			name: "explicit DSN gains parseTime",
			config: &base.ConnectorConfig{
				ConnectionURL: "gateway:secret@tcp(db.internal:3306)/clients",
			},
			contains: []string{"parseTime=true"},
		},
		{
			name: "explicit DSN with parseTime untouched",
			config: &base.ConnectorConfig{
				ConnectionURL: "gateway:secret@tcp(db.internal:3306)/clients?parseTime=true&loc=UTC",
			},
			contains:    []string{"loc=UTC"},
			notContains: []string{"parseTime=true&parseTime"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := c.buildDSN(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(dsn, want) {
					t.Errorf("expected DSN to contain %q, got %q", want, dsn)
				}
			}
			for _, not := range tt.notContains {
				if strings.Contains(dsn, not) {
					t.Errorf("expected DSN not to contain %q, got %q", not, dsn)
				}
			}
		})
	}
}

func TestQuery(t *testing.T) {
	c, mock := newMockConnector(t)

	rows := sqlmock.NewRows([]string{"status", "end_date"}).
		AddRow([]byte("active"), []byte("2026-12-31"))

	mock.ExpectQuery("SELECT status, end_date FROM contracts").
		WithArgs("client42").
		WillReturnRows(rows)

	result, err := c.Query(context.Background(), &base.Query{
		Statement: "SELECT status, end_date FROM contracts WHERE client_id = ?",
		Args:      []interface{}{"client42"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RowCount != 1 {
		t.Fatalf("expected 1 row, got %d", result.RowCount)
	}
	if result.Rows[0]["status"] != "active" {
		t.Errorf("expected byte columns converted to string, got %v", result.Rows[0]["status"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestQueryError(t *testing.T) {
	c, mock := newMockConnector(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("table does not exist"))

	_, err := c.Query(context.Background(), &base.Query{
		Statement: "SELECT * FROM missing WHERE id = ?",
		Args:      []interface{}{"x"},
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var connErr *base.ConnectorError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectorError, got %T", err)
	}
}

func TestQueryNotConnected(t *testing.T) {
	c := NewMySQLConnector()

	if _, err := c.Query(context.Background(), &base.Query{Statement: "SELECT 1"}); err == nil {
		t.Fatal("expected error when not connected")
	}
}

func TestMetadata(t *testing.T) {
	c := NewMySQLConnector()

	if c.Type() != "mysql" {
		t.Errorf("expected type mysql, got %s", c.Type())
	}
	if len(c.Capabilities()) == 0 {
		t.Error("expected non-empty capabilities")
	}
}
