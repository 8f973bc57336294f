// Copyright 2026 EDW Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package fabric

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQL drivers
	_ "github.com/go-sql-driver/mysql" // mysql
	_ "github.com/lib/pq"              // postgres
)

// SQLConfig configures a SQLBackend.
type SQLConfig struct {
	// Driver is "postgres" or "mysql".
	Driver string

	// DSN is the driver-specific connection string.
	DSN string

	// MaxOpenConns bounds the connection pool (0 = driver default).
	MaxOpenConns int

	// MaxIdleConns bounds idle connections (0 = driver default).
	MaxIdleConns int
}

// SQLBackend implements ExecutionBackend over database/sql. It supports the
// postgres and mysql drivers and discovers schemas via information_schema.
type SQLBackend struct {
	db     *sql.DB
	driver string
}

// NewSQLBackend opens a warehouse connection and verifies it with a ping.
func NewSQLBackend(ctx context.Context, cfg SQLConfig) (*SQLBackend, error) {
	switch cfg.Driver {
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported driver: %s (supported: postgres, mysql)", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("DSN is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLBackend{db: db, driver: cfg.Driver}, nil
}

// newSQLBackendFromDB wires an existing *sql.DB, used by tests.
func newSQLBackendFromDB(db *sql.DB, driver string) *SQLBackend {
	return &SQLBackend{db: db, driver: driver}
}

// Name returns the driver name.
func (b *SQLBackend) Name() string {
	return b.driver
}

// ExecuteQuery runs one statement and materializes all result rows.
func (b *SQLBackend) ExecuteQuery(ctx context.Context, query string) (*QueryResult, error) {
	start := time.Now()

	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var resultRows []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			val := values[i]
			// Convert []byte to string for text columns
			if bs, ok := val.([]byte); ok {
				row[col] = string(bs)
			} else {
				row[col] = val
			}
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{
		Rows:       resultRows,
		Columns:    columns,
		RowCount:   len(resultRows),
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

// GetSchema queries information_schema for the table's columns.
func (b *SQLBackend) GetSchema(ctx context.Context, table string) (*Schema, error) {
	var query string
	switch b.driver {
	case "postgres":
		query = `
			SELECT column_name, data_type, is_nullable
			FROM information_schema.columns
			WHERE table_name = $1
			ORDER BY ordinal_position`
	case "mysql":
		query = `
			SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
			FROM information_schema.COLUMNS
			WHERE TABLE_NAME = ?
			ORDER BY ORDINAL_POSITION`
	default:
		return nil, fmt.Errorf("schema discovery not supported for %s", b.driver)
	}

	rows, err := b.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fields []Field
	for rows.Next() {
		var name, dataType, isNullable string
		if err := rows.Scan(&name, &dataType, &isNullable); err != nil {
			return nil, err
		}
		fields = append(fields, Field{
			Name:     name,
			Type:     dataType,
			Nullable: strings.EqualFold(isNullable, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Schema{Name: table, Fields: fields}, nil
}

// Ping checks connectivity.
func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the connection pool.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}

// Ensure SQLBackend implements ExecutionBackend
var _ ExecutionBackend = (*SQLBackend)(nil)
