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
// Package fabric defines the warehouse execution boundary. The pipeline only
// depends on the ExecutionBackend contract; concrete backends wrap whatever
// actually runs the SQL.
package fabric

import (
	"context"
	"fmt"
	"strings"
)

// ExecutionBackend executes SQL against a warehouse and answers schema
// questions about it. Implementations must be safe for concurrent use.
type ExecutionBackend interface {
	// Name returns the backend identifier (e.g. "postgres", "mysql").
	Name() string

	// ExecuteQuery runs one SQL statement and returns its rows.
	ExecuteQuery(ctx context.Context, query string) (*QueryResult, error)

	// GetSchema retrieves column information for a table.
	GetSchema(ctx context.Context, table string) (*Schema, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// QueryResult holds the rows produced by one query.
type QueryResult struct {
	// Rows are the result rows, one map per row keyed by column name.
	Rows []map[string]interface{}

	// Columns are the result column names, in select order.
	Columns []string

	// RowCount is len(Rows), carried separately for logging and metrics.
	RowCount int

	// DurationMS is the execution time as observed by the backend.
	DurationMS int64
}

// Schema describes one table.
type Schema struct {
	Name   string
	Fields []Field
}

// Field is one column of a table.
type Field struct {
	Name     string
	Type     string
	Nullable bool
}

// Describe renders the schema as the plain-text column listing used in
// generation prompts and error messages.
func (s *Schema) Describe() string {
	if s == nil || len(s.Fields) == 0 {
		name := "table"
		if s != nil && s.Name != "" {
			name = s.Name
		}
		return fmt.Sprintf("%s (columns unknown)", name)
	}

	lines := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		nullable := "NOT NULL"
		if f.Nullable {
			nullable = "NULL"
		}
		lines[i] = fmt.Sprintf("  - %s (%s, %s)", f.Name, f.Type, nullable)
	}
	return strings.Join(lines, "\n")
}
