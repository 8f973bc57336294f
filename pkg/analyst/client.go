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
// Package analyst converts an enhanced question into SQL via a language
// model and executes it against a warehouse backend. It is the pipeline's
// generation-and-execution collaborator: generated SQL is treated as
// untrusted text, execution errors come back enriched with the schema
// context that was used for generation, and nothing is retried.
package analyst

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edw-labs/edw-assistant/internal/csync"
	"github.com/edw-labs/edw-assistant/pkg/fabric"
	"github.com/edw-labs/edw-assistant/pkg/llm"
	"github.com/edw-labs/edw-assistant/pkg/observability"
)

// Config holds configuration for the analyst client.
type Config struct {
	// Provider generates SQL from prompts.
	Provider llm.Provider

	// Backend executes the generated SQL.
	Backend fabric.ExecutionBackend

	// Table is the warehouse table the assistant answers questions about.
	Table string

	// Events receives pipeline log events. Optional.
	Events *observability.EventLogger
}

// Client implements the generation-and-execution contract consumed by the
// orchestrator.
type Client struct {
	provider    llm.Provider
	backend     fabric.ExecutionBackend
	table       string
	events      *observability.EventLogger
	schemaCache *csync.Map[string, string]
}

// Result is the payload of one successful generation and execution.
type Result struct {
	// GeneratedSQL is the cleaned SQL that was executed.
	GeneratedSQL string

	// Rows are the result rows, keyed by column name.
	Rows []map[string]interface{}

	// Columns are the result column names, in select order.
	Columns []string

	// RowCount is len(Rows).
	RowCount int

	// TableSchema is the schema description used for generation; it is
	// also woven into execution error messages.
	TableSchema string
}

// NewClient creates an analyst client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("Provider is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("Backend is required")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("Table is required")
	}
	return &Client{
		provider:    cfg.Provider,
		backend:     cfg.Backend,
		table:       cfg.Table,
		events:      cfg.Events,
		schemaCache: csync.NewMap[string, string](),
	}, nil
}

// GenerateAndExecute turns the enhanced question into SQL and runs it.
// Failures are returned as *Error; the generated SQL itself is never
// cached between calls.
func (c *Client) GenerateAndExecute(ctx context.Context, enhancedQuery string) (*Result, error) {
	schema := c.tableSchema(ctx)

	prompt := buildPrompt(enhancedQuery, c.table, schema)
	raw, err := c.provider.Complete(ctx, prompt)
	if err != nil {
		return nil, &Error{
			Kind:    KindUnreachable,
			Message: fmt.Sprintf("SQL generation failed: %v", err),
			Err:     err,
		}
	}

	cleaned := CleanSQL(raw)
	if cleaned == "" {
		return nil, &Error{
			Kind:    KindEmptyResponse,
			Message: "generation service returned an empty response",
		}
	}
	c.events.Event(ctx, observability.StepSQLGenerated, observability.LevelInfo,
		zap.String(observability.FieldGeneratedSQL, cleaned))

	result, err := c.backend.ExecuteQuery(ctx, cleaned)
	if err != nil {
		if isUnknownColumn(err) {
			// The cached description may be stale; refetch on the next
			// request.
			c.schemaCache.Delete(c.table)
		}
		return nil, c.executionError(err, cleaned, schema)
	}
	c.events.Event(ctx, observability.StepSQLExecuted, observability.LevelInfo,
		zap.Int(observability.FieldRowCount, result.RowCount))

	return &Result{
		GeneratedSQL: cleaned,
		Rows:         result.Rows,
		Columns:      result.Columns,
		RowCount:     result.RowCount,
		TableSchema:  schema,
	}, nil
}

// Table returns the configured warehouse table.
func (c *Client) Table() string {
	return c.table
}

// tableSchema returns the text description of the configured table,
// fetching it from the backend on first use. A failed fetch degrades to a
// placeholder and is not cached, so the next request retries.
func (c *Client) tableSchema(ctx context.Context) string {
	if described, ok := c.schemaCache.Get(c.table); ok {
		return described
	}

	schema, err := c.backend.GetSchema(ctx, c.table)
	if err != nil {
		c.events.Event(ctx, observability.StepSchemaFetch, observability.LevelWarning,
			zap.String(observability.FieldError, err.Error()))
		return fmt.Sprintf("%s (unable to retrieve schema: %v)", c.table, err)
	}

	described := schema.Describe()
	c.schemaCache.Set(c.table, described)
	c.events.Event(ctx, observability.StepSchemaFetch, observability.LevelInfo,
		zap.Int("column_count", len(schema.Fields)))
	return described
}

// executionError wraps a downstream failure. Unknown-column failures carry
// the generated SQL and the schema description so the caller can see which
// column the model invented.
func (c *Client) executionError(err error, generatedSQL, schema string) *Error {
	if isUnknownColumn(err) {
		return &Error{
			Kind: KindExecution,
			Message: fmt.Sprintf(
				"column name error: %v\n\nGenerated SQL:\n%s\n\nAvailable columns in %s:\n%s",
				err, generatedSQL, c.table, schema),
			Err: err,
		}
	}
	return &Error{
		Kind:    KindExecution,
		Message: fmt.Sprintf("execution failed: %v", err),
		Err:     err,
	}
}

// CleanSQL normalizes raw model output into executable SQL: code-fence and
// backtick markers and statement terminators are stripped.
func CleanSQL(raw string) string {
	cleaned := strings.TrimSpace(raw)
	for _, marker := range []string{"```sql", "```", ";"} {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	return strings.TrimSpace(cleaned)
}

// isUnknownColumn reports whether the execution failure is the
// unknown-column class, across the dialects the backends speak.
func isUnknownColumn(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid identifier") ||
		strings.Contains(msg, "unknown column") ||
		strings.Contains(msg, "does not exist")
}

func buildPrompt(enhancedQuery, table, schema string) string {
	var b strings.Builder
	b.WriteString("You are a SQL expert. Generate ONLY valid SQL - no explanations or markdown.\n\n")
	fmt.Fprintf(&b, "TABLE: %s\n\n", table)
	fmt.Fprintf(&b, "AVAILABLE COLUMNS (USE THESE EXACT NAMES):\n%s\n\n", schema)
	b.WriteString("RULES:\n")
	b.WriteString("1. Use ONLY the column names listed above - no other columns exist\n")
	fmt.Fprintf(&b, "2. The table name is %s\n", table)
	b.WriteString("3. Output ONLY the SQL query - no markdown code blocks, no explanations\n\n")
	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", enhancedQuery)
	b.WriteString("Based on the available columns above, generate the SQL query:\n")
	return b.String()
}
