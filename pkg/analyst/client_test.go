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
package analyst

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edw-labs/edw-assistant/pkg/fabric"
)

type fakeProvider struct {
	response string
	err      error
	prompts  []string
}

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-model" }

func (p *fakeProvider) Complete(_ context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

type fakeBackend struct {
	result      *fabric.QueryResult
	execErr     error
	schema      *fabric.Schema
	schemaErr   error
	executed    []string
	schemaCalls int
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) ExecuteQuery(_ context.Context, query string) (*fabric.QueryResult, error) {
	b.executed = append(b.executed, query)
	if b.execErr != nil {
		return nil, b.execErr
	}
	return b.result, nil
}

func (b *fakeBackend) GetSchema(_ context.Context, table string) (*fabric.Schema, error) {
	b.schemaCalls++
	if b.schemaErr != nil {
		return nil, b.schemaErr
	}
	return b.schema, nil
}

func (b *fakeBackend) Ping(context.Context) error { return nil }
func (b *fakeBackend) Close() error               { return nil }

func telemetrySchema() *fabric.Schema {
	return &fabric.Schema{
		Name: "iot_telemetry",
		Fields: []fabric.Field{
			{Name: "device_id", Type: "text"},
			{Name: "reading", Type: "numeric", Nullable: true},
		},
	}
}

func newTestClient(t *testing.T, provider *fakeProvider, backend *fakeBackend) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Provider: provider,
		Backend:  backend,
		Table:    "iot_telemetry",
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{Backend: &fakeBackend{}, Table: "t"})
	assert.Error(t, err)

	_, err = NewClient(Config{Provider: &fakeProvider{}, Table: "t"})
	assert.Error(t, err)

	_, err = NewClient(Config{Provider: &fakeProvider{}, Backend: &fakeBackend{}})
	assert.Error(t, err)
}

func TestGenerateAndExecute_Success(t *testing.T) {
	provider := &fakeProvider{response: "```sql\nSELECT device_id FROM iot_telemetry;\n```"}
	backend := &fakeBackend{
		schema: telemetrySchema(),
		result: &fabric.QueryResult{
			Rows:     []map[string]interface{}{{"device_id": "d1"}},
			Columns:  []string{"device_id"},
			RowCount: 1,
		},
	}

	client := newTestClient(t, provider, backend)
	result, err := client.GenerateAndExecute(context.Background(), "show devices")
	require.NoError(t, err)

	assert.Equal(t, "SELECT device_id FROM iot_telemetry", result.GeneratedSQL)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, []string{"device_id"}, result.Columns)
	assert.Contains(t, result.TableSchema, "device_id")

	// The executed SQL is the cleaned one.
	require.Len(t, backend.executed, 1)
	assert.Equal(t, "SELECT device_id FROM iot_telemetry", backend.executed[0])

	// Prompt carries the enhanced question and the schema.
	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "show devices")
	assert.Contains(t, provider.prompts[0], "device_id (text, NOT NULL)")
}

func TestGenerateAndExecute_ProviderUnreachable(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	backend := &fakeBackend{schema: telemetrySchema()}

	client := newTestClient(t, provider, backend)
	_, err := client.GenerateAndExecute(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, KindUnreachable, KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, backend.executed, "nothing must execute when generation fails")
}

func TestGenerateAndExecute_EmptyGeneration(t *testing.T) {
	provider := &fakeProvider{response: "```sql\n;\n```"}
	backend := &fakeBackend{schema: telemetrySchema()}

	client := newTestClient(t, provider, backend)
	_, err := client.GenerateAndExecute(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, KindEmptyResponse, KindOf(err))
	assert.Empty(t, backend.executed)
}

func TestGenerateAndExecute_UnknownColumnEnrichment(t *testing.T) {
	provider := &fakeProvider{response: "SELECT bogus FROM iot_telemetry"}
	execErr := errors.New(`column "bogus" does not exist`)
	backend := &fakeBackend{schema: telemetrySchema(), execErr: execErr}

	client := newTestClient(t, provider, backend)
	_, err := client.GenerateAndExecute(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, KindExecution, KindOf(err))
	assert.ErrorIs(t, err, execErr)

	// The message carries the generated SQL and the real columns.
	assert.Contains(t, err.Error(), "SELECT bogus FROM iot_telemetry")
	assert.Contains(t, err.Error(), "device_id")
	assert.Contains(t, err.Error(), "reading")
}

func TestGenerateAndExecute_ExecutionErrorPlain(t *testing.T) {
	provider := &fakeProvider{response: "SELECT device_id FROM iot_telemetry"}
	backend := &fakeBackend{schema: telemetrySchema(), execErr: errors.New("deadlock detected")}

	client := newTestClient(t, provider, backend)
	_, err := client.GenerateAndExecute(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, KindExecution, KindOf(err))
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.NotContains(t, err.Error(), "Available columns")
}

func TestGenerateAndExecute_SchemaFetchDegrades(t *testing.T) {
	provider := &fakeProvider{response: "SELECT 1"}
	backend := &fakeBackend{
		schemaErr: errors.New("permission denied"),
		result:    &fabric.QueryResult{Columns: []string{"?column?"}, RowCount: 0},
	}

	client := newTestClient(t, provider, backend)
	result, err := client.GenerateAndExecute(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, result.TableSchema, "unable to retrieve schema")

	// Failed fetches are not cached: the next call retries.
	_, err = client.GenerateAndExecute(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.schemaCalls)
}

func TestGenerateAndExecute_SchemaCached(t *testing.T) {
	provider := &fakeProvider{response: "SELECT 1"}
	backend := &fakeBackend{
		schema: telemetrySchema(),
		result: &fabric.QueryResult{RowCount: 0},
	}

	client := newTestClient(t, provider, backend)
	for i := 0; i < 3; i++ {
		_, err := client.GenerateAndExecute(context.Background(), "q")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.schemaCalls, "schema is fetched once and reused")
}

func TestGenerateAndExecute_UnknownColumnInvalidatesSchemaCache(t *testing.T) {
	provider := &fakeProvider{response: "SELECT ghost FROM iot_telemetry"}
	backend := &fakeBackend{schema: telemetrySchema()}

	client := newTestClient(t, provider, backend)

	backend.execErr = errors.New(`ERROR: column "ghost" does not exist`)
	_, err := client.GenerateAndExecute(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 1, backend.schemaCalls)

	// The column error means the cached description may be stale, so the
	// next request fetches the schema again.
	backend.execErr = nil
	backend.result = &fabric.QueryResult{RowCount: 0}
	_, err = client.GenerateAndExecute(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.schemaCalls)

	// A plain execution failure keeps the cache.
	backend.execErr = errors.New("connection reset")
	_, err = client.GenerateAndExecute(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 2, backend.schemaCalls)
}

func TestCleanSQL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"```sql\nSELECT 1;\n```", "SELECT 1"},
		{"SELECT 1;", "SELECT 1"},
		{"  SELECT a FROM t  ", "SELECT a FROM t"},
		{"```\nSELECT a FROM t\n```", "SELECT a FROM t"},
		{"SELECT a FROM t; SELECT 1;", "SELECT a FROM t SELECT 1"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanSQL(tc.raw), "raw %q", tc.raw)
	}
}
