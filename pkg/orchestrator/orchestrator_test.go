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
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edw-labs/edw-assistant/pkg/analyst"
	"github.com/edw-labs/edw-assistant/pkg/metrics"
	"github.com/edw-labs/edw-assistant/pkg/observability"
	"github.com/edw-labs/edw-assistant/pkg/trace"
)

type stubClient struct {
	mu       sync.Mutex
	calls    []string
	result   *analyst.Result
	err      error
	panicMsg string
}

func (s *stubClient) GenerateAndExecute(_ context.Context, enhancedQuery string) (*analyst.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, enhancedQuery)
	s.mu.Unlock()
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestOrchestrator(client GenerationClient) (*Orchestrator, *metrics.Store, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	events := observability.NewEventLogger(zap.New(core))
	store := metrics.NewStore(metrics.DefaultCapacity)
	fixed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	o := New(client, store, events, WithClock(func() time.Time { return fixed }))
	return o, store, logs
}

func TestRunSuccess(t *testing.T) {
	client := &stubClient{
		result: &analyst.Result{
			GeneratedSQL: "SELECT AVG(quantity) FROM orders",
			Rows:         []map[string]interface{}{{"avg": 42.5}},
			Columns:      []string{"avg"},
			RowCount:     1,
		},
	}
	o, store, logs := newTestOrchestrator(client)

	result, err := o.Run(context.Background(), "What is the avg qty last week?")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Len(t, result.TraceID, trace.IDLength)
	assert.Equal(t, "what is the average quantity last week?. Assume current date is 2024-01-15.", result.EnhancedQuery)
	assert.Equal(t, "SELECT AVG(quantity) FROM orders", result.GeneratedSQL)
	assert.Equal(t, 1, result.RowCount)

	require.Equal(t, []string{result.EnhancedQuery}, client.calls)

	recent := store.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, result.TraceID, recent[0].TraceID)
	assert.Equal(t, metrics.StatusSuccess, recent[0].Status)
	assert.Equal(t, "What is the avg qty last week?", recent[0].UserQuery)
	assert.Equal(t, result.EnhancedQuery, recent[0].EnhancedQuery)
	assert.Equal(t, result.GeneratedSQL, recent[0].GeneratedSQL)
	assert.Equal(t, 1, recent[0].RowCount)
	assert.Empty(t, recent[0].ErrorMessage)

	steps := loggedSteps(logs)
	assert.Equal(t, []string{
		observability.StepQueryStart,
		observability.StepQueryEnhance + "_completed",
		observability.StepEnhanced,
		observability.StepGenerateExecute + "_completed",
		observability.StepQuerySuccess,
	}, steps)
}

func TestRunEmptyQuery(t *testing.T) {
	client := &stubClient{}
	o, store, logs := newTestOrchestrator(client)

	for _, q := range []string{"", "   ", "\t\n"} {
		result, err := o.Run(context.Background(), q)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}

	assert.Equal(t, 0, client.callCount())
	assert.Empty(t, store.Recent(0))
	assert.Equal(t, 0, logs.Len())
}

func TestRunGenerationError(t *testing.T) {
	genErr := &analyst.Error{Kind: analyst.KindUnreachable, Message: "SQL generation failed: connection refused"}
	client := &stubClient{err: genErr}
	o, store, logs := newTestOrchestrator(client)

	result, err := o.Run(context.Background(), "show revenue by region")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, genErr)

	recent := store.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, metrics.StatusError, recent[0].Status)
	assert.Equal(t, genErr.Error(), recent[0].ErrorMessage)
	assert.Equal(t, 0, recent[0].RowCount)
	assert.Empty(t, recent[0].GeneratedSQL)

	errEvents := logs.FilterField(zap.String("step", observability.StepQueryError)).All()
	require.Len(t, errEvents, 1)
	fields := errEvents[0].ContextMap()
	assert.Equal(t, genErr.Error(), fields[observability.FieldError])
	assert.Equal(t, string(analyst.KindUnreachable), fields[observability.FieldErrorKind])
}

func TestRunPanicRecovery(t *testing.T) {
	client := &stubClient{panicMsg: "backend exploded"}
	o, store, logs := newTestOrchestrator(client)

	result, err := o.Run(context.Background(), "show revenue")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend exploded")

	recent := store.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, metrics.StatusError, recent[0].Status)
	assert.Contains(t, recent[0].ErrorMessage, "backend exploded")

	errEvents := logs.FilterField(zap.String("step", observability.StepQueryError)).All()
	require.Len(t, errEvents, 1)
	assert.Equal(t, "unexpected", errEvents[0].ContextMap()[observability.FieldErrorKind])
}

func TestRunLatencyFromClock(t *testing.T) {
	client := &stubClient{result: &analyst.Result{GeneratedSQL: "SELECT 1", RowCount: 1}}

	core, _ := observer.New(zap.DebugLevel)
	events := observability.NewEventLogger(zap.New(core))
	store := metrics.NewStore(metrics.DefaultCapacity)

	// Each reading advances 100ms: pipeline entry, enhancement reference
	// date, and the finalization step. Recorded latency must come from this
	// clock, not the wall clock.
	current := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	o := New(client, store, events, WithClock(func() time.Time {
		now := current
		current = current.Add(100 * time.Millisecond)
		return now
	}))

	_, err := o.Run(context.Background(), "show revenue")
	require.NoError(t, err)

	recent := store.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(200), recent[0].TotalLatencyMS)
}

func TestRunReusesBoundTraceID(t *testing.T) {
	client := &stubClient{result: &analyst.Result{GeneratedSQL: "SELECT 1", RowCount: 0}}
	o, store, _ := newTestOrchestrator(client)

	ctx := trace.WithID(context.Background(), "abc12345")
	result, err := o.Run(ctx, "show revenue")
	require.NoError(t, err)
	assert.Equal(t, "abc12345", result.TraceID)

	recent := store.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "abc12345", recent[0].TraceID)
}

func TestRunConcurrentPipelines(t *testing.T) {
	const n = 40
	client := &stubClient{result: &analyst.Result{GeneratedSQL: "SELECT 1", RowCount: 1}}
	o, store, _ := newTestOrchestrator(client)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := o.Run(context.Background(), fmt.Sprintf("show revenue for region %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	summary := store.Summary()
	assert.Equal(t, n, summary.Total)
	assert.Equal(t, n, summary.Success)
	assert.Equal(t, 0, summary.Error)

	seen := make(map[string]bool)
	for _, m := range store.Recent(0) {
		assert.False(t, seen[m.TraceID], "trace id %s recorded twice", m.TraceID)
		seen[m.TraceID] = true
	}
	assert.Len(t, seen, n)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "execution", errorKind(&analyst.Error{Kind: analyst.KindExecution, Message: "boom"}))
	assert.Equal(t, "unexpected", errorKind(errors.New("boom")))
}

func loggedSteps(logs *observer.ObservedLogs) []string {
	var steps []string
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			if f.Key == "step" {
				steps = append(steps, f.String)
			}
		}
	}
	return steps
}
