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
// Package orchestrator composes one request lifecycle: enhance the
// question, invoke the generation/execution collaborator, record metrics,
// and return the result. Success and failure take the same path through
// metrics: exactly one QueryMetrics entry is recorded per run, on every
// exit, before any error propagates to the caller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edw-labs/edw-assistant/pkg/analyst"
	"github.com/edw-labs/edw-assistant/pkg/enhancer"
	"github.com/edw-labs/edw-assistant/pkg/metrics"
	"github.com/edw-labs/edw-assistant/pkg/observability"
	"github.com/edw-labs/edw-assistant/pkg/trace"
)

// ErrEmptyQuery rejects a question that is empty after trimming. This is a
// caller-input validation error: the pipeline never starts and no metrics
// entry is recorded.
var ErrEmptyQuery = errors.New("query cannot be empty")

// GenerationClient is the generation-and-execution collaborator contract.
// *analyst.Client satisfies it; tests substitute stubs.
type GenerationClient interface {
	GenerateAndExecute(ctx context.Context, enhancedQuery string) (*analyst.Result, error)
}

// Result is the payload returned to the caller for a successful run.
type Result struct {
	TraceID       string                   `json:"trace_id"`
	EnhancedQuery string                   `json:"enhanced_query"`
	GeneratedSQL  string                   `json:"generated_sql"`
	Rows          []map[string]interface{} `json:"rows"`
	Columns       []string                 `json:"columns"`
	RowCount      int                      `json:"row_count"`
}

// Orchestrator drives the request pipeline. The metrics store is injected,
// never looked up globally, so lifetimes are explicit and tests run in
// isolation.
type Orchestrator struct {
	client GenerationClient
	store  *metrics.Store
	events *observability.EventLogger
	now    func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source, used by tests for a fixed
// enhancement reference date.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an orchestrator over the given collaborator, metrics store,
// and event logger.
func New(client GenerationClient, store *metrics.Store, events *observability.EventLogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		store:  store,
		events: events,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one request: validate, bind the trace identifier, enhance,
// generate and execute, record metrics, return. Every failure past
// validation is logged as one ERROR event, captured in exactly one metrics
// entry, and returned to the caller unchanged in substance.
func (o *Orchestrator) Run(ctx context.Context, userQuery string) (result *Result, err error) {
	if strings.TrimSpace(userQuery) == "" {
		return nil, ErrEmptyQuery
	}

	traceID, ok := trace.FromContext(ctx)
	if !ok {
		traceID = trace.NewID()
		ctx = trace.WithID(ctx, traceID)
	}

	start := o.now()
	var (
		enhanced     string
		generatedSQL string
		rowCount     int
	)

	// The pipeline's most important guarantee: one metrics entry per run,
	// recorded before any failure propagates. A panic downstream is
	// recovered into the error so even that path records.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected pipeline failure: %v", r)
			result = nil
		}

		m := metrics.QueryMetrics{
			TraceID:        traceID,
			Timestamp:      metrics.NowTimestamp(),
			UserQuery:      userQuery,
			EnhancedQuery:  enhanced,
			GeneratedSQL:   generatedSQL,
			Status:         metrics.StatusSuccess,
			TotalLatencyMS: o.now().Sub(start).Milliseconds(),
			RowCount:       rowCount,
		}
		if err != nil {
			o.events.Event(ctx, observability.StepQueryError, observability.LevelError,
				zap.String(observability.FieldError, err.Error()),
				zap.String(observability.FieldErrorKind, errorKind(err)))
			m.Status = metrics.StatusError
			m.ErrorMessage = err.Error()
			m.RowCount = 0
		}
		o.store.Record(m)
	}()

	o.events.Event(ctx, observability.StepQueryStart, observability.LevelInfo,
		zap.String(observability.FieldUserQuery, userQuery))

	enhanceTimer := o.events.StartTimer(ctx, observability.StepQueryEnhance)
	enhanced = enhancer.Enhance(userQuery, o.now())
	enhanceTimer.Stop(ctx)

	o.events.Event(ctx, observability.StepEnhanced, observability.LevelInfo,
		zap.String(observability.FieldEnhancedQuery, enhanced))

	generateTimer := o.events.StartTimer(ctx, observability.StepGenerateExecute)
	genResult, genErr := o.client.GenerateAndExecute(ctx, enhanced)
	generateTimer.Stop(ctx)
	if genErr != nil {
		return nil, genErr
	}

	generatedSQL = genResult.GeneratedSQL
	rowCount = genResult.RowCount

	o.events.Event(ctx, observability.StepQuerySuccess, observability.LevelInfo,
		zap.Int(observability.FieldRowCount, rowCount))

	return &Result{
		TraceID:       traceID,
		EnhancedQuery: enhanced,
		GeneratedSQL:  generatedSQL,
		Rows:          genResult.Rows,
		Columns:       genResult.Columns,
		RowCount:      rowCount,
	}, nil
}

// errorKind labels the failure class for the query_error event.
func errorKind(err error) string {
	if kind := analyst.KindOf(err); kind != "" {
		return string(kind)
	}
	return "unexpected"
}
