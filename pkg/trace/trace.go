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
// Package trace generates and propagates per-request trace identifiers.
//
// A trace identifier correlates all log events and the single metrics entry
// produced for one request. The identifier travels on the request's
// context.Context, never in package-level state, so concurrent requests
// can never observe or overwrite each other's identifier.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// IDLength is the number of characters in a trace identifier.
const IDLength = 8

type contextKey string

const traceIDKey contextKey = "edw.trace_id"

// NewID generates a fresh trace identifier: the first 8 characters of a
// v4 UUID. Short enough to paste into a log search, random enough to be
// unique across a process's concurrent requests.
func NewID() string {
	return uuid.New().String()[:IDLength]
}

// WithID returns a context carrying the given trace identifier.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// FromContext retrieves the trace identifier bound to the context.
// Returns false if no identifier is bound.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
