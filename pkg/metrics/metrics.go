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
// Package metrics keeps a bounded, in-memory record of completed requests,
// keyed by trace identifier. The window holds the N most recent requests
// (oldest evicted first) alongside a per-status tally so summary statistics
// are O(1). Nothing here is persisted across restarts.
package metrics

import "time"

// Status is the terminal state of a request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryMetrics is the record of one completed request. It is created exactly
// once, at the end of the request's lifecycle, and is immutable afterwards.
type QueryMetrics struct {
	TraceID        string `json:"trace_id"`
	Timestamp      string `json:"timestamp"`
	UserQuery      string `json:"user_query"`
	EnhancedQuery  string `json:"enhanced_query"`
	GeneratedSQL   string `json:"generated_sql"`
	Status         Status `json:"status"`
	ErrorMessage   string `json:"error_message,omitempty"`
	TotalLatencyMS int64  `json:"total_latency_ms"`
	RowCount       int    `json:"row_count"`
}

// Summary aggregates the current window.
type Summary struct {
	Total        int     `json:"total"`
	Success      int     `json:"success"`
	Error        int     `json:"error"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMS int64   `json:"avg_latency_ms"`
}

// NowTimestamp formats the current UTC time the way QueryMetrics.Timestamp
// expects it.
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
