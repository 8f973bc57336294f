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
package metrics

import (
	"math"
	"sync"
)

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 100

// Store is the one piece of state shared across concurrently executing
// pipelines. Every mutation runs under the mutex; insertion and the eviction
// it may trigger are a single atomic unit, so the tally can never drift from
// the window's contents. Reads return copies.
//
// Construct a Store explicitly and inject it; there is no package-level
// instance.
type Store struct {
	mu       sync.RWMutex
	capacity int
	entries  []QueryMetrics
	tally    map[Status]int
}

// NewStore creates a store retaining at most capacity entries. A
// non-positive capacity falls back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		entries:  make([]QueryMetrics, 0, capacity),
		tally:    make(map[Status]int),
	}
}

// Capacity returns the configured window size.
func (s *Store) Capacity() int {
	return s.capacity
}

// Record appends one completed request to the window, evicting the oldest
// entry when the window is full. The per-status tally is updated in the
// same critical section.
func (s *Store) Record(m QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, m)
	s.tally[m.Status]++

	if len(s.entries) > s.capacity {
		evicted := s.entries[0]
		s.entries = s.entries[1:]
		s.tally[evicted.Status]--
	}
}

// Recent returns up to limit entries, most recent first. A non-positive
// limit returns the entire window.
func (s *Store) Recent(limit int) []QueryMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	out := make([]QueryMetrics, 0, limit)
	for i := len(s.entries) - 1; i >= len(s.entries)-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// Summary computes aggregate statistics over the current window. The success
// rate is a percentage rounded to one decimal place; the mean latency is
// integer-truncated. Both are 0 for an empty window.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.entries)
	success := s.tally[StatusSuccess]
	errCount := s.tally[StatusError]

	var successRate float64
	var avgLatency int64
	if total > 0 {
		successRate = math.Round(float64(success)/float64(total)*1000) / 10
		var totalLatency int64
		for _, m := range s.entries {
			totalLatency += m.TotalLatencyMS
		}
		avgLatency = totalLatency / int64(total)
	}

	return Summary{
		Total:        total,
		Success:      success,
		Error:        errCount,
		SuccessRate:  successRate,
		AvgLatencyMS: avgLatency,
	}
}

// ByTraceID looks up a retained entry by its trace identifier. The second
// return value is false when the identifier was evicted or never recorded;
// lookup misses are not errors.
func (s *Store) ByTraceID(id string) (QueryMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.entries {
		if m.TraceID == id {
			return m, true
		}
	}
	return QueryMetrics{}, false
}

// AllTraceIDs returns the identifiers currently retained, oldest first.
func (s *Store) AllTraceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.entries))
	for i, m := range s.entries {
		ids[i] = m.TraceID
	}
	return ids
}
