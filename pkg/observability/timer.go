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
package observability

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Timer measures one pipeline stage. Stop emits a single
// "{step}_completed" event with the elapsed milliseconds; call it via defer
// so the measurement is reported on every exit path, including failures.
//
//	t := events.StartTimer(ctx, StepGenerateExecute)
//	defer t.Stop(ctx)
type Timer struct {
	step   string
	start  time.Time
	events *EventLogger
}

// StartTimer acquires a start timestamp for the named step.
func (l *EventLogger) StartTimer(_ context.Context, step string) *Timer {
	return &Timer{
		step:   step,
		start:  time.Now(),
		events: l,
	}
}

// Stop computes the elapsed time and emits the completion event. Safe to
// call on a nil Timer.
func (t *Timer) Stop(ctx context.Context) {
	if t == nil {
		return
	}
	latencyMS := time.Since(t.start).Milliseconds()
	t.events.Event(ctx, t.step+"_completed", LevelInfo, zap.Int64(FieldLatencyMS, latencyMS))
}
