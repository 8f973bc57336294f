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
// Package observability instruments the request pipeline: every pipeline
// stage emits timestamped JSON events carrying the active trace identifier,
// and timed stages report their elapsed milliseconds on every exit path.
//
// Logging here is fire-and-forget. An event that cannot be emitted is
// dropped; it is never allowed to fail the request that produced it.
package observability

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edw-labs/edw-assistant/pkg/trace"
)

// Level is the severity of a log event.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// TraceIDUnbound is logged as the trace_id when no identifier is bound to
// the event's context.
const TraceIDUnbound = "none"

// EventLogger emits one structured JSON record per pipeline event. Each
// record carries an epoch-seconds timestamp, the active trace identifier,
// the step name, the level, and any caller-supplied fields.
type EventLogger struct {
	log *zap.Logger
}

// NewEventLogger wraps a zap logger. A nil logger yields a logger that
// drops every event, which keeps call sites unconditional.
func NewEventLogger(log *zap.Logger) *EventLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventLogger{log: log}
}

// NewPipelineLogger builds a zap logger whose JSON output matches the
// pipeline's event contract: "timestamp" as float seconds, "level" spelled
// INFO/WARNING/ERROR, and the step name as the message.
func NewPipelineLogger() *zap.Logger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeTime:     zapcore.EpochTimeEncoder,
		EncodeLevel:    eventLevelEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)
	return zap.New(core)
}

// eventLevelEncoder spells severities the way the event contract does:
// INFO, WARNING, ERROR.
func eventLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.ErrorLevel:
		enc.AppendString("ERROR")
	default:
		enc.AppendString("INFO")
	}
}

// Event emits one structured record for the given step. The trace identifier
// is read from ctx; "none" is logged when unbound. Event never returns an
// error and never panics.
func (l *EventLogger) Event(ctx context.Context, step string, level Level, fields ...zap.Field) {
	if l == nil || l.log == nil {
		return
	}

	traceID := TraceIDUnbound
	if id, ok := trace.FromContext(ctx); ok {
		traceID = id
	}

	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.String("trace_id", traceID), zap.String("step", step))
	all = append(all, fields...)

	switch level {
	case LevelError:
		l.log.Error(step, all...)
	case LevelWarning:
		l.log.Warn(step, all...)
	default:
		l.log.Info(step, all...)
	}
}
