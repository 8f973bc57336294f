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
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edw-labs/edw-assistant/internal/log"
	"github.com/edw-labs/edw-assistant/pkg/analyst"
	"github.com/edw-labs/edw-assistant/pkg/fabric"
	"github.com/edw-labs/edw-assistant/pkg/llm/anthropic"
	"github.com/edw-labs/edw-assistant/pkg/metrics"
	"github.com/edw-labs/edw-assistant/pkg/observability"
	"github.com/edw-labs/edw-assistant/pkg/orchestrator"
)

// pipeline bundles the wired components a command needs.
type pipeline struct {
	orchestrator *orchestrator.Orchestrator
	store        *metrics.Store
	backend      fabric.ExecutionBackend
}

func (p *pipeline) Close() error {
	return p.backend.Close()
}

// initProcessLogger installs the process-level zap logger at the configured
// level. Pipeline events use their own encoder and are unaffected.
func initProcessLogger(cfg LoggingConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	log.SetLogger(logger)
	return nil
}

// buildPipeline wires the provider, backend, analyst client, metrics store,
// and orchestrator from config. The caller owns the returned pipeline and
// must Close it.
func buildPipeline(ctx context.Context, cfg *Config) (*pipeline, error) {
	if cfg.Warehouse.DSN == "" {
		return nil, fmt.Errorf("warehouse DSN is required (--db-dsn or warehouse.dsn)")
	}

	if cfg.LLM.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (--anthropic-key or ANTHROPIC_API_KEY)")
	}

	provider := anthropic.NewClient(anthropic.Config{
		APIKey:      cfg.LLM.AnthropicAPIKey,
		Model:       cfg.LLM.AnthropicModel,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	backend, err := fabric.NewSQLBackend(ctx, fabric.SQLConfig{
		Driver:       cfg.Warehouse.Driver,
		DSN:          cfg.Warehouse.DSN,
		MaxOpenConns: cfg.Warehouse.MaxOpenConns,
		MaxIdleConns: cfg.Warehouse.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	events := observability.NewEventLogger(observability.NewPipelineLogger())

	client, err := analyst.NewClient(analyst.Config{
		Provider: provider,
		Backend:  backend,
		Table:    cfg.Warehouse.Table,
		Events:   events,
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to create analyst client: %w", err)
	}

	store := metrics.NewStore(cfg.Metrics.Window)

	return &pipeline{
		orchestrator: orchestrator.New(client, store, events),
		store:        store,
		backend:      backend,
	}, nil
}
