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

// Package server exposes the query pipeline over HTTP/REST.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edw-labs/edw-assistant/pkg/analyst"
	"github.com/edw-labs/edw-assistant/pkg/metrics"
	"github.com/edw-labs/edw-assistant/pkg/orchestrator"
	"github.com/edw-labs/edw-assistant/pkg/trace"
)

// TraceIDHeader lets a caller pre-bind the trace identifier for a request.
// The chosen identifier is echoed back on every /v1/query response.
const TraceIDHeader = "X-Trace-Id"

// DefaultRecentLimit is how many entries /v1/metrics/recent returns when no
// limit parameter is given. Pass limit=0 for the entire window.
const DefaultRecentLimit = 10

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Enabled        bool
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// DefaultCORSConfig returns a permissive CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", TraceIDHeader},
		MaxAge:         86400, // 24 hours
	}
}

// HTTPServer serves the query, metrics, and trace endpoints.
type HTTPServer struct {
	pipeline   *orchestrator.Orchestrator
	store      *metrics.Store
	logger     *zap.Logger
	corsConfig CORSConfig
	httpServer *http.Server
}

// NewHTTPServer creates an HTTP server over the pipeline and metrics store.
func NewHTTPServer(pipeline *orchestrator.Orchestrator, store *metrics.Store, addr string, logger *zap.Logger) *HTTPServer {
	return NewHTTPServerWithCORS(pipeline, store, addr, logger, DefaultCORSConfig())
}

// NewHTTPServerWithCORS creates an HTTP server with custom CORS configuration.
func NewHTTPServerWithCORS(pipeline *orchestrator.Orchestrator, store *metrics.Store, addr string, logger *zap.Logger, corsConfig CORSConfig) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPServer{
		pipeline:   pipeline,
		store:      store,
		logger:     logger,
		corsConfig: corsConfig,
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // generation plus execution can be slow
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Handler builds the route table. Exposed so tests can drive the server
// through httptest without binding a port.
func (h *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/v1/query", h.handleQuery)
	mux.HandleFunc("/v1/metrics/summary", h.handleMetricsSummary)
	mux.HandleFunc("/v1/metrics/recent", h.handleMetricsRecent)
	mux.HandleFunc("/v1/traces", h.handleTraces)
	mux.HandleFunc("/v1/traces/", h.handleTraceByID)

	var handler http.Handler = mux
	if h.corsConfig.Enabled {
		handler = h.corsMiddleware(mux)
	}
	return handler
}

// Start starts the HTTP server and blocks until it stops.
func (h *HTTPServer) Start(_ context.Context) error {
	h.httpServer.Handler = h.Handler()

	h.logger.Info("Starting HTTP server", zap.String("addr", h.httpServer.Addr))
	if err := h.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP server")
	return h.httpServer.Shutdown(ctx)
}

type queryRequest struct {
	Query string `json:"query"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func (h *HTTPServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "", "")
		return
	}

	ctx := r.Context()
	traceID := strings.TrimSpace(r.Header.Get(TraceIDHeader))
	if traceID != "" {
		ctx = trace.WithID(ctx, traceID)
	}

	result, err := h.pipeline.Run(ctx, req.Query)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyQuery) {
			h.writeError(w, http.StatusBadRequest, err.Error(), "", "")
			return
		}
		h.writeError(w, http.StatusBadGateway, err.Error(), string(analyst.KindOf(err)), traceID)
		return
	}

	w.Header().Set(TraceIDHeader, result.TraceID)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *HTTPServer) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "")
		return
	}
	h.writeJSON(w, http.StatusOK, h.store.Summary())
}

func (h *HTTPServer) handleMetricsRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "")
		return
	}

	limit := DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", "", "")
			return
		}
		limit = n
	}

	entries := h.store.Recent(limit)
	if entries == nil {
		entries = []metrics.QueryMetrics{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *HTTPServer) handleTraces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "")
		return
	}

	ids := h.store.AllTraceIDs()
	if ids == nil {
		ids = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trace_ids": ids,
		"count":     len(ids),
	})
}

func (h *HTTPServer) handleTraceByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", "")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/traces/")
	if id == "" || strings.Contains(id, "/") {
		h.writeError(w, http.StatusNotFound, "trace not found", "", "")
		return
	}

	entry, ok := h.store.ByTraceID(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("trace %s not found", id), "", "")
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, msg, kind, traceID string) {
	h.writeJSON(w, status, errorResponse{Error: msg, Kind: kind, TraceID: traceID})
}

// corsMiddleware adds CORS headers to HTTP responses.
func (h *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowedOrigin := h.getAllowedOrigin(origin)
		if allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		}

		if len(h.corsConfig.AllowedMethods) > 0 {
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(h.corsConfig.AllowedMethods, ", "))
		}
		if len(h.corsConfig.AllowedHeaders) > 0 {
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(h.corsConfig.AllowedHeaders, ", "))
		}
		if h.corsConfig.MaxAge > 0 {
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(h.corsConfig.MaxAge))
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *HTTPServer) getAllowedOrigin(origin string) string {
	for _, allowed := range h.corsConfig.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if allowed == origin {
			return origin
		}
	}
	return ""
}
