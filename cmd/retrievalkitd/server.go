// Package main runs retrievalkitd, an HTTP+WebSocket service surface over
// a retrieval.Pipeline: POST /v1/query for a single request/response
// search, and GET /v1/stream for a WebSocket feed of per-stage events as
// a query moves through the pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/windlass-ai/retrievalkit/core"
	"github.com/windlass-ai/retrievalkit/internal/httputil"
	"github.com/windlass-ai/retrievalkit/retrieval"
)

// ServerConfig configures a Server's HTTP listener. Graceful shutdown grace
// period is fixed by httputil.ServerLifecycle, not configured here.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "localhost",
		Port:         8090,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Server exposes a retrieval.Pipeline over HTTP and WebSocket.
type Server struct {
	pipeline *retrieval.Pipeline
	config   ServerConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader

	router    *mux.Router
	lifecycle httputil.ServerLifecycle
}

// NewServer wires the given pipeline behind a mux.Router with a
// /v1/query and /v1/stream route.
func NewServer(pipeline *retrieval.Pipeline, opts ...ServerOption) *Server {
	cfg := defaultServerConfig()
	logger := slog.Default()
	for _, opt := range opts {
		opt(&cfg, &logger)
	}

	s := &Server{
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/query", s.handleQuery).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/stream", s.handleStream).Methods(http.MethodGet)
	return s
}

// ServerOption configures a Server at construction time.
type ServerOption func(*ServerConfig, **slog.Logger)

// WithAddr overrides the listen host and port. Defaults to localhost:8090.
func WithAddr(host string, port int) ServerOption {
	return func(c *ServerConfig, _ **slog.Logger) {
		c.Host = host
		c.Port = port
	}
}

// WithServerLogger overrides the server's logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(_ *ServerConfig, l **slog.Logger) { *l = logger }
}

// Run starts the HTTP server and blocks until ctx is canceled or the
// server fails, then shuts down gracefully. Listener start, the
// ListenAndServe goroutine, and graceful shutdown on context cancellation
// are all delegated to httputil.ServerLifecycle so this adapter does not
// duplicate that select/goroutine pattern.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("retrievalkitd.listening", "addr", addr)

	err := s.lifecycle.Serve(ctx, addr, s.router, s.config.ReadTimeout, s.config.WriteTimeout, s.config.IdleTimeout, "retrievalkitd")
	if err == ctx.Err() {
		// Graceful shutdown completed after our own caller canceled ctx;
		// that is a clean exit for this daemon, not a failure to report.
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type queryResponse struct {
	Results []retrieval.Result `json:"results"`
}

const defaultQueryTopK = 10

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultQueryTopK
	}

	results, err := s.pipeline.Execute(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "retrievalkitd.query_failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(queryResponse{Results: results})
}

// handleStream upgrades to a WebSocket connection, runs a single query,
// and emits one JSON message per stage as the pipeline's Stream method
// produces StageEvents, followed by a final {"done":true} message.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "retrievalkitd.upgrade_failed", "error", err)
		return
	}
	defer conn.Close()

	for event, err := range s.pipeline.Stream(r.Context(), query) {
		if err != nil {
			_ = conn.WriteJSON(map[string]any{"error": err.Error()})
			return
		}
		if ev, ok := event.(core.Event[retrieval.StageEvent]); ok && ev.Type == core.EventData {
			_ = conn.WriteJSON(ev.Payload)
		}
	}
	_ = conn.WriteJSON(map[string]any{"done": true})
}
