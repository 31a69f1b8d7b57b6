package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/executor"
	"github.com/aidisdev/aidis/internal/observability"
)

// HTTP serves the per-tool endpoints and the health surface on one port.
type HTTP struct {
	executor *executor.Executor
	health   *Health
	logger   *observability.Logger
	registry *prometheus.Registry

	srv *http.Server
}

// NewHTTP builds the HTTP transport. The prometheus registry backs /metrics;
// a nil registry disables the endpoint.
func NewHTTP(exec *executor.Executor, health *Health, logger *observability.Logger, promRegistry *prometheus.Registry) *HTTP {
	return &HTTP{
		executor: exec,
		health:   health,
		logger:   logger.With("component", "http"),
		registry: promRegistry,
	}
}

// Start binds the listener and serves in the background. The returned error
// covers bind failures only; serve errors are logged.
func (h *HTTP) Start(ctx context.Context, port int) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleLiveness)
	mux.HandleFunc("GET /health", h.handleLiveness)
	mux.HandleFunc("GET /livez", h.handleLiveness)
	mux.HandleFunc("GET /readyz", h.handleReadiness)
	mux.HandleFunc("GET /health/mcp", h.handleMCPHealth)
	mux.HandleFunc("GET /health/database", h.handleDatabaseHealth)
	mux.HandleFunc("GET /health/embeddings", h.handleEmbeddingsHealth)
	mux.HandleFunc("POST /mcp/tools/{name}", h.handleToolCall)
	if h.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	}

	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	h.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := h.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error(ctx, "http server stopped", "error", err)
		}
	}()
	h.logger.Info(ctx, "http server listening", "addr", ln.Addr().String())
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (h *HTTP) Shutdown(ctx context.Context) error {
	if h.srv == nil {
		return nil
	}
	return h.srv.Shutdown(ctx)
}

// handleLiveness answers 200 whenever the process is up.
func (h *HTTP) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"version":       h.health.version,
		"uptimeSeconds": int64(time.Since(h.health.startTime).Seconds()),
	})
}

// handleReadiness answers 200 only while the database is reachable and the
// breaker is not open.
func (h *HTTP) handleReadiness(w http.ResponseWriter, r *http.Request) {
	snap := h.health.Snapshot(r.Context())
	status := http.StatusOK
	state := "ready"
	database := "connected"
	if !h.health.Ready(snap) {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	if !snap.Database.Healthy {
		database = "disconnected"
	}
	writeJSON(w, status, map[string]any{
		"status":   state,
		"database": database,
		"snapshot": snap,
	})
}

func (h *HTTP) handleMCPHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.health.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        snap.Status,
		"version":       snap.Version,
		"uptimeSeconds": snap.UptimeSeconds,
		"breaker":       snap.Breaker,
	})
}

func (h *HTTP) handleDatabaseHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.health.Snapshot(r.Context())
	status := http.StatusOK
	if !snap.Database.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"database": snap.Database,
		"breaker":  snap.Breaker,
	})
}

func (h *HTTP) handleEmbeddingsHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.health.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, snap.Embedder)
}

// toolRequest is the POST body for /mcp/tools/{name}. Both argument keys
// are accepted; "arguments" wins when both are present.
type toolRequest struct {
	Arguments map[string]any `json:"arguments"`
	Args      map[string]any `json:"args"`
}

func (h *HTTP) handleToolCall(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var body toolRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeToolError(w, errs.InvalidParams("invalid JSON body: %v", err), "")
			return
		}
	}
	args := body.Arguments
	if args == nil {
		args = body.Args
	}

	callerID := r.Header.Get("X-Caller-ID")
	if callerID == "" {
		callerID = "http"
	}

	result, correlationID, err := h.executor.Execute(r.Context(), executor.Call{
		Tool:      name,
		Args:      args,
		CallerID:  callerID,
		Transport: "http",
	})
	if err != nil {
		writeToolError(w, err, correlationID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}

func writeToolError(w http.ResponseWriter, err error, correlationID string) {
	writeJSON(w, errs.HTTPStatus(err), map[string]any{
		"success":       false,
		"error":         errs.MessageOf(err),
		"type":          string(errs.KindOf(err)),
		"correlationId": correlationID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
