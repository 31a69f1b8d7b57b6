// Package server hosts the two transports: the stdio JSON-RPC loop and the
// HTTP tool/health surface. Both route every tool call through the shared
// executor; neither holds state of its own beyond the listener.
package server

import (
	"context"
	"time"

	"github.com/aidisdev/aidis/internal/db"
	"github.com/aidisdev/aidis/internal/embedding"
)

// Snapshot is the single health view every endpoint renders from.
type Snapshot struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	Database      db.HealthSnapshot `json:"database"`
	Breaker       string            `json:"breaker"`
	Embedder      EmbedderStatus    `json:"embedder"`
}

// EmbedderStatus describes the active embedding provider.
type EmbedderStatus struct {
	Provider  string `json:"provider"`
	Dimension int    `json:"dimension"`
}

// Health produces snapshots for the health endpoints and aidis_status. It
// probes the pool with a short bounded timeout so health checks stay
// responsive while the pool is saturated.
type Health struct {
	pool      *db.Pool
	breaker   *db.CircuitBreaker
	embedder  embedding.Provider
	version   string
	startTime time.Time
	timeout   time.Duration
}

// NewHealth builds the snapshot producer. A zero timeout defaults to 2s.
func NewHealth(pool *db.Pool, breaker *db.CircuitBreaker, embedder embedding.Provider, version string, timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Health{
		pool:      pool,
		breaker:   breaker,
		embedder:  embedder,
		version:   version,
		startTime: time.Now(),
		timeout:   timeout,
	}
}

// Snapshot probes all subsystems once.
func (h *Health) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Breaker:       "closed",
		Embedder: EmbedderStatus{
			Provider:  h.embedder.Name(),
			Dimension: h.embedder.Dimension(),
		},
	}
	if h.breaker != nil {
		snap.Breaker = h.breaker.State()
	}
	if h.pool != nil {
		snap.Database = h.pool.Healthz(ctx, h.timeout)
	}
	if !h.Ready(snap) {
		snap.Status = "degraded"
	}
	return snap
}

// Ready reports readiness: database reachable and breaker not open.
func (h *Health) Ready(snap Snapshot) bool {
	return snap.Database.Healthy && snap.Breaker != "open"
}

// StatusFunc adapts the producer to the handlers' health callback.
func (h *Health) StatusFunc() func(ctx context.Context) (bool, string) {
	return func(ctx context.Context) (bool, string) {
		snap := h.Snapshot(ctx)
		return snap.Database.Healthy, snap.Breaker
	}
}
