package lifecycle

import (
	"context"
	"time"

	"github.com/aidisdev/aidis/internal/db"
	"github.com/aidisdev/aidis/internal/observability"
)

// Worker is a background collaborator started after the core is up and
// stopped in reverse order on shutdown. Workers are best-effort: a failing
// worker is logged and skipped, never fatal.
type Worker interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// poolSampler periodically publishes pool health to the metrics gauges so
// dashboards see utilization between requests.
type poolSampler struct {
	pool     *db.Pool
	metrics  *observability.Metrics
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoolSampler creates the sampler worker. A zero interval defaults to 15s.
func NewPoolSampler(pool *db.Pool, metrics *observability.Metrics, interval time.Duration) Worker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &poolSampler{pool: pool, metrics: metrics, interval: interval}
}

func (w *poolSampler) Name() string { return "pool-sampler" }

func (w *poolSampler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				snap := w.pool.Healthz(runCtx, 2*time.Second)
				healthy := 0.0
				if snap.Healthy {
					healthy = 1
				}
				w.metrics.DBHealthy.Set(healthy)
				w.metrics.PoolUtilization.Set(snap.Utilization)
			}
		}
	}()
	return nil
}

func (w *poolSampler) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
