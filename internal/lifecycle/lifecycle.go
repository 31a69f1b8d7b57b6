// Package lifecycle boots and tears down the daemon: singleton lock,
// storage with retry behind a circuit breaker, session bootstrap, background
// workers, the HTTP and stdio transports, and the ordered shutdown sequence.
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aidisdev/aidis/internal/backoff"
	"github.com/aidisdev/aidis/internal/config"
	"github.com/aidisdev/aidis/internal/db"
	"github.com/aidisdev/aidis/internal/embedding"
	"github.com/aidisdev/aidis/internal/executor"
	"github.com/aidisdev/aidis/internal/handlers"
	"github.com/aidisdev/aidis/internal/observability"
	"github.com/aidisdev/aidis/internal/portman"
	"github.com/aidisdev/aidis/internal/registry"
	"github.com/aidisdev/aidis/internal/server"
	"github.com/aidisdev/aidis/internal/state"
	"github.com/aidisdev/aidis/internal/store"
)

// dbStartupAttempts bounds the storage retry loop at boot.
const dbStartupAttempts = 3

// Daemon owns every long-lived component and their start/stop ordering.
type Daemon struct {
	cfg     *config.Config
	logger  *observability.Logger
	version string

	lock    *Lock
	pool    *db.Pool
	breaker *db.CircuitBreaker
	stores  *store.Stores
	state   *state.Manager
	health  *server.Health
	httpSrv *server.HTTP
	stdio   *server.Stdio
	ports   *portman.Manager
	workers []Worker
}

// New prepares a daemon from configuration. Nothing is started yet.
func New(cfg *config.Config, logger *observability.Logger, version string) *Daemon {
	return &Daemon{
		cfg:     cfg,
		logger:  logger.With("component", "lifecycle"),
		version: version,
	}
}

// Run boots the daemon, serves until a signal or stdin close, then shuts
// down in order. The returned error means startup failed; a clean shutdown
// returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lock, err := AcquireLock(d.cfg.Paths.PIDFile)
	if err != nil {
		return err
	}
	d.lock = lock
	defer d.lock.Release()

	d.ports = portman.New(d.cfg.Paths.PortRegistry, d.cfg.Server.PreferredPort)
	if err := d.preflight(ctx); err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	promRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(promRegistry)

	d.breaker = db.NewCircuitBreaker(db.BreakerConfig{
		Name: "database",
		OnStateChange: func(from, to string) {
			d.logger.Warn(ctx, "breaker state change", "breaker", "database", "from", from, "to", to)
		},
	})

	if !d.cfg.SkipDatabase {
		if err := d.openStorage(ctx); err != nil {
			d.shutdown(ctx)
			return fmt.Errorf("storage startup: %w", err)
		}
	} else {
		d.logger.Warn(ctx, "database skipped by configuration")
	}

	embedder, err := embedding.NewCached(
		embedding.NewLocal(d.cfg.Embedding.Dimension),
		d.cfg.Embedding.CacheSize, metrics)
	if err != nil {
		d.shutdown(ctx)
		return fmt.Errorf("embedding cache: %w", err)
	}

	d.stores = store.New(d.pool)
	d.state = state.NewManager(d.stores, d.logger)
	d.health = server.NewHealth(d.pool, d.breaker, embedder, d.version, d.cfg.Server.HealthTimeout)

	reg := registry.New(d.cfg.Server.ToolPrefix)
	h := handlers.New(handlers.Config{
		Stores:   d.stores,
		State:    d.state,
		Embedder: embedder,
		Logger:   d.logger,
		Version:  d.version,
		Health:   d.health.StatusFunc(),
	})
	if err := h.Register(reg, d.cfg.Server.ToolPrefix); err != nil {
		d.shutdown(ctx)
		return fmt.Errorf("register tools: %w", err)
	}

	exec := executor.New(reg, d.logger, metrics, d.cfg.Server.ToolTimeout)

	if d.pool != nil {
		if _, err := d.state.EnsureSession(ctx, "stdio"); err != nil {
			// A missing project is normal on first run; anything else is not.
			d.logger.Warn(ctx, "could not bootstrap session", "error", err)
		}
	}

	if !d.cfg.SkipBackground && d.pool != nil {
		d.startWorkers(ctx, NewPoolSampler(d.pool, metrics, 0))
	}

	port, err := d.ports.AssignPort(d.cfg.Server.ServiceName)
	if err != nil {
		d.shutdown(ctx)
		return fmt.Errorf("assign port: %w", err)
	}
	d.httpSrv = server.NewHTTP(exec, d.health, d.logger, promRegistry)
	if err := d.httpSrv.Start(ctx, port); err != nil {
		d.shutdown(ctx)
		return fmt.Errorf("http startup: %w", err)
	}
	if err := d.ports.RegisterService(d.cfg.Server.ServiceName, port, "/healthz"); err != nil {
		d.logger.Warn(ctx, "could not register service port", "error", err)
	}
	d.logger.Info(ctx, "daemon started", "version", d.version, "port", port, "pid", os.Getpid())

	if d.cfg.SkipStdio {
		<-ctx.Done()
	} else {
		d.stdio = server.NewStdio(exec, reg, d.health, d.logger, os.Stdin, os.Stdout)
		if err := d.stdio.Serve(ctx); err != nil {
			d.logger.Error(ctx, "stdio transport failed", "error", err)
		}
	}

	d.shutdown(context.WithoutCancel(ctx))
	return nil
}

// preflight probes the health endpoint of any previously registered
// instance; a live answer means a daemon is already serving.
func (d *Daemon) preflight(ctx context.Context) error {
	port, ok := d.ports.DiscoverServicePort(d.cfg.Server.ServiceName)
	if !ok {
		return nil
	}
	healthPath, ok := d.ports.HealthPath(d.cfg.Server.ServiceName)
	if !ok {
		healthPath = "/healthz"
	}

	client := &http.Client{Timeout: 2 * time.Second}
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet,
		fmt.Sprintf("http://127.0.0.1:%d%s", port, healthPath), nil)
	if err != nil {
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return fmt.Errorf("an instance is already serving on port %d", port)
	}
	return nil
}

// openStorage connects to Postgres with bounded exponential retries inside
// the circuit breaker, then applies migrations.
func (d *Daemon) openStorage(ctx context.Context) error {
	err := backoff.Retry(ctx, backoff.StartupPolicy(), dbStartupAttempts, func(attempt int) error {
		return d.breaker.Execute(ctx, func(ctx context.Context) error {
			pool, err := db.Open(ctx, d.cfg.Database)
			if err != nil {
				d.logger.Warn(ctx, "database connect failed", "attempt", attempt, "error", err)
				return err
			}
			d.pool = pool
			return nil
		})
	})
	if err != nil {
		return err
	}

	if err := d.pool.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	d.logger.Info(ctx, "database ready", "host", d.cfg.Database.Host, "name", d.cfg.Database.Name)
	return nil
}

// startWorkers launches the background collaborators. Failures are logged
// and the worker is skipped.
func (d *Daemon) startWorkers(ctx context.Context, workers ...Worker) {
	for _, w := range workers {
		if err := w.Start(ctx); err != nil {
			d.logger.Warn(ctx, "worker failed to start", "worker", w.Name(), "error", err)
			continue
		}
		d.logger.Info(ctx, "worker started", "worker", w.Name())
		d.workers = append(d.workers, w)
	}
}

// shutdown tears everything down in order. A watchdog force-exits the
// process if any step hangs past the shutdown timeout.
func (d *Daemon) shutdown(ctx context.Context) {
	timeout := d.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	watchdog := time.AfterFunc(timeout, func() {
		d.logger.Error(ctx, "shutdown timed out, force exiting")
		d.lock.Release()
		os.Exit(1)
	})
	defer watchdog.Stop()

	stopCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if d.state != nil && d.pool != nil {
		n, err := d.state.EndAllSessions(stopCtx)
		if err != nil {
			d.logger.Warn(stopCtx, "could not end sessions", "error", err)
		} else if n > 0 {
			d.logger.Info(stopCtx, "ended open sessions", "count", n)
		}
	}

	for i := len(d.workers) - 1; i >= 0; i-- {
		w := d.workers[i]
		if err := w.Stop(stopCtx); err != nil {
			d.logger.Warn(stopCtx, "worker stop failed", "worker", w.Name(), "error", err)
		}
	}
	d.workers = nil

	if d.httpSrv != nil {
		if err := d.httpSrv.Shutdown(stopCtx); err != nil {
			d.logger.Warn(stopCtx, "http shutdown failed", "error", err)
		}
		d.httpSrv = nil
	}
	if d.ports != nil {
		if err := d.ports.UnregisterService(d.cfg.Server.ServiceName); err != nil {
			d.logger.Warn(stopCtx, "could not unregister service", "error", err)
		}
	}

	if d.pool != nil {
		if err := d.pool.Close(); err != nil {
			d.logger.Warn(stopCtx, "pool close failed", "error", err)
		}
		d.pool = nil
	}

	d.logger.Info(stopCtx, "daemon stopped")
}
