// Package executor is the single entry point both transports share. It
// binds a correlation id, validates arguments, dispatches to the handler,
// converts panics to typed errors, and records metrics.
package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/observability"
	"github.com/aidisdev/aidis/internal/registry"
	"github.com/aidisdev/aidis/internal/validate"
	"github.com/aidisdev/aidis/pkg/models"
)

// Executor dispatches tool calls. It is stateless across calls; all shared
// state lives behind the handlers it routes to.
type Executor struct {
	registry  *registry.Registry
	validator *validate.Validator
	logger    *observability.Logger
	metrics   *observability.Metrics
	timeout   time.Duration
}

// New creates the executor. A zero timeout defaults to 30 seconds.
func New(reg *registry.Registry, logger *observability.Logger, metrics *observability.Metrics, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		registry:  reg,
		validator: validate.New(),
		logger:    logger.With("component", "executor"),
		metrics:   metrics,
		timeout:   timeout,
	}
}

// Call is one tool invocation as decoded by a transport.
type Call struct {
	Tool          string
	Args          map[string]any
	CorrelationID string
	CallerID      string
	Transport     string // "stdio" or "http", for metrics
}

// Execute runs one tool call end to end and returns the result envelope.
// The returned correlation id is always non-empty; transports echo it in
// error responses.
func (e *Executor) Execute(ctx context.Context, call Call) (result *models.ToolResult, correlationID string, err error) {
	correlationID = call.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	ctx = observability.WithCorrelationID(ctx, correlationID)
	if call.CallerID != "" {
		ctx = observability.WithCaller(ctx, call.CallerID)
	}

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		if e.metrics != nil {
			e.metrics.ToolCallCounter.WithLabelValues(call.Tool, status, call.Transport).Inc()
			e.metrics.ToolCallDuration.WithLabelValues(call.Tool).Observe(time.Since(start).Seconds())
			if err != nil {
				e.metrics.ErrorCounter.WithLabelValues(string(errs.KindOf(err))).Inc()
			}
		}
	}()

	entry, ok := e.registry.Lookup(call.Tool)
	if !ok {
		err = errs.NotFound("unknown tool %q", call.Tool)
		e.logger.Warn(ctx, "tool not found", "tool", call.Tool)
		return nil, correlationID, err
	}

	args, err := e.validator.Validate(call.Tool, entry.Definition.InputSchema, call.Args)
	if err != nil {
		e.logger.Warn(ctx, "argument validation failed", "tool", call.Tool, "error", err)
		return nil, correlationID, err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.logger.Debug(ctx, "dispatching tool", "tool", call.Tool)
	result, err = e.invoke(callCtx, entry, &registry.Request{
		Tool:     call.Tool,
		Args:     args,
		CallerID: call.CallerID,
	})
	if err != nil {
		e.logger.Error(ctx, "tool failed", "tool", call.Tool,
			"kind", string(errs.KindOf(err)), "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, correlationID, err
	}

	e.logger.Info(ctx, "tool completed", "tool", call.Tool,
		"duration_ms", time.Since(start).Milliseconds())
	return result, correlationID, nil
}

// invoke runs the handler with panic containment.
func (e *Executor) invoke(ctx context.Context, entry *registry.Entry, req *registry.Request) (result *models.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Internal(fmt.Errorf("%v", r), "handler panic in %s", req.Tool)
			e.logger.Error(ctx, "handler panicked", "tool", req.Tool,
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	return entry.Handler(ctx, req)
}
