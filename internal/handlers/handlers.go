// Package handlers implements the per-domain tool operations: context,
// project, decision, task, navigation and the composite insight tools.
// Handlers receive validated arguments from the executor, resolve the
// ambient project where no explicit one is given, and return structured
// result envelopes with typed errors.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/aidisdev/aidis/internal/embedding"
	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/observability"
	"github.com/aidisdev/aidis/internal/registry"
	"github.com/aidisdev/aidis/internal/state"
	"github.com/aidisdev/aidis/internal/store"
)

// HealthFunc reports the daemon's health for aidis_status.
type HealthFunc func(ctx context.Context) (dbHealthy bool, breakerState string)

// Handlers carries the dependencies every tool operation shares.
type Handlers struct {
	stores   *store.Stores
	state    *state.Manager
	embedder embedding.Provider
	logger   *observability.Logger
	registry *registry.Registry

	version   string
	startTime time.Time
	health    HealthFunc
}

// Config assembles a Handlers value.
type Config struct {
	Stores   *store.Stores
	State    *state.Manager
	Embedder embedding.Provider
	Logger   *observability.Logger
	Version  string
	Health   HealthFunc
}

// New creates the handler set.
func New(cfg Config) *Handlers {
	return &Handlers{
		stores:    cfg.Stores,
		state:     cfg.State,
		embedder:  cfg.Embedder,
		logger:    cfg.Logger.With("component", "handlers"),
		version:   cfg.Version,
		startTime: time.Now(),
		health:    cfg.Health,
	}
}

// Register binds every tool in the catalog to its handler. The prefix names
// the navigation tools (usually "aidis").
func (h *Handlers) Register(reg *registry.Registry, prefix string) error {
	if prefix == "" {
		prefix = "aidis"
	}
	h.registry = reg

	bindings := map[string]registry.HandlerFunc{
		prefix + "_ping":     h.Ping,
		prefix + "_status":   h.Status,
		prefix + "_help":     h.Help,
		prefix + "_explain":  h.Explain,
		prefix + "_examples": h.Examples,

		"context_store":      h.ContextStore,
		"context_search":     h.ContextSearch,
		"context_get_recent": h.ContextGetRecent,
		"context_stats":      h.ContextStats,
		"context_delete":     h.ContextDelete,

		"project_list":    h.ProjectList,
		"project_create":  h.ProjectCreate,
		"project_switch":  h.ProjectSwitch,
		"project_current": h.ProjectCurrent,
		"project_info":    h.ProjectInfo,
		"project_delete":  h.ProjectDelete,

		"decision_record": h.DecisionRecord,
		"decision_search": h.DecisionSearch,
		"decision_update": h.DecisionUpdate,
		"decision_stats":  h.DecisionStats,
		"decision_delete": h.DecisionDelete,

		"task_create":           h.TaskCreate,
		"task_list":             h.TaskList,
		"task_update":           h.TaskUpdate,
		"task_details":          h.TaskDetails,
		"task_bulk_update":      h.TaskBulkUpdate,
		"task_progress_summary": h.TaskProgressSummary,
		"task_delete":           h.TaskDelete,

		"smart_search":        h.SmartSearch,
		"get_recommendations": h.GetRecommendations,
		"project_insights":    h.ProjectInsights,
	}

	for name, fn := range bindings {
		if err := reg.Bind(name, fn); err != nil {
			return err
		}
	}
	return reg.Seal()
}

// resolveProjectID resolves the project a handler should operate on:
// explicit projectId argument first, then the caller's session project,
// then the ambient current project (which selects a default when unset).
func (h *Handlers) resolveProjectID(ctx context.Context, req *registry.Request) (string, error) {
	if explicit := stringArg(req.Args, "projectId"); explicit != "" {
		p, err := h.stores.Projects.Resolve(ctx, explicit)
		if err != nil {
			return "", err
		}
		return p.ID, nil
	}

	sess, err := h.state.EnsureSession(ctx, req.CallerID)
	if err != nil {
		return "", err
	}
	if sess.ProjectID != "" {
		return sess.ProjectID, nil
	}

	p, err := h.state.CurrentProject(ctx, req.CallerID)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return "", errs.NotFound("no project selected and no active projects exist; create one with project_create")
		}
		return "", err
	}
	return p.ID, nil
}

// ---- argument helpers ----
//
// The validator has already type-checked everything; these helpers only
// unpack the JSON-decoded representations.

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func floatArg(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mapArg(args map[string]any, key string) map[string]any {
	if v, ok := args[key].(map[string]any); ok {
		return v
	}
	return nil
}

// hasArg reports whether the key was supplied at all, for optional fields
// where absence and empty differ.
func hasArg(args map[string]any, key string) bool {
	_, ok := args[key]
	return ok
}

// plural is a tiny formatting helper for result text.
func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
