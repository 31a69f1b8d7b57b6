package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/registry"
	"github.com/aidisdev/aidis/pkg/models"
)

// Ping implements aidis_ping.
func (h *Handlers) Ping(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	msg := stringArg(req.Args, "message")
	if msg == "" {
		msg = "pong"
	}
	return models.StructuredResult(fmt.Sprintf("%s (server time %s)", msg, time.Now().UTC().Format(time.RFC3339)),
		map[string]any{
			"message": msg,
			"time":    time.Now().UTC().Format(time.RFC3339),
			"version": h.version,
		}), nil
}

// Status implements aidis_status: version, uptime, database and breaker
// health, and catalog size.
func (h *Handlers) Status(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	uptime := time.Since(h.startTime).Round(time.Second)

	dbHealthy := false
	breakerState := "unknown"
	if h.health != nil {
		dbHealthy, breakerState = h.health(ctx)
	}

	status := map[string]any{
		"version":       h.version,
		"uptime":        uptime.String(),
		"uptimeSeconds": int64(uptime.Seconds()),
		"database": map[string]any{
			"healthy": dbHealthy,
			"breaker": breakerState,
		},
		"embedder": map[string]any{
			"provider":  h.embedder.Name(),
			"dimension": h.embedder.Dimension(),
		},
		"tools": h.registry.Len(),
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "AIDIS %s, up %s\n", h.version, uptime)
	fmt.Fprintf(&sb, "  database: healthy=%t breaker=%s\n", dbHealthy, breakerState)
	fmt.Fprintf(&sb, "  embedder: %s (%d dims)\n", h.embedder.Name(), h.embedder.Dimension())
	fmt.Fprintf(&sb, "  tools: %d registered\n", h.registry.Len())
	return models.StructuredResult(sb.String(), status), nil
}

// Help implements aidis_help: the full catalog grouped by category.
func (h *Handlers) Help(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	cats, grouped := h.registry.Categories()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s available\n", plural(h.registry.Len(), "tool"))
	for _, cat := range cats {
		fmt.Fprintf(&sb, "\n%s:\n", cat)
		for _, name := range grouped[cat] {
			e, _ := h.registry.Lookup(name)
			fmt.Fprintf(&sb, "  %s: %s\n", name, e.Definition.Description)
		}
	}

	catalog := map[string][]map[string]string{}
	for _, cat := range cats {
		for _, name := range grouped[cat] {
			e, _ := h.registry.Lookup(name)
			catalog[cat] = append(catalog[cat], map[string]string{
				"name":        name,
				"description": e.Definition.Description,
			})
		}
	}
	return models.StructuredResult(sb.String(), catalog), nil
}

// Explain implements aidis_explain: one tool's description and schema.
func (h *Handlers) Explain(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	name := stringArg(req.Args, "toolName")
	e, ok := h.registry.Lookup(name)
	if !ok {
		return nil, errs.NotFound("unknown tool %q; run aidis_help for the catalog", name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n%s\n\nInput schema:\n%s\n",
		e.Definition.Name, e.Category, e.Definition.Description, string(e.Definition.InputSchema))
	return models.StructuredResult(sb.String(), e.Definition), nil
}

// Examples implements aidis_examples: curated invocation examples per tool.
func (h *Handlers) Examples(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	name := stringArg(req.Args, "toolName")
	e, ok := h.registry.Lookup(name)
	if !ok {
		return nil, errs.NotFound("unknown tool %q; run aidis_help for the catalog", name)
	}
	if e.Examples == "" {
		return models.TextResult(fmt.Sprintf("No examples recorded for %s yet; aidis_explain shows its schema.", name)), nil
	}
	return models.TextResult(fmt.Sprintf("Examples for %s:\n%s", name, e.Examples)), nil
}
