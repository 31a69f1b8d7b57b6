// Package registry holds the immutable tool catalog: every tool's name,
// description, input schema, documentation and handler binding. The catalog
// is fixed at startup; lookups are O(1) map hits.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aidisdev/aidis/pkg/models"
)

// Request carries one tool invocation through the executor to its handler.
type Request struct {
	// Tool is the resolved tool name.
	Tool string

	// Args is the validated, coerced argument map.
	Args map[string]any

	// CallerID identifies the transport caller for ambient state.
	CallerID string
}

// HandlerFunc executes one tool call.
type HandlerFunc func(ctx context.Context, req *Request) (*models.ToolResult, error)

// Entry is one registered tool with its documentation.
type Entry struct {
	Definition models.ToolDefinition
	Category   string
	Examples   string
	Handler    HandlerFunc
}

// Registry is the read-only tool catalog.
type Registry struct {
	entries map[string]*Entry
	order   []string
	sealed  bool
}

// New builds the catalog with the given navigation-tool prefix (usually
// "aidis"). Handlers are bound afterwards with Bind; Seal freezes the
// registry before serving.
func New(prefix string) *Registry {
	if prefix == "" {
		prefix = "aidis"
	}

	r := &Registry{entries: map[string]*Entry{}}
	for _, spec := range catalog {
		name := strings.ReplaceAll(spec.name, "aidis_", prefix+"_")
		r.entries[name] = &Entry{
			Definition: models.ToolDefinition{
				Name:        name,
				Description: spec.description,
				InputSchema: json.RawMessage(spec.schema),
			},
			Category: spec.category,
			Examples: spec.examples,
		}
		r.order = append(r.order, name)
	}
	return r
}

// Bind attaches a handler to a tool. Binding an unknown tool or binding
// after Seal is a programming error.
func (r *Registry) Bind(name string, fn HandlerFunc) error {
	if r.sealed {
		return fmt.Errorf("registry is sealed")
	}
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}
	e.Handler = fn
	return nil
}

// Seal freezes the registry and verifies every tool has a handler.
func (r *Registry) Seal() error {
	for name, e := range r.entries {
		if e.Handler == nil {
			return fmt.Errorf("tool %q has no handler", name)
		}
	}
	r.sealed = true
	return nil
}

// Lookup returns the entry for a tool name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Definitions returns the catalog in registration order, for tools/list.
func (r *Registry) Definitions() []models.ToolDefinition {
	out := make([]models.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].Definition)
	}
	return out
}

// Categories returns tool names grouped by category, preserving catalog
// order within each group.
func (r *Registry) Categories() ([]string, map[string][]string) {
	var cats []string
	grouped := map[string][]string{}
	for _, name := range r.order {
		e := r.entries[name]
		if _, ok := grouped[e.Category]; !ok {
			cats = append(cats, e.Category)
		}
		grouped[e.Category] = append(grouped[e.Category], name)
	}
	return cats, grouped
}

// Len returns the catalog size.
func (r *Registry) Len() int { return len(r.order) }
