package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/observability"
	"github.com/aidisdev/aidis/internal/registry"
	"github.com/aidisdev/aidis/pkg/models"
)

// newTestExecutor binds every catalog tool to a stub and returns the
// executor over it. Individual tests override specific bindings first.
func newTestExecutor(t *testing.T, overrides map[string]registry.HandlerFunc) *Executor {
	t.Helper()

	reg := registry.New("aidis")
	for _, def := range reg.Definitions() {
		fn, ok := overrides[def.Name]
		if !ok {
			fn = func(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
				return models.TextResult("stub"), nil
			}
		}
		if err := reg.Bind(def.Name, fn); err != nil {
			t.Fatalf("bind %s: %v", def.Name, err)
		}
	}
	if err := reg.Seal(); err != nil {
		t.Fatalf("seal: %v", err)
	}
	return New(reg, observability.NewTestLogger(), nil, time.Second)
}

func TestExecuteUnknownTool(t *testing.T) {
	e := newTestExecutor(t, nil)

	_, correlationID, err := e.Execute(context.Background(), Call{Tool: "nope"})
	if errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("kind = %s, want NotFound", errs.KindOf(err))
	}
	if correlationID == "" {
		t.Error("correlation id must be set even on failure")
	}
}

func TestExecuteGeneratesCorrelationID(t *testing.T) {
	e := newTestExecutor(t, nil)

	_, generated, err := e.Execute(context.Background(), Call{Tool: "aidis_ping"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generated == "" {
		t.Error("expected a generated correlation id")
	}

	_, echoed, err := e.Execute(context.Background(), Call{Tool: "aidis_ping", CorrelationID: "fixed-id"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if echoed != "fixed-id" {
		t.Errorf("correlation id = %q, want fixed-id", echoed)
	}
}

func TestExecuteValidatesArguments(t *testing.T) {
	e := newTestExecutor(t, nil)

	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantErr bool
	}{
		{"content at max accepted", "context_store",
			map[string]any{"content": strings.Repeat("a", 10000), "type": "code"}, false},
		{"content over max rejected", "context_store",
			map[string]any{"content": strings.Repeat("a", 10001), "type": "code"}, true},
		{"content empty rejected", "context_store",
			map[string]any{"content": "", "type": "code"}, true},
		{"missing required rejected", "context_store",
			map[string]any{"type": "code"}, true},
		{"search limit 50 accepted", "context_search",
			map[string]any{"query": "q", "limit": float64(50)}, false},
		{"search limit 51 rejected", "context_search",
			map[string]any{"query": "q", "limit": float64(51)}, true},
		{"search limit 0 rejected", "context_search",
			map[string]any{"query": "q", "limit": float64(0)}, true},
		{"stringified limit coerced", "context_search",
			map[string]any{"query": "q", "limit": "10"}, false},
		{"stringified tags coerced", "context_search",
			map[string]any{"query": "q", "tags": `["a"]`}, false},
		{"unknown argument rejected", "aidis_ping",
			map[string]any{"bogus": true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.Execute(context.Background(), Call{Tool: tt.tool, Args: tt.args})
			if tt.wantErr {
				if errs.KindOf(err) != errs.KindInvalidParams {
					t.Errorf("kind = %v, want InvalidParams (err=%v)", errs.KindOf(err), err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExecuteContainsPanics(t *testing.T) {
	e := newTestExecutor(t, map[string]registry.HandlerFunc{
		"aidis_ping": func(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
			panic("handler exploded")
		},
	})

	_, correlationID, err := e.Execute(context.Background(), Call{Tool: "aidis_ping"})
	if errs.KindOf(err) != errs.KindInternal {
		t.Errorf("kind = %s, want Internal", errs.KindOf(err))
	}
	if correlationID == "" {
		t.Error("correlation id missing after panic")
	}
}

func TestExecutePassesCallerID(t *testing.T) {
	var seen string
	e := newTestExecutor(t, map[string]registry.HandlerFunc{
		"aidis_ping": func(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
			seen = req.CallerID
			return models.TextResult("pong"), nil
		},
	})

	_, _, err := e.Execute(context.Background(), Call{Tool: "aidis_ping", CallerID: "stdio"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "stdio" {
		t.Errorf("caller id = %q, want stdio", seen)
	}
}
