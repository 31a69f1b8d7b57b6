package registry

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aidisdev/aidis/pkg/models"
)

func noopHandler(ctx context.Context, req *Request) (*models.ToolResult, error) {
	return models.TextResult("ok"), nil
}

func bindAll(t *testing.T, r *Registry) {
	t.Helper()
	for _, def := range r.Definitions() {
		if err := r.Bind(def.Name, noopHandler); err != nil {
			t.Fatalf("bind %s: %v", def.Name, err)
		}
	}
}

func TestCatalogSize(t *testing.T) {
	r := New("aidis")
	if r.Len() != 31 {
		t.Errorf("catalog size = %d, want 31", r.Len())
	}
}

func TestPrefixSubstitution(t *testing.T) {
	r := New("mandrel")

	if _, ok := r.Lookup("mandrel_ping"); !ok {
		t.Error("expected mandrel_ping under custom prefix")
	}
	if _, ok := r.Lookup("aidis_ping"); ok {
		t.Error("aidis_ping should not exist under custom prefix")
	}
	// Domain tools keep their names regardless of prefix.
	if _, ok := r.Lookup("context_store"); !ok {
		t.Error("context_store should be prefix-independent")
	}
}

func TestSealRequiresAllHandlers(t *testing.T) {
	r := New("aidis")
	if err := r.Seal(); err == nil {
		t.Fatal("sealing with unbound tools should fail")
	}

	bindAll(t, r)
	if err := r.Seal(); err != nil {
		t.Fatalf("seal after binding all: %v", err)
	}

	// Binding after seal is rejected.
	if err := r.Bind("context_store", noopHandler); err == nil {
		t.Error("bind after seal should fail")
	}
}

func TestBindUnknownTool(t *testing.T) {
	r := New("aidis")
	if err := r.Bind("no_such_tool", noopHandler); err == nil {
		t.Error("binding an unknown tool should fail")
	}
}

func TestDefinitionsHaveValidSchemas(t *testing.T) {
	r := New("aidis")
	for _, def := range r.Definitions() {
		if def.Name == "" || def.Description == "" {
			t.Errorf("tool %q missing name or description", def.Name)
		}
		var schema map[string]any
		if err := json.Unmarshal(def.InputSchema, &schema); err != nil {
			t.Errorf("tool %s schema is not valid JSON: %v", def.Name, err)
			continue
		}
		if schema["type"] != "object" {
			t.Errorf("tool %s schema type = %v, want object", def.Name, schema["type"])
		}
		if ap, ok := schema["additionalProperties"].(bool); !ok || ap {
			t.Errorf("tool %s schema must set additionalProperties false", def.Name)
		}
	}
}

func TestCategoriesCoverEveryTool(t *testing.T) {
	r := New("aidis")
	cats, grouped := r.Categories()

	total := 0
	for _, cat := range cats {
		total += len(grouped[cat])
	}
	if total != r.Len() {
		t.Errorf("grouped %d tools, want %d", total, r.Len())
	}

	wantCats := map[string]int{
		CategoryNavigation: 5,
		CategoryContext:    5,
		CategoryProject:    6,
		CategoryDecision:   5,
		CategoryTask:       7,
		CategoryComposite:  3,
	}
	for cat, want := range wantCats {
		if got := len(grouped[cat]); got != want {
			t.Errorf("category %s has %d tools, want %d", cat, got, want)
		}
	}
}

func TestNavigationToolsCarryPrefix(t *testing.T) {
	r := New("aidis")
	_, grouped := r.Categories()
	for _, name := range grouped[CategoryNavigation] {
		if !strings.HasPrefix(name, "aidis_") {
			t.Errorf("navigation tool %s lacks the prefix", name)
		}
	}
}
