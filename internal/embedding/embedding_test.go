package embedding

import (
	"context"
	"math"
	"testing"
)

func TestLocalDeterministic(t *testing.T) {
	p := NewLocal(384)

	a, err := p.Embed(context.Background(), "authentication middleware refactor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := p.Embed(context.Background(), "authentication middleware refactor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a) != 384 {
		t.Fatalf("dimension = %d, want 384", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs between identical inputs", i)
		}
	}
}

func TestLocalNormalized(t *testing.T) {
	p := NewLocal(384)
	vec, err := p.Embed(context.Background(), "vector search over stored contexts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var norm float64
	for _, f := range vec {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			t.Fatal("embedding contains a non-finite component")
		}
		norm += float64(f) * float64(f)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("L2 norm = %f, want 1", math.Sqrt(norm))
	}
}

func TestLocalRejectsEmptyInput(t *testing.T) {
	p := NewLocal(384)
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := p.Embed(context.Background(), text); err == nil {
			t.Errorf("expected error for input %q", text)
		}
	}
}

func TestLocalDistinguishesTexts(t *testing.T) {
	p := NewLocal(384)
	a, _ := p.Embed(context.Background(), "postgres connection pooling")
	b, _ := p.Embed(context.Background(), "frontend button styling")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("unrelated texts produced identical embeddings")
	}
}

func TestCachedHitsOnRepeat(t *testing.T) {
	cached, err := NewCached(NewLocal(384), 8, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := cached.Embed(context.Background(), "repeat me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cached.Embed(context.Background(), "repeat me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("cached result differs from original")
		}
	}

	if cached.Name() == "" || cached.Dimension() != 384 {
		t.Errorf("wrapper metadata lost: name=%q dim=%d", cached.Name(), cached.Dimension())
	}
}
