package db

import (
	"math"
	"testing"
)

func TestVectorValue(t *testing.T) {
	v := Vector{1, -0.5, 2.25}
	got, err := v.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[1,-0.5,2.25]" {
		t.Errorf("Value() = %q, want [1,-0.5,2.25]", got)
	}
}

func TestVectorValueEmpty(t *testing.T) {
	got, err := Vector(nil).Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Value() = %v, want nil for empty vector", got)
	}
}

func TestVectorValueRejectsNonFinite(t *testing.T) {
	for _, bad := range []float32{float32(math.NaN()), float32(math.Inf(1))} {
		if _, err := (Vector{1, bad}).Value(); err == nil {
			t.Errorf("expected error for component %v", bad)
		}
	}
}

func TestVectorScan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    Vector
		wantErr bool
	}{
		{"string literal", "[1,2.5,-3]", Vector{1, 2.5, -3}, false},
		{"byte literal", []byte("[0.25]"), Vector{0.25}, false},
		{"empty brackets", "[]", Vector{}, false},
		{"nil", nil, nil, false},
		{"missing brackets", "1,2,3", nil, true},
		{"bad component", "[1,x]", nil, true},
		{"wrong type", 42, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Vector
			err := v.Scan(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(v) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(v), len(tt.want))
			}
			for i := range v {
				if v[i] != tt.want[i] {
					t.Errorf("component %d = %v, want %v", i, v[i], tt.want[i])
				}
			}
		})
	}
}

func TestVectorRoundTrip(t *testing.T) {
	orig := Vector{0.1, -0.2, 0.3}
	val, err := orig.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var back Vector
	if err := back.Scan(val); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if back.Dim() != orig.Dim() {
		t.Fatalf("dim = %d, want %d", back.Dim(), orig.Dim())
	}
	for i := range orig {
		if back[i] != orig[i] {
			t.Errorf("component %d = %v, want %v", i, back[i], orig[i])
		}
	}
}
