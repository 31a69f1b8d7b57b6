package validate

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/aidisdev/aidis/internal/errs"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want map[string]any
	}{
		{
			name: "stringified array is parsed",
			in:   map[string]any{"tags": `["a","b"]`},
			want: map[string]any{"tags": []any{"a", "b"}},
		},
		{
			name: "native array passes through",
			in:   map[string]any{"tags": []any{"a"}},
			want: map[string]any{"tags": []any{"a"}},
		},
		{
			name: "unparseable array string left alone",
			in:   map[string]any{"tags": "not json"},
			want: map[string]any{"tags": "not json"},
		},
		{
			name: "stringified number is parsed",
			in:   map[string]any{"limit": "10"},
			want: map[string]any{"limit": float64(10)},
		},
		{
			name: "native number passes through",
			in:   map[string]any{"limit": float64(7)},
			want: map[string]any{"limit": float64(7)},
		},
		{
			name: "non-finite number string left alone",
			in:   map[string]any{"limit": "NaN"},
			want: map[string]any{"limit": "NaN"},
		},
		{
			name: "unknown field untouched",
			in:   map[string]any{"query": "10"},
			want: map[string]any{"query": "10"},
		},
		{
			name: "json object string on array field left alone",
			in:   map[string]any{"dependencies": `{"a":1}`},
			want: map[string]any{"dependencies": `{"a":1}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coerce(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCoerceIdempotent(t *testing.T) {
	in := map[string]any{
		"tags":           `["x"]`,
		"relevanceScore": "7.5",
		"limit":          "3",
	}
	once := Coerce(in)
	again := Coerce(once)
	if !reflect.DeepEqual(once, again) {
		t.Errorf("second coercion changed the map: %#v vs %#v", once, again)
	}
}

const testSchema = `{
	"type": "object",
	"properties": {
		"content": {"type": "string", "minLength": 1, "maxLength": 10000},
		"tags": {"type": "array", "items": {"type": "string", "maxLength": 50}, "maxItems": 20},
		"limit": {"type": "integer", "minimum": 1, "maximum": 50}
	},
	"required": ["content"],
	"additionalProperties": false
}`

func TestValidatorBounds(t *testing.T) {
	v := New()
	schema := json.RawMessage(testSchema)

	manyTags := make([]any, 21)
	for i := range manyTags {
		manyTags[i] = "t"
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"minimal valid", map[string]any{"content": "x"}, false},
		{"content at limit", map[string]any{"content": strings.Repeat("a", 10000)}, false},
		{"content over limit", map[string]any{"content": strings.Repeat("a", 10001)}, true},
		{"content empty", map[string]any{"content": ""}, true},
		{"missing required", map[string]any{"limit": float64(1)}, true},
		{"limit zero", map[string]any{"content": "x", "limit": float64(0)}, true},
		{"limit over max", map[string]any{"content": "x", "limit": float64(51)}, true},
		{"limit coerced from string", map[string]any{"content": "x", "limit": "50"}, false},
		{"too many tags", map[string]any{"content": "x", "tags": manyTags}, true},
		{"tags coerced from string", map[string]any{"content": "x", "tags": `["a","b"]`}, false},
		{"unknown property rejected", map[string]any{"content": "x", "bogus": 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate("test_tool", schema, tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected a validation error")
				}
				if errs.KindOf(err) != errs.KindInvalidParams {
					t.Errorf("kind = %s, want InvalidParams", errs.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidatorNilArgs(t *testing.T) {
	v := New()
	schema := json.RawMessage(`{"type": "object", "additionalProperties": false}`)
	args, err := v.Validate("empty_tool", schema, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args == nil {
		t.Fatal("expected a non-nil args map")
	}
}
