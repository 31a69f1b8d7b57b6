// Package validate checks tool arguments against their schemas. Before the
// schema check it runs a coercion pass for callers that pre-serialize
// arrays and numbers as strings; the field lists are part of the tool
// contract, not reflection-driven guesses.
package validate

import (
	"encoding/json"
	"math"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/aidisdev/aidis/internal/errs"
)

// arrayFields is the fixed set of argument names whose string values are
// parsed as JSON arrays when possible.
var arrayFields = map[string]bool{
	"tags":                   true,
	"aliases":                true,
	"contextTags":            true,
	"dependencies":           true,
	"capabilities":           true,
	"alternativesConsidered": true,
	"affectedComponents":     true,
	"contextRefs":            true,
	"taskRefs":               true,
	"paths":                  true,
}

// numericFields is the fixed set of argument names whose string values are
// parsed as numbers when finite.
var numericFields = map[string]bool{
	"limit":               true,
	"maxDepth":            true,
	"relevanceScore":      true,
	"confidenceScore":     true,
	"priority":            true,
	"estimatedHours":      true,
	"actualHours":         true,
	"hours_back":          true,
	"confidenceThreshold": true,
	"minConfidence":       true,
}

// Coerce applies the string-to-array and string-to-number repairs in place
// and returns the map. Coercion is idempotent: native arrays and numbers
// pass through unchanged, and strings that fail to parse are left alone.
func Coerce(args map[string]any) map[string]any {
	for key, val := range args {
		s, isString := val.(string)
		if !isString {
			continue
		}

		if arrayFields[key] {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				if arr, ok := parsed.([]any); ok {
					args[key] = arr
				}
			}
			continue
		}

		if numericFields[key] {
			if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
				args[key] = n
			}
		}
	}
	return args
}

// Validator compiles and caches tool schemas.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// New creates a validator with an empty schema cache.
func New() *Validator {
	return &Validator{compiled: map[string]*jsonschema.Schema{}}
}

// Validate coerces args and checks them against the tool's schema. It
// returns the coerced map, or an InvalidParams error with the schema
// violation message.
func (v *Validator) Validate(toolName string, schema json.RawMessage, args map[string]any) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}
	args = Coerce(args)

	compiled, err := v.compile(toolName, schema)
	if err != nil {
		return nil, errs.Internal(err, "tool %s has an invalid schema", toolName)
	}

	// Round-trip through JSON so the schema library sees plain JSON types;
	// coerced maps can still hold ints or json.Number from transports.
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, errs.InvalidParams("arguments are not JSON-encodable: %v", err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, errs.InvalidParams("arguments are not valid JSON: %v", err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return nil, errs.InvalidParams("invalid arguments for %s: %v", toolName, err)
	}
	return args, nil
}

func (v *Validator) compile(toolName string, schema json.RawMessage) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if compiled, ok := v.compiled[toolName]; ok {
		return compiled, nil
	}
	compiled, err := jsonschema.CompileString(toolName+".schema.json", string(schema))
	if err != nil {
		return nil, err
	}
	v.compiled[toolName] = compiled
	return compiled, nil
}
