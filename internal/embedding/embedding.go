// Package embedding turns free text into fixed-dimension semantic vectors.
// The daemon treats embedding as a pure function: the same input always
// yields the same 384-dim, finite, L2-normalized vector.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Provider is the embedding interface the context handlers consume.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string

	// Dimension returns the embedding dimension.
	Dimension() int
}

// Local is a deterministic in-process provider. It hashes word unigrams and
// bigrams into a fixed-dimension bag-of-features vector and L2-normalizes
// the result. Not a learned model, but stable, finite, and cheap; texts
// sharing vocabulary land near each other under cosine similarity.
type Local struct {
	dim int
}

// NewLocal creates a local provider with the given dimension (default 384).
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = 384
	}
	return &Local{dim: dim}
}

func (l *Local) Name() string   { return "local-hash" }
func (l *Local) Dimension() int { return l.dim }

// Embed implements Provider. It never fails for non-empty input.
func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	vec := make([]float64, l.dim)
	tokens := tokenize(text)

	for i, tok := range tokens {
		addFeature(vec, tok, 1.0)
		if i+1 < len(tokens) {
			addFeature(vec, tok+" "+tokens[i+1], 0.5)
		}
	}

	// L2 normalize so cosine similarity reduces to a dot product.
	var norm float64
	for _, f := range vec {
		norm += f * f
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, l.dim)
	for i, f := range vec {
		out[i] = float32(f / norm)
	}
	return out, nil
}

// addFeature hashes the feature into two buckets with signed weights, a
// cheap variant of the hashing trick that reduces collisions.
func addFeature(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(len(vec)))
	sign := 1.0
	if (sum>>32)&1 == 1 {
		sign = -1.0
	}
	vec[idx] += sign * weight

	idx2 := int((sum >> 16) % uint64(len(vec)))
	vec[idx2] += sign * weight * 0.5
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
