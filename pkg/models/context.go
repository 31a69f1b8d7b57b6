package models

import (
	"fmt"
	"time"
)

// ContextType classifies a stored piece of development information.
type ContextType string

const (
	ContextCode        ContextType = "code"
	ContextDecision    ContextType = "decision"
	ContextError       ContextType = "error"
	ContextDiscussion  ContextType = "discussion"
	ContextPlanning    ContextType = "planning"
	ContextCompletion  ContextType = "completion"
	ContextMilestone   ContextType = "milestone"
	ContextReflections ContextType = "reflections"
	ContextHandoff     ContextType = "handoff"
)

// ContextTypes is the closed set of accepted context types.
var ContextTypes = []ContextType{
	ContextCode, ContextDecision, ContextError, ContextDiscussion,
	ContextPlanning, ContextCompletion, ContextMilestone,
	ContextReflections, ContextHandoff,
}

// Limits enforced on stored contexts.
const (
	MaxContextContentLen = 10000
	MaxContextTags       = 20
	MaxTagLen            = 50
	EmbeddingDim         = 384
)

// Context is one stored development artifact, indexed by a semantic vector.
// A context is searchable only once its embedding has been populated.
type Context struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"project_id"`
	SessionID      string         `json:"session_id,omitempty"`
	Type           ContextType    `json:"type"`
	Content        string         `json:"content"`
	Tags           []string       `json:"tags,omitempty"`
	RelevanceScore float64        `json:"relevance_score"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`

	// Embedding is the 384-dim semantic vector. Omitted from JSON output;
	// similarity is surfaced through SearchResult instead.
	Embedding []float32 `json:"-"`

	// Similarity is populated on search results only, as a percentage.
	Similarity float64 `json:"similarity,omitempty"`
}

// ValidContextType reports whether t is in the closed type set.
func ValidContextType(t ContextType) bool {
	for _, ct := range ContextTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// Validate checks the content, type and tag limits before persistence.
func (c *Context) Validate() error {
	if c.Content == "" {
		return fmt.Errorf("content is required")
	}
	if len(c.Content) > MaxContextContentLen {
		return fmt.Errorf("content exceeds %d characters", MaxContextContentLen)
	}
	if !ValidContextType(c.Type) {
		return fmt.Errorf("invalid context type: %q", c.Type)
	}
	if len(c.Tags) > MaxContextTags {
		return fmt.Errorf("too many tags: %d (max %d)", len(c.Tags), MaxContextTags)
	}
	for _, tag := range c.Tags {
		if len(tag) > MaxTagLen {
			return fmt.Errorf("tag %q exceeds %d characters", tag, MaxTagLen)
		}
	}
	if c.RelevanceScore < 0 || c.RelevanceScore > 10 {
		return fmt.Errorf("relevance score %v outside [0,10]", c.RelevanceScore)
	}
	return nil
}

// ContextStats is the aggregate returned by context_stats.
type ContextStats struct {
	Total         int            `json:"total"`
	WithEmbedding int            `json:"with_embedding"`
	Recent24h     int            `json:"recent_24h"`
	ByType        map[string]int `json:"by_type"`
}
