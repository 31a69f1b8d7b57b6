package models

import "encoding/json"

// ToolDefinition is one entry in the immutable tool catalog: the name,
// a natural-language description, and the JSON Schema for its arguments.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolContent is a single content block in a tool result envelope.
type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the structured envelope every tool call resolves to.
// Transports serialize it as-is.
type ToolResult struct {
	Content []ToolContent `json:"content"`

	// Structured carries machine-readable results alongside the text
	// rendering. Transports pass it through untouched.
	Structured any `json:"structured,omitempty"`
}

// TextResult wraps plain text in the standard envelope.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []ToolContent{{Type: "text", Text: text}}}
}

// StructuredResult wraps text plus a machine-readable payload.
func StructuredResult(text string, v any) *ToolResult {
	r := TextResult(text)
	r.Structured = v
	return r
}
