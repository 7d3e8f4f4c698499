package core

import (
	"context"
	"encoding/json"
)

// StructuredRequest is one structured-output model call: system prompt,
// user prompt, and a fixed JSON schema the reply must match.
type StructuredRequest struct {
	System      string
	User        string
	SchemaName  string
	Schema      map[string]any
	Temperature float64
}

// LLMClient abstracts the hosted model API (OpenRouter, local LLM, etc).
// The core treats it as an opaque function that fails closed on malformed
// output: callers parse the raw JSON and discard anything invalid.
type LLMClient interface {
	CompleteStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
}
