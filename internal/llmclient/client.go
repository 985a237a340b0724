// Package llmclient defines the uniform chat-completion surface the LLM
// Adapter (C5) dispatches to, and the concrete backend implementations
// (local grammar-capable, OpenAI-compatible, hosted gateway). Cross-cutting
// concerns — retries, rate limiting, deadline handling, JSON-shape
// enforcement — live one layer up, in internal/llm, applied as middleware.
package llmclient

import (
	"context"
	"encoding/json"
)

// Client is the uniform surface every backend variant implements.
type Client interface {
	Name() string
	// GenerateJSON sends system+user prompts and asks for a JSON-shaped
	// completion capped at maxTokens. It does not itself retry or enforce a
	// deadline beyond what ctx already carries.
	GenerateJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error)
	Close() error
}

// PermanentError marks a backend failure that retrying will not fix (e.g.
// 4xx other than 429). Middleware.Retry checks for this via errors.As and
// gives up immediately instead of burning its retry budget.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
