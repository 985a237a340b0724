// Package llm implements the LLM Adapter (C5): a backend-agnostic
// GenerateReply that wraps a llmclient.Client with retry, rate limiting,
// and logging middleware, enforces the reply JSON shape, and falls back to
// a heuristic template when the backend cannot produce one in time.
//
// Grounded on the teacher's internal/llm package: Middleware/Wrap here
// mirror its middleware.go, Retry mirrors middleware_retry.go, the rate
// limiter mirrors ratelimit.go+broker.go, and the JSON fallback extraction
// mirrors sanitize.go's tree-walking approach (repurposed from media
// redaction to brace-balanced substring extraction).
package llm

import "github.com/ai-hr/interview-core/internal/llmclient"

// Middleware wraps a Client with a cross-cutting concern.
type Middleware func(llmclient.Client) llmclient.Client

// Wrap applies middlewares left-to-right: Wrap(inner, A, B) => A(B(inner)).
func Wrap(inner llmclient.Client, mws ...Middleware) llmclient.Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}
