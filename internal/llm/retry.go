package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ai-hr/interview-core/internal/llmclient"
)

// Retry retries GenerateJSON up to maxAttempts with exponential backoff
// starting at baseDelay. It gives up immediately on a PermanentError or if
// less than minRemaining is left on the context deadline before the next
// attempt (spec.md §4.5: "retry once only if the remaining deadline budget
// exceeds 1s").
func Retry(maxAttempts int, baseDelay, minRemaining time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next llmclient.Client) llmclient.Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay, minRemaining: minRemaining}
	}
}

type retrying struct {
	next         llmclient.Client
	max          int
	base         time.Duration
	minRemaining time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := r.next.GenerateJSON(ctx, system, user, maxTokens)
		if err == nil {
			return resp, nil
		}
		var pErr *llmclient.PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if i+1 < r.max && !hasBudgetFor(ctx, r.minRemaining) {
			break
		}
		time.Sleep(r.base * time.Duration(1<<i))
	}
	return nil, last
}

func hasBudgetFor(ctx context.Context, min time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) >= min
}
