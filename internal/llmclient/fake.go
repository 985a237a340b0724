package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// FakeClient is a deterministic, offline stand-in used by tests and by
// LLM_PROVIDER=fake deployments (demo mode without a real backend key).
// Grounded on internal/llm/fakeLLM.go: a canned-response queue with a call
// counter, no network I/O.
type FakeClient struct {
	responses []json.RawMessage
	errs      []error
	calls     atomic.Int64
}

// NewFakeClient cycles through responses on successive calls, repeating the
// last one once exhausted. A nil error slice means every call succeeds.
func NewFakeClient(responses ...json.RawMessage) *FakeClient {
	return &FakeClient{responses: responses}
}

// WithErrors makes the i-th call (0-indexed) return err instead of a
// response, for exercising retry/fallback paths in tests.
func (f *FakeClient) WithErrors(errs ...error) *FakeClient {
	f.errs = errs
	return f
}

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error) {
	i := int(f.calls.Add(1)) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("fake llm: no canned responses configured")
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return f.responses[i], nil
}

// Calls reports how many times GenerateJSON has been invoked.
func (f *FakeClient) Calls() int { return int(f.calls.Load()) }
