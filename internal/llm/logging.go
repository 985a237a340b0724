package llm

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ai-hr/interview-core/internal/llmclient"
)

// WithLogging logs request size and errors using a plain *log.Logger
// (the teacher does not use a structured logging library; nil selects
// log.Default()).
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.Client) llmclient.Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error) {
	l.log.Printf("llm request backend=%s bytes=%d maxTokens=%d", l.next.Name(), len(system)+len(user), maxTokens)
	raw, err := l.next.GenerateJSON(ctx, system, user, maxTokens)
	if err != nil {
		l.log.Printf("llm error backend=%s: %v", l.next.Name(), err)
	}
	return raw, err
}
