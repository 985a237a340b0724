package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ai-hr/interview-core/internal/llmclient"
)

// rpsLimiter is a token-bucket limiter that throttles to at most R events
// per second with a burst capacity. Grounded on internal/llm/ratelimit.go.
type rpsLimiter struct {
	tokens chan struct{}
	stopCh chan struct{}
}

func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	l := &rpsLimiter{tokens: make(chan struct{}, burst), stopCh: make(chan struct{})}
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}
	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
				}
			case <-l.stopCh:
				return
			}
		}
	}()
	return l
}

func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	close(l.stopCh)
}

// RateLimit throttles GenerateJSON calls to rps requests/second with the
// given burst. Used to keep the interview process within a backend's
// concurrent-call budget regardless of how many sessions are in flight.
func RateLimit(rps float64, burst int) Middleware {
	limiter := newRPSLimiter(rps, burst)
	return func(next llmclient.Client) llmclient.Client {
		return &rateLimited{next: next, limiter: limiter}
	}
}

type rateLimited struct {
	next    llmclient.Client
	limiter *rpsLimiter
}

func (r *rateLimited) Name() string { return r.next.Name() }
func (r *rateLimited) Close() error {
	r.limiter.Stop()
	return r.next.Close()
}

func (r *rateLimited) GenerateJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error) {
	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return r.next.GenerateJSON(ctx, system, user, maxTokens)
}
