package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

type limitedProvider struct {
	next    Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps p so that at most requestsPerMinute streams are
// started per minute, with a burst of one. Callers block until capacity is
// available or ctx is done. A non-positive limit returns p unchanged.
func WithRateLimit(p Provider, requestsPerMinute int) Provider {
	if p == nil || requestsPerMinute <= 0 {
		return p
	}
	return &limitedProvider{
		next:    p,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// StreamCompletion waits for the limiter before delegating.
func (l *limitedProvider) StreamCompletion(ctx context.Context, req *Request) (<-chan *StreamChunk, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return l.next.StreamCompletion(ctx, req)
}

func (l *limitedProvider) GetModel() string {
	return l.next.GetModel()
}
