package browser

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out network-facing browser actions. Every Wait takes a token
// from a rate limiter and then sleeps a random delay in [min, max], so a
// search never looks like a scripted burst.
type Pacer struct {
	min, max time.Duration
	limiter  *rate.Limiter
	jitter   func(n int64) int64
}

// NewPacer creates a pacer. A non-positive perMinute disables the rate
// limit and keeps only the jitter.
func NewPacer(min, max time.Duration, perMinute int) *Pacer {
	if max < min {
		min, max = max, min
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Pacer{
		min:     min,
		max:     max,
		limiter: rate.NewLimiter(limit, 1),
		jitter:  rand.Int64N,
	}
}

// Delay picks the next random delay.
func (p *Pacer) Delay() time.Duration {
	span := int64(p.max - p.min)
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(p.jitter(span+1))
}

// Wait blocks for the rate limiter and one random delay, or until ctx is
// done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	d := p.Delay()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
