package usecase

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"leadgen-agent/internal/domain"
)

// Generator is the generation collaborator: a prompt in, text and grounding
// links out.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (domain.Generation, error)
}

// ThrottledGenerator spaces calls to the wrapped Generator with a token bucket.
type ThrottledGenerator struct {
	next    Generator
	limiter *rate.Limiter
	observe func(seconds float64)
}

// NewThrottledGenerator wraps next with a limiter allowing rps calls per
// second with the given burst. A non-positive rps disables throttling and
// returns next unchanged. observe, when set, receives each wait in seconds.
func NewThrottledGenerator(next Generator, rps float64, burst int, observe func(seconds float64)) Generator {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &ThrottledGenerator{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		observe: observe,
	}
}

func (t *ThrottledGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (domain.Generation, error) {
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return domain.Generation{}, err
	}
	if t.observe != nil {
		t.observe(time.Since(start).Seconds())
	}
	return t.next.Generate(ctx, req)
}
