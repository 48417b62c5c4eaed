package providers

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Breaker stops calling an upstream that keeps failing and fails fast with
// gobreaker.ErrOpenState until the timeout passes
type Breaker struct {
	next Generator
	cb   *gobreaker.CircuitBreaker
}

var _ Generator = (*Breaker)(nil)

// BreakerSettings tunes a Breaker
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open
	Timeout time.Duration
}

// DefaultBreakerSettings trips after five failures in a row and retries
// after thirty seconds
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, Timeout: 30 * time.Second}
}

// WithBreaker wraps g
func WithBreaker(g Generator, settings BreakerSettings, logger zerolog.Logger) *Breaker {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        g.Name(),
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		// a caller giving up says nothing about the upstream
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return &Breaker{next: g, cb: cb}
}

// Name implements Generator
func (b *Breaker) Name() string { return b.next.Name() }

// Unwrap returns the wrapped generator
func (b *Breaker) Unwrap() Generator { return b.next }

// Generate implements Generator
func (b *Breaker) Generate(ctx context.Context, req Request) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
