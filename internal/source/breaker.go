package source

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/nuestro-pulso/pulso-search/internal/model"
)

// BreakerSettings tunes the per-upstream circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker; zero disables tripping.
	ConsecutiveFailures uint32
	Cooldown            time.Duration
}

// Breaker wraps an Adapter so a failing upstream is skipped for a cooldown
// instead of being called on every miss. Only Unavailable and RateLimited
// failures count towards tripping.
type Breaker struct {
	next Adapter
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next Adapter, s BreakerSettings, log zerolog.Logger) *Breaker {
	st := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return s.ConsecutiveFailures > 0 && c.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			k, ok := model.KindOf(err)
			return ok && k != model.KindUnavailable && k != model.KindRateLimited
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("upstream", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *Breaker) Name() string     { return b.next.Name() }
func (b *Breaker) Configured() bool { return b.next.Configured() }

// State exposes the breaker state for health reporting.
func (b *Breaker) State() string { return b.cb.State().String() }

func (b *Breaker) Fetch(ctx context.Context, q model.Query) ([]model.ResultRecord, error) {
	if !b.next.Configured() {
		return nil, model.ErrNotConfigured
	}
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Fetch(ctx, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, model.NewUpstreamError(b.Name(), model.KindUnavailable, 0, err)
		}
		return nil, err
	}
	recs, _ := out.([]model.ResultRecord)
	return recs, nil
}
