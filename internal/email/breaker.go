package email

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/dukerupert/homebase/internal/metrics"
)

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// BreakerSettings tunes when the email breaker opens and how long it stays open.
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker once reached.
	ConsecutiveFailures uint32
	// OpenFor is how long sends are rejected before a trial send is allowed.
	OpenFor time.Duration
}

// DefaultBreakerSettings opens after five straight failures for one minute.
var DefaultBreakerSettings = BreakerSettings{ConsecutiveFailures: 5, OpenFor: time.Minute}

// Breaker stops calling the mail provider while it keeps failing, so a
// Postmark outage does not stall every job run on HTTP timeouts.
type Breaker struct {
	next Sender
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(next Sender, settings BreakerSettings, logger *slog.Logger) *Breaker {
	const name = "postmark"
	metrics.BreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("email circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Send forwards to the wrapped sender unless the breaker is open, in which
// case gobreaker.ErrOpenState is returned without a network call.
func (b *Breaker) Send(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, msg)
	})
	return err
}

// State reports the breaker state, for health output and tests.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
