package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"BubbleSentinel/internal/metrics"
)

// GuardConfig tunes upstream throttling and the circuit breaker.
type GuardConfig struct {
	RatePerSecond float64
	Burst         int
	MaxFailures   uint32        // consecutive failures before the breaker opens
	OpenTimeout   time.Duration // how long the breaker stays open
}

// DefaultGuardConfig stays well inside the public Yahoo chart API's tolerance.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RatePerSecond: 2,
		Burst:         4,
		MaxFailures:   5,
		OpenTimeout:   30 * time.Second,
	}
}

// Guard rate-limits and circuit-breaks calls to one upstream provider.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Registry
}

// NewGuard creates a guard for the named provider. reg may be nil.
func NewGuard(name string, cfg GuardConfig, reg *metrics.Registry) *Guard {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultGuardConfig().RatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultGuardConfig().MaxFailures
	}
	maxFailures := cfg.MaxFailures
	return &Guard{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || callerAborted(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).
					Msg("circuit breaker state change")
			},
		}),
		metrics: reg,
	}
}

// callerDoneError marks a failure that happened after the caller's context
// ended. The provider is not to blame for it.
type callerDoneError struct{ err error }

func (e *callerDoneError) Error() string { return e.err.Error() }
func (e *callerDoneError) Unwrap() error { return e.err }

// callerAborted reports errors that must not count against the breaker.
func callerAborted(err error) bool {
	var done *callerDoneError
	return errors.Is(err, context.Canceled) || errors.As(err, &done)
}

// Do waits for a rate token and runs fn through the circuit breaker.
// A nil Guard runs fn directly. Cancellations and failures after ctx is done
// are passed through without tripping the breaker.
func (g *Guard) Do(ctx context.Context, fn func() error) error {
	if g == nil {
		return fn()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// Wait refuses up front when the token would arrive after the deadline.
		return fmt.Errorf("%v: %w", err, context.DeadlineExceeded)
	}
	start := time.Now()
	_, err := g.breaker.Execute(func() (interface{}, error) {
		err := fn()
		if err != nil && ctx.Err() != nil {
			err = &callerDoneError{err: err}
		}
		return nil, err
	})
	if g.metrics != nil {
		result := "ok"
		switch {
		case err != nil && callerAborted(err):
			result = "cancelled"
		case err != nil:
			result = "error"
		}
		g.metrics.ProviderFetches.WithLabelValues(g.name, result).Inc()
		g.metrics.ProviderLatency.WithLabelValues(g.name).Observe(time.Since(start).Seconds())
	}
	return err
}

// State reports the breaker state for health output.
func (g *Guard) State() string {
	if g == nil {
		return "disabled"
	}
	return g.breaker.State().String()
}
