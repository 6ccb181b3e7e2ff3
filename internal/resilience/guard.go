// Package resilience guards calls to remote collaborators with a rate
// limiter, a circuit breaker and a per-call timeout. Failures worth retrying
// come back as domain.TransientError; the guard itself never retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"

	"medrag/internal/domain"
)

// StatusError is a non-2xx answer from an HTTP collaborator.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "unexpected status " + e.Status
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// Retryable reports whether the status signals throttling or a server fault.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Config configures a Guard.
type Config struct {
	Name           string
	RequestsPerMin int // 0 disables rate limiting
	Timeout        time.Duration
	Logger         *slog.Logger
}

// Guard wraps remote calls of one collaborator.
type Guard struct {
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New creates a Guard.
func New(cfg Config) *Guard {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{name: cfg.Name, timeout: cfg.Timeout}
	if cfg.RequestsPerMin > 0 {
		burst := cfg.RequestsPerMin / 10
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMin)/60.0), burst)
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// Client errors say nothing about the collaborator's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
	})
	return g
}

// Name returns the guarded collaborator's name.
func (g *Guard) Name() string { return g.name }

// Do runs fn under the limiter, the breaker and the timeout. op names the
// call in errors.
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, fmt.Errorf("%s: %w", op, ctx.Err())
			}
			// The wait would outlast the deadline.
			return nil, domain.Transient(op, err)
		}
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, classify(ctx, op, err)
	}
	return out, nil
}

// IsRetryable reports whether err is a failure the collaborator may recover from.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if domain.IsTransient(err) {
		return true
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return ge.Code == http.StatusTooManyRequests || ge.Code >= http.StatusInternalServerError
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

func classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if IsRetryable(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Transient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
