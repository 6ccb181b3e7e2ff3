package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"medrag/internal/domain"
)

func TestDoReturnsResult(t *testing.T) {
	g := New(Config{Name: "test"})
	out, err := g.Do(context.Background(), "call", func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, "test", g.Name())
}

func TestDoTimeoutIsTransient(t *testing.T) {
	g := New(Config{Name: "slow", Timeout: 20 * time.Millisecond})
	_, err := g.Do(context.Background(), "embed", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Contains(t, err.Error(), "embed")
}

func TestDoCancellationIsNotTransient(t *testing.T) {
	g := New(Config{Name: "cancel"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Do(ctx, "embed", func(ctx context.Context) (any, error) {
		return nil, ctx.Err()
	})
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoStatusErrors(t *testing.T) {
	g := New(Config{Name: "status"})
	_, err := g.Do(context.Background(), "chat", func(ctx context.Context) (any, error) {
		return nil, &StatusError{Code: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}
	})
	assert.True(t, domain.IsTransient(err))

	_, err = g.Do(context.Background(), "chat", func(ctx context.Context) (any, error) {
		return nil, &StatusError{Code: http.StatusBadRequest, Status: "400 Bad Request", Body: "bad input"}
	})
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
	assert.Contains(t, err.Error(), "bad input")
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	g := New(Config{Name: "flaky"})
	boom := &StatusError{Code: http.StatusBadGateway, Status: "502 Bad Gateway"}
	for i := 0; i < 5; i++ {
		_, _ = g.Do(context.Background(), "chat", func(ctx context.Context) (any, error) { return nil, boom })
	}
	called := false
	_, err := g.Do(context.Background(), "chat", func(ctx context.Context) (any, error) {
		called = true
		return "ok", nil
	})
	assert.False(t, called)
	assert.True(t, domain.IsTransient(err))
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	g := New(Config{Name: "client"})
	bad := errors.New("malformed request")
	for i := 0; i < 10; i++ {
		_, _ = g.Do(context.Background(), "chat", func(ctx context.Context) (any, error) { return nil, bad })
	}
	out, err := g.Do(context.Background(), "chat", func(ctx context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestLimiterWaitBeyondDeadlineIsTransient(t *testing.T) {
	g := New(Config{Name: "limited", RequestsPerMin: 1})
	_, err := g.Do(context.Background(), "first", func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Do(ctx, "second", func(ctx context.Context) (any, error) { return nil, nil })
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestGoogleAPIErrors(t *testing.T) {
	assert.True(t, IsRetryable(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusInternalServerError})))
	assert.False(t, IsRetryable(&googleapi.Error{Code: http.StatusForbidden}))
}
