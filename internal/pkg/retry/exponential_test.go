package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func fastConfig() Config {
	return Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestExecute_SucceedsAfterRetries(t *testing.T) {
	r := New(fastConfig(), logger.NewNopLogger())
	calls := 0

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503 from provider")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_ExhaustsRetries(t *testing.T) {
	r := New(fastConfig(), nil)
	calls := 0
	cause := errors.New("still failing")

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return cause
	})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "retry limit exceeded after 4 attempts")
	assert.Equal(t, 4, calls)
}

func TestExecute_PermanentStopsImmediately(t *testing.T) {
	r := New(fastConfig(), nil)
	calls := 0
	cause := errors.New("422 invalid recipient")

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(cause)
	})

	assert.Equal(t, cause, err)
	assert.Equal(t, 1, calls)
	assert.Nil(t, Permanent(nil))
}

func TestExecute_RetryableFuncFilters(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryableFunc = NetworkRetryableFunc()
	r := New(cfg, nil)
	calls := 0

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("bad request")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_ContextCancelled(t *testing.T) {
	cfg := fastConfig()
	cfg.BaseDelay = time.Second
	cfg.MaxDelay = time.Second
	r := New(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Execute(ctx, func(ctx context.Context) error { return errors.New("fail") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCalculateDelayCapped(t *testing.T) {
	r := New(Config{BaseDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond, Multiplier: 2}, nil)

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(0))
	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 250*time.Millisecond, r.calculateDelay(5))
}

func TestNetworkRetryableFunc(t *testing.T) {
	f := NetworkRetryableFunc()

	assert.False(t, f(nil))
	assert.False(t, f(errors.New("validation failed")))
	assert.True(t, f(context.DeadlineExceeded))
	assert.True(t, f(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
}
