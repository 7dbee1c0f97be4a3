package errors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryer(attempts int) *Retryer {
	return NewRetryer(&RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRetryer_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := fastRetryer(3).Execute(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryer_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastRetryer(2).Execute(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, HasCode(err, ErrCodeInternalError))
	assert.ErrorContains(t, err, "connection refused")
}

func TestRetryer_StopsOnClientError(t *testing.T) {
	calls := 0
	err := fastRetryer(5).Execute(context.Background(), func(context.Context, int) error {
		calls++
		return New(ErrCodeInvalidRequest, "bad dsn")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, HasCode(err, ErrCodeInvalidRequest))
}

func TestRetryer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastRetryer(3).Execute(ctx, func(context.Context, int) error {
		t.Fatal("operation must not run")
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryer_CalculateDelay(t *testing.T) {
	r := NewRetryer(&RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     300 * time.Millisecond,
		Multiplier:   2,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(3), "capped at max delay")
}
