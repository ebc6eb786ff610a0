package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	berrors "github.com/harmonikprz/malibu-bot/internal/errors"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return berrors.ErrTimeout
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	permanent := errors.New("permanent")
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryAllRetriesEverything(t *testing.T) {
	calls := 0
	cfg := Fixed(3, time.Millisecond)
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := Config{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, RetryAll: true}
	err := Do(ctx, cfg, func(ctx context.Context) error {
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
