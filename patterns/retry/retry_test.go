package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, BackoffFactor: 2, MaxDelay: 10 * time.Millisecond}
}

func TestDo_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(context.Context, int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryThenSucceed(t *testing.T) {
	var retried []int
	cfg := fastConfig(5)
	cfg.OnRetry = func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) }

	err := Do(context.Background(), cfg, func(_ context.Context, attempt int) error {
		if attempt < 3 {
			return errors.New("not ready")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ReturnsLastError(t *testing.T) {
	calls := 0
	last := errors.New("attempt 3")
	err := Do(context.Background(), fastConfig(3), func(_ context.Context, attempt int) error {
		calls++
		if attempt == 3 {
			return last
		}
		return errors.New("earlier")
	})
	assert.Same(t, last, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Config{}, func(context.Context, int) error {
		calls++
		return errors.New("x")
	})
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := Config{MaxAttempts: 10, InitialDelay: time.Hour, BackoffFactor: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cfg.OnRetry = func(int, time.Duration, error) { cancel() }

	err := Do(ctx, cfg, func(context.Context, int) error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfig_Delay(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, BackoffFactor: 2, MaxDelay: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, 300*time.Millisecond, cfg.Delay(3))

	flat := Config{InitialDelay: 50 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, flat.Delay(4))
}
