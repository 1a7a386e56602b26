package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Jitter: FullJitter}

	calls := 0
	classify := func(err error) Decision { return Retry }

	result, err := Do(context.Background(), cfg, classify, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 3, calls)
}

func TestDo_StopsOnTerminalError(t *testing.T) {
	cfg := Default()
	terminal := errors.New("parse error")
	classify := func(err error) Decision { return Stop }

	calls := 0
	_, err := Do(context.Background(), cfg, classify, func(ctx context.Context) (int, error) {
		calls++
		return 0, terminal
	})

	require.ErrorIs(t, err, terminal)
	require.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Jitter: FullJitter}
	calls := 0
	_, err := Do(context.Background(), cfg, AlwaysRetry, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	require.Error(t, err)
	require.Equal(t, 3, calls) // initial + 2 retries
}

func TestConfig_Delay_Bounds(t *testing.T) {
	cfg := Config{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 400 * time.Millisecond, Jitter: FullJitter}.WithSeed(42)

	for attempt := uint32(0); attempt < 5; attempt++ {
		d := cfg.Delay(attempt)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, cfg.MaxDelay)
	}
}

func TestConfig_Delay_Deterministic(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second, Jitter: EqualJitter}

	a := cfg.WithSeed(7).Delay(2)
	b := cfg.WithSeed(7).Delay(2)
	require.Equal(t, a, b)
}

func TestDo_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Default()
	_, err := Do(ctx, cfg, AlwaysRetry, func(ctx context.Context) (int, error) {
		return 0, errors.New("should not be called repeatedly")
	})
	require.Error(t, err)
}
