package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	errTemp := errors.New("temporary failure")

	tests := []struct {
		name             string
		failUntilN       int
		maxRetries       int
		expectedAttempts int
		shouldSucceed    bool
	}{
		{name: "第一次就成功", failUntilN: 1, maxRetries: 3, expectedAttempts: 1, shouldSucceed: true},
		{name: "第二次成功", failUntilN: 2, maxRetries: 3, expectedAttempts: 2, shouldSucceed: true},
		{name: "最后一次重试成功", failUntilN: 4, maxRetries: 3, expectedAttempts: 4, shouldSucceed: true},
		{name: "全部失败", failUntilN: 10, maxRetries: 3, expectedAttempts: 4, shouldSucceed: false},
		{name: "不重试", failUntilN: 10, maxRetries: 0, expectedAttempts: 1, shouldSucceed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), func() error {
				attempts++
				if attempts < tt.failUntilN {
					return errTemp
				}
				return nil
			}, WithMaxRetries(tt.maxRetries), WithInitialDelay(time.Millisecond))

			assert.Equal(t, tt.expectedAttempts, attempts)
			if tt.shouldSucceed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errTemp)
			}
		})
	}
}

func TestDo_RetryIf(t *testing.T) {
	errFatal := errors.New("fatal")
	errLimited := errors.New("rate limited")

	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return errFatal
	}, WithInitialDelay(time.Millisecond), WithRetryIf(func(err error) bool {
		return errors.Is(err, errLimited)
	}))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, errFatal, err)

	attempts = 0
	err = Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errLimited
		}
		return nil
	}, WithInitialDelay(time.Millisecond), WithRetryIf(func(err error) bool {
		return errors.Is(err, errLimited)
	}))
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(ctx, func() error {
		attempts++
		cancel()
		return errors.New("boom")
	}, WithInitialDelay(time.Second))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_NilFunction(t *testing.T) {
	assert.Error(t, Do(context.Background(), nil))
}

func TestCalculateDelay(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{10, time.Second},
	}
	for _, tt := range tests {
		got := calculateDelay(tt.attempt, 100*time.Millisecond, time.Second, 2.0)
		assert.Equal(t, tt.expected, got)
	}
}

func TestInvalidOptionsKeepDefaults(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []Option{WithMaxRetries(-1), WithInitialDelay(0), WithMaxDelay(-time.Second), WithMultiplier(0), WithRetryIf(nil)} {
		opt(cfg)
	}
	assert.Equal(t, 3, cfg.maxRetries)
	assert.Equal(t, time.Second, cfg.initialDelay)
	assert.Equal(t, 30*time.Second, cfg.maxDelay)
	assert.Equal(t, 2.0, cfg.multiplier)
	assert.NotNil(t, cfg.retryIf)
}
