// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayBefore(t *testing.T) {
	config := NewRetryConfig(8, 10*time.Millisecond, 50*time.Millisecond)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 0},
		{attempt: 2, want: 10 * time.Millisecond},
		{attempt: 3, want: 20 * time.Millisecond},
		{attempt: 4, want: 40 * time.Millisecond},
		{attempt: 5, want: 50 * time.Millisecond},
		{attempt: 8, want: 50 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, config.delayBefore(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestDelayBeforeOverflowCapped(t *testing.T) {
	// Shifting a large base far enough overflows the duration; the cap must
	// still hold.
	config := NewRetryConfig(70, time.Hour, 2*time.Hour)

	assert.Equal(t, 2*time.Hour, config.delayBefore(65))
}

func TestRetrySucceedsImmediately(t *testing.T) {
	config := NewRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond)

	calls := 0
	start := time.Now()
	err := RetryWithExponentialBackoff(context.Background(), config, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 10*time.Millisecond, "a passing first attempt never waits")
}

func TestRetryRecovers(t *testing.T) {
	config := NewRetryConfig(4, 5*time.Millisecond, 50*time.Millisecond)

	calls := 0
	err := RetryWithExponentialBackoff(context.Background(), config, func() error {
		calls++
		if calls < 3 {
			return errors.New("bucket not ready")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls, "stops at the first success")
}

func TestRetryExhaustsAttempts(t *testing.T) {
	config := NewRetryConfig(3, time.Millisecond, 10*time.Millisecond)

	cause := errors.New("kv put failed")
	calls := 0
	err := RetryWithExponentialBackoff(context.Background(), config, func() error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, cause, "the last failure stays reachable through the wrapper")
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := NewRetryConfig(5, 50*time.Millisecond, time.Second)

	calls := 0
	err := RetryWithExponentialBackoff(ctx, config, func() error {
		calls++
		if calls == 1 {
			cancel()
		}
		return errors.New("still failing")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "retry wait interrupted")
	assert.Equal(t, 1, calls, "cancellation during the wait prevents the next attempt")
}

func TestRetryWaitsBetweenAttempts(t *testing.T) {
	config := NewRetryConfig(3, 10*time.Millisecond, time.Second)

	var stamps []time.Time
	_ = RetryWithExponentialBackoff(context.Background(), config, func() error {
		stamps = append(stamps, time.Now())
		return errors.New("nope")
	})

	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 10*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 20*time.Millisecond)
}

func TestRetrySingleAttemptNeverWaits(t *testing.T) {
	config := NewRetryConfig(1, time.Minute, time.Hour)

	calls := 0
	start := time.Now()
	err := RetryWithExponentialBackoff(context.Background(), config, func() error {
		calls++
		return errors.New("single shot")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second, "no backoff applies to a one-attempt config")
	assert.Contains(t, err.Error(), "giving up after 1 attempts")
}
