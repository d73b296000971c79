// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package utils provides utility functions for the unfair wheel service.
package utils

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig bounds a retried operation: how many attempts to make and how
// long to wait between them.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryConfig creates a RetryConfig with the given bounds.
func NewRetryConfig(maxAttempts int, baseDelay, maxDelay time.Duration) RetryConfig {
	return RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
}

// delayBefore returns the wait preceding the given attempt, doubling from
// BaseDelay and capped at MaxDelay. The first attempt never waits.
func (c RetryConfig) delayBefore(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := c.BaseDelay << uint(attempt-2)
	if delay > c.MaxDelay || delay <= 0 {
		return c.MaxDelay
	}
	return delay
}

// RetryWithExponentialBackoff runs fn until it succeeds or the configured
// attempts are exhausted. The first attempt runs immediately; each retry
// waits exponentially longer, honoring context cancellation during the wait.
// The last failure is wrapped into the returned error.
func RetryWithExponentialBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if wait := config.delayBefore(attempt); wait > 0 {
			slog.WarnContext(ctx, "retry scheduled",
				"attempt", attempt,
				"max_attempts", config.MaxAttempts,
				"wait_ms", wait.Milliseconds(),
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("retry wait interrupted: %w", ctx.Err())
			}
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				slog.InfoContext(ctx, "recovered after retry",
					"attempt", attempt,
					"max_attempts", config.MaxAttempts,
				)
			}
			return nil
		}

		slog.ErrorContext(ctx, "attempt failed",
			"attempt", attempt,
			"max_attempts", config.MaxAttempts,
			"error", lastErr,
		)
	}

	return fmt.Errorf("giving up after %d attempts: %w", config.MaxAttempts, lastErr)
}
