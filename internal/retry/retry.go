// Package retry runs calls to hosted APIs with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy holds retry configuration.
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultPolicy suits the transcript, summarizer and email APIs: a few
// quick attempts, since a user is usually waiting on the response.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// backOff builds the exponential schedule for p. Zero fields keep the
// library defaults.
func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialDelay > 0 {
		b.InitialInterval = p.InitialDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	if p.BackoffFactor >= 1 {
		b.Multiplier = p.BackoffFactor
	}
	return b
}

// Do calls fn until it succeeds, retryable reports false for its error,
// attempts run out, or ctx is done. A nil retryable retries every error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), retryable func(error) bool) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	operation := func() (T, error) {
		result, err := fn(ctx)
		if err != nil && retryable != nil && !retryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		return zero, err
	}
	return result, nil
}

// StatusRetryable reports whether an HTTP status is worth retrying.
func StatusRetryable(status int) bool {
	return status == 429 || status >= 500
}
