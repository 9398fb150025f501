// Package retry provides bounded retries with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	MaxAttempts int           // Maximum number of attempts (0 = infinite)
	InitialWait time.Duration // Wait before the second attempt
	MaxWait     time.Duration // Cap on the computed wait
	Multiplier  float64       // Backoff multiplier
	Jitter      float64       // Jitter factor (0-1)
}

// DefaultPolicy returns sensible defaults for transport calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     10 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
	}
}

// TransientError marks an error as worth retrying.
type TransientError struct {
	Err error
}

func (e TransientError) Error() string {
	return e.Err.Error()
}

func (e TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps an error to mark it as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return TransientError{Err: err}
}

// IsTransient reports whether the error is marked retryable.
func IsTransient(err error) bool {
	var te TransientError
	return errors.As(err, &te)
}

// Do runs fn until it succeeds, returns a non-transient error, or the
// attempt budget is exhausted.
func Do(ctx context.Context, p Policy, fn func() error) error {
	var lastErr error

	for attempt := 1; p.MaxAttempts == 0 || attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsTransient(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait(p, attempt)):
		}
	}

	return lastErr
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; p.MaxAttempts == 0 || attempt <= p.MaxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}

		lastErr = err

		if !IsTransient(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait(p, attempt)):
		}
	}

	return zero, lastErr
}

func wait(p Policy, attempt int) time.Duration {
	w := float64(p.InitialWait) * math.Pow(p.Multiplier, float64(attempt-1))
	if w > float64(p.MaxWait) {
		w = float64(p.MaxWait)
	}
	if p.Jitter > 0 {
		w += w * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(w)
}
