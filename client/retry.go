package client

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds a retried operation. Delay maps a 1-based attempt
// number to the wait before the next attempt.
type RetryPolicy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
}

// FixedDelay waits the same duration between every attempt.
func FixedDelay(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// CappedLinear grows the wait by step per attempt up to max.
func CappedLinear(step, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := step * time.Duration(attempt)
		if d > max {
			d = max
		}
		return d
	}
}

func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	d := time.Duration(0)
	if p.Delay != nil {
		d = p.Delay(attempt)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn until it succeeds or the policy is exhausted. The last
// error is returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if attempt < p.MaxAttempts {
			if err := p.wait(ctx, attempt); err != nil {
				return err
			}
		}
	}
	return last
}

// PollUntil probes a condition, waiting before each probe. Probe errors
// do not stop the poll. It returns an error if the condition never
// holds within the policy's attempts.
func (p RetryPolicy) PollUntil(ctx context.Context, fn func(ctx context.Context) (bool, error)) error {
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := p.wait(ctx, attempt); err != nil {
			return err
		}
		done, err := fn(ctx)
		if done {
			return nil
		}
		if err != nil {
			last = err
		}
	}
	if last != nil {
		return fmt.Errorf("condition not met after %d attempts: %w", p.MaxAttempts, last)
	}
	return fmt.Errorf("condition not met after %d attempts", p.MaxAttempts)
}
