package sector

import (
	"context"
	"time"
)

// Retryable reruns an operation on retryable failure with capped exponential
// backoff. The zero value is unusable; build one with NewRetryable.
type Retryable struct {
	attempts int
	maxDelay time.Duration
	retryOn  func(error) bool
}

// NewRetryable builds a policy allowing attempts total invocations, backing
// off 1s, 2s, 4s... capped at maxDelay between them. retryOn decides which
// errors are worth another try; nil means IsRetryable.
func NewRetryable(attempts int, maxDelay time.Duration, retryOn func(error) bool) *Retryable {
	if attempts < 1 {
		attempts = 1
	}
	if retryOn == nil {
		retryOn = IsRetryable
	}
	return &Retryable{attempts: attempts, maxDelay: maxDelay, retryOn: retryOn}
}

// Run invokes op up to the configured attempt count. Non-retryable errors
// propagate immediately; retryable ones propagate only after the final
// attempt. Context cancellation interrupts the backoff sleep.
func (r *Retryable) Run(ctx context.Context, op func() error) error {
	delay := time.Second
	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil || !r.retryOn(err) || attempt >= r.attempts {
			return err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
	}
}
