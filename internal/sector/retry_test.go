package sector

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryableExhaustsAttempts(t *testing.T) {
	r := NewRetryable(3, 50*time.Millisecond, func(error) bool { return true })
	calls := 0
	wantErr := errors.New("always failing")

	err := r.Run(context.Background(), func() error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the operation error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 invocations, got %d", calls)
	}
}

func TestRetryableStopsOnNonRetryable(t *testing.T) {
	r := NewRetryable(5, 50*time.Millisecond, nil)
	calls := 0

	err := r.Run(context.Background(), func() error {
		calls++
		return &LoginError{Reason: "bad credentials"}
	})

	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-retryable error must not be retried, got %d calls", calls)
	}
}

func TestRetryableSucceedsMidway(t *testing.T) {
	r := NewRetryable(3, 50*time.Millisecond, func(error) bool { return true })
	calls := 0

	err := r.Run(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 invocations, got %d", calls)
	}
}

func TestRetryableFirstBackoffRespectsCap(t *testing.T) {
	r := NewRetryable(2, 20*time.Millisecond, func(error) bool { return true })

	start := time.Now()
	r.Run(context.Background(), func() error { return errors.New("transient") })
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Fatalf("first backoff exceeded the cap, two attempts took %v", elapsed)
	}
}

func TestRetryableContextCancelDuringBackoff(t *testing.T) {
	r := NewRetryable(3, time.Minute, func(error) bool { return true })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, func() error { return errors.New("transient") })
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRetryableMinimumOneAttempt(t *testing.T) {
	r := NewRetryable(0, time.Second, nil)
	calls := 0
	r.Run(context.Background(), func() error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Fatalf("expected exactly one invocation, got %d", calls)
	}
}
