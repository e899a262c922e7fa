package vigil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond})

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond})
	wantErr := errors.New("persistent")

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want last error", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	r := NewRetryer(RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		RetryIf:        func(err error) bool { return !errors.Is(err, permanent) },
	})

	attempts := 0
	err := r.Do(context.Background(), func() error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("err = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxAttempts: 10, InitialBackoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, func() error {
			attempts++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryZeroConfigDefaults(t *testing.T) {
	r := NewRetryer(RetryConfig{})
	if r.config.MaxAttempts != 3 || r.config.Multiplier != 2.0 {
		t.Errorf("defaults not applied: %+v", r.config)
	}
}
