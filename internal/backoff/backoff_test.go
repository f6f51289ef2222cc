package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsOnLaterAttempt(t *testing.T) {
	attempts := 0
	cfg := Config{MaxAttempts: 3, Base: time.Millisecond, Max: 5 * time.Millisecond}
	err := Retry(context.Background(), cfg, func(attempt int) error {
		attempts++
		if attempt < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	cfg := Config{MaxAttempts: 2, Base: time.Millisecond, Max: time.Millisecond}
	attempts := 0
	err := Retry(context.Background(), cfg, func(attempt int) error {
		attempts++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, DefaultConfig(), func(attempt int) error {
		t.Fatalf("fn should not run with an already-cancelled context")
		return nil
	})
	if err == nil {
		t.Fatalf("expected context error")
	}
}
