package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	p := Policy{Attempts: 3, InitialBackoff: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	p := Policy{Attempts: 2, InitialBackoff: time.Millisecond}
	sentinel := errors.New("still broken")
	calls := 0
	err := p.Do(context.Background(), func(_ context.Context) error {
		calls++
		return sentinel
	})
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 5, InitialBackoff: time.Hour}
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(_ context.Context) error {
			calls++
			return errors.New("failing")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected a single call before cancellation, got %d", calls)
	}
}
