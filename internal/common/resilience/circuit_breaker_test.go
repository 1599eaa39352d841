package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	commonerrors "github.com/AlibekovAA/taskflow/backend/internal/common/errors"
)

var errNotFound = errors.New("not found")

func newTestBreaker(threshold int32, timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Threshold:  threshold,
		Timeout:    timeout,
		ResetAfter: time.Minute,
		Name:       "test",
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, errNotFound)
		},
	})
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := newTestBreaker(2, time.Second)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := cb.Call(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected boom, got %v", i, err)
		}
	}

	err := cb.Call(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, commonerrors.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_IgnoresExpectedErrors(t *testing.T) {
	cb := newTestBreaker(1, time.Second)

	for i := 0; i < 3; i++ {
		err := cb.Call(context.Background(), func(context.Context) error { return errNotFound })
		if !errors.Is(err, errNotFound) {
			t.Fatalf("expected errNotFound, got %v", err)
		}
	}
	if cb.IsOpen() {
		t.Error("expected circuit to stay closed")
	}
}

func TestCircuitBreaker_BoundsCallWithTimeout(t *testing.T) {
	cb := newTestBreaker(5, 20*time.Millisecond)

	err := cb.Call(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	cb := newTestBreaker(2, time.Second)
	boom := errors.New("boom")

	_ = cb.Call(context.Background(), func(context.Context) error { return boom })
	_ = cb.Call(context.Background(), func(context.Context) error { return nil })
	_ = cb.Call(context.Background(), func(context.Context) error { return boom })

	if cb.IsOpen() {
		t.Error("expected circuit closed after intermediate success")
	}
}

func TestCircuitBreaker_Fallback(t *testing.T) {
	cb := newTestBreaker(1, time.Second)
	fallbackCalled := false

	err := cb.CallWithFallback(context.Background(),
		func(context.Context) error { return errors.New("boom") },
		func() error {
			fallbackCalled = true
			return nil
		},
	)
	if err != nil {
		t.Fatalf("expected fallback result, got %v", err)
	}
	if !fallbackCalled {
		t.Error("expected fallback to be called")
	}
}
