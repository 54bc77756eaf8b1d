package chat

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 3, SuccessThreshold: 2, Cooldown: time.Minute})

	for range 2 {
		cb.Failure()
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s after 2 failures, want closed", cb.State())
	}

	cb.Failure()
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s after 3 failures, want open", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 3, SuccessThreshold: 2, Cooldown: time.Minute})

	cb.Failure()
	cb.Failure()
	cb.Success()
	cb.Failure()
	cb.Failure()

	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want closed since success reset the count", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Cooldown: 10 * time.Millisecond})

	cb.Failure()
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after cooldown = %v, want nil", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Errorf("state = %s, want half-open", cb.State())
	}
}

func TestCircuitBreaker_ClosesFromHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Cooldown: 10 * time.Millisecond})

	cb.Failure()
	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}

	cb.Success()
	if cb.State() != CircuitHalfOpen {
		t.Errorf("state = %s after one success, want half-open", cb.State())
	}
	cb.Success()
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s after two successes, want closed", cb.State())
	}
}

func TestCircuitBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Cooldown: 10 * time.Millisecond})

	cb.Failure()
	time.Sleep(20 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}

	cb.Failure()
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s after half-open failure, want open", cb.State())
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
