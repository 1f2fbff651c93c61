package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := New(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errBoom }); err != errBoom {
			t.Fatalf("call %d: got %v, want errBoom", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("got %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("function executed while circuit open")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New(2, 1, time.Minute)

	b.Execute(func() error { return errBoom })
	b.Execute(func() error { return nil })
	b.Execute(func() error { return errBoom })

	if b.State() != Closed {
		t.Errorf("non-consecutive failures tripped the circuit")
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := New(1, 2, 10*time.Millisecond)

	b.Execute(func() error { return errBoom })
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	time.Sleep(20 * time.Millisecond)

	// First probe transitions to half-open and succeeds.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe 1: %v", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe 2: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("state = %v, want closed after success threshold", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New(1, 2, 10*time.Millisecond)

	b.Execute(func() error { return errBoom })
	time.Sleep(20 * time.Millisecond)
	b.Execute(func() error { return errBoom })

	if b.State() != Open {
		t.Errorf("state = %v, want open after half-open failure", b.State())
	}
}

func TestStateString(t *testing.T) {
	if Closed.String() != "closed" || Open.String() != "open" || HalfOpen.String() != "half-open" {
		t.Error("unexpected state names")
	}
}
