package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failingCall(context.Context) error { return errors.New("boom") }
func okCall(context.Context) error      { return nil }

func newTestBreaker(opts BreakerOpts) (*Breaker, *time.Time) {
	b := NewBreaker(opts)
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute, HalfOpenMax: 1})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if b.State() != StateClosed {
			t.Fatalf("breaker opened early at failure %d", i)
		}
		if err := b.Call(ctx, failingCall); err == nil {
			t.Fatal("expected failure")
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state after threshold: %v", b.State())
	}
	if err := b.Call(ctx, okCall); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute, HalfOpenMax: 1})
	ctx := context.Background()

	b.Call(ctx, failingCall)
	b.Call(ctx, failingCall)
	b.Call(ctx, okCall)
	b.Call(ctx, failingCall)
	b.Call(ctx, failingCall)
	if b.State() != StateClosed {
		t.Fatalf("state: %v, failures should have reset", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute, HalfOpenMax: 1})
	ctx := context.Background()

	b.Call(ctx, failingCall)
	if b.State() != StateOpen {
		t.Fatalf("state: %v", b.State())
	}

	*now = now.Add(2 * time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("state after timeout: %v", b.State())
	}

	// Successful probe closes the circuit.
	if err := b.Call(ctx, okCall); err != nil {
		t.Fatalf("probe call: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state after probe: %v", b.State())
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute, HalfOpenMax: 1})
	ctx := context.Background()

	b.Call(ctx, failingCall)
	*now = now.Add(2 * time.Minute)

	if err := b.Call(ctx, failingCall); err == nil {
		t.Fatal("expected probe failure")
	}
	if b.State() != StateOpen {
		t.Fatalf("state after failed probe: %v", b.State())
	}
	if err := b.Call(ctx, okCall); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute, HalfOpenMax: 1})
	ctx := context.Background()

	b.Call(ctx, failingCall)
	*now = now.Add(2 * time.Minute)

	// First probe slot is taken by a slow call; the next is rejected.
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Call(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := b.Call(ctx, okCall); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second probe allowed: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe call: %v", err)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("%d.String() = %q", s, s.String())
		}
	}
}

func TestLimiter_Noop(t *testing.T) {
	l := NewLimiter(0, 0)
	if !l.Allow() {
		t.Error("no-op limiter rejected a request")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("no-op Wait: %v", err)
	}
}

func TestLimiter_Caps(t *testing.T) {
	l := NewLimiter(1, 1)
	if !l.Allow() {
		t.Fatal("first request rejected")
	}
	if l.Allow() {
		t.Error("burst exceeded")
	}
}
