package testutil

import (
	"context"
	"sync"
	"testing"
	"time"
)

// StubSleeper blocks every Sleep until the test releases it. A released
// sleep advances the attached clock by the requested duration, so a
// scheduler loop moves forward one tick at a time under test control.
type StubSleeper struct {
	clock   *StubClock
	release chan struct{}

	mu    sync.Mutex
	calls int
}

// NewStubSleeper creates a StubSleeper. clock may be nil.
func NewStubSleeper(clock *StubClock) *StubSleeper {
	return &StubSleeper{clock: clock, release: make(chan struct{}, 1024)}
}

func (s *StubSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.release:
		if s.clock != nil {
			s.clock.Advance(d)
		}
		return nil
	}
}

// Calls returns how many times Sleep has been entered.
func (s *StubSleeper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Release lets n pending or future Sleep calls return.
func (s *StubSleeper) Release(n int) {
	for range n {
		s.release <- struct{}{}
	}
}

// WaitForCalls blocks until Sleep has been entered at least n times. It
// fails the test after five seconds.
func (s *StubSleeper) WaitForCalls(t testing.TB, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Calls() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d sleep calls, got %d", n, s.Calls())
		}
		time.Sleep(time.Millisecond)
	}
}
