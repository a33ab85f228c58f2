package session

import (
	"sync"
	"testing"
	"time"
)

// fakeClock drives the countdown deterministically: Remaining reads the
// shifted now, and firing the after-channel simulates expiry.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
	expiry  chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		current: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		expiry:  make(chan time.Time, 1),
	}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) after(time.Duration) <-chan time.Time {
	return c.expiry
}

func (c *fakeClock) fireExpiry() {
	c.expiry <- c.now()
}

func TestCountdownRemaining(t *testing.T) {
	clk := newFakeClock()
	cd := newCountdownWithClock(30, nil, clk.now, clk.after)

	if got := cd.Remaining(); got != 30*60 {
		t.Fatalf("before start expected full budget, got %d", got)
	}

	cd.Start()
	clk.advance(10 * time.Minute)
	if got := cd.Remaining(); got != 20*60 {
		t.Fatalf("after 10m expected 1200, got %d", got)
	}

	clk.advance(25 * time.Minute)
	if got := cd.Remaining(); got != 0 {
		t.Fatalf("overdue clock must report 0, got %d", got)
	}
}

func TestCountdownFiresOnce(t *testing.T) {
	clk := newFakeClock()
	fired := make(chan struct{}, 2)
	cd := newCountdownWithClock(30, func() { fired <- struct{}{} }, clk.now, clk.after)

	cd.Start()
	cd.Start() // second start is a no-op
	clk.fireExpiry()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expiry callback never fired")
	}
	select {
	case <-fired:
		t.Fatal("expiry callback fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownStopDisarms(t *testing.T) {
	clk := newFakeClock()
	fired := make(chan struct{}, 1)
	cd := newCountdownWithClock(30, func() { fired <- struct{}{} }, clk.now, clk.after)

	cd.Start()
	cd.Stop()
	clk.fireExpiry()

	select {
	case <-fired:
		t.Fatal("stopped clock must not fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownStopBeforeStart(t *testing.T) {
	cd := NewCountdown(30, func() { t.Error("must never fire") })
	cd.Stop()
	cd.Start()
	// The real after-channel won't tick in 30 minutes; this guards the
	// disarm-before-start path against panics.
	time.Sleep(10 * time.Millisecond)
}

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0:00"},
		{-5, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{605, "10:05"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3661, "1:01:01"},
		{7325, "2:02:05"},
	}
	for _, c := range cases {
		if got := FormatSeconds(c.in); got != c.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
