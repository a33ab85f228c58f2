package session

import (
	"fmt"
	"sync"
	"time"
)

// Countdown is the exam clock: a one-shot edge trigger. It starts only on an
// explicit Start, exposes remaining whole seconds, and fires its expiry
// callback exactly once when the budget runs out. There is no pause and no
// re-fire; a slow or failing callback is not retried.
type Countdown struct {
	duration time.Duration
	onExpire func()

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu        sync.Mutex
	startedAt time.Time
	started   bool
	stopCh    chan struct{}
	fired     bool
}

// NewCountdown builds a clock over the given budget in minutes.
func NewCountdown(minutes int, onExpire func()) *Countdown {
	return newCountdownWithClock(minutes, onExpire, time.Now, time.After)
}

// newCountdownWithClock is test-only for deterministic time.
func newCountdownWithClock(minutes int, onExpire func(), now func() time.Time, after func(time.Duration) <-chan time.Time) *Countdown {
	return &Countdown{
		duration: time.Duration(minutes) * time.Minute,
		onExpire: onExpire,
		now:      now,
		after:    after,
	}
}

// Start begins the countdown. Subsequent calls are no-ops.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.startedAt = c.now()
	c.stopCh = make(chan struct{})
	expiry := c.after(c.duration)
	c.mu.Unlock()

	go func() {
		select {
		case <-expiry:
			c.fire()
		case <-c.stopCh:
		}
	}()
}

// Stop halts the clock; a stopped clock never fires.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started && c.stopCh != nil {
		select {
		case <-c.stopCh:
		default:
			close(c.stopCh)
		}
	}
	// Disarm even if never started; a stopped clock must stay silent.
	c.fired = true
}

// fire runs the expiry callback at most once. The callback itself may call
// Stop (submission stops the clock), so the flag is settled before it runs.
func (c *Countdown) fire() {
	c.mu.Lock()
	if c.fired {
		c.mu.Unlock()
		return
	}
	c.fired = true
	cb := c.onExpire
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Remaining returns whole seconds left, never negative. Before Start it is
// the full budget.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return int(c.duration / time.Second)
	}
	left := c.duration - c.now().Sub(c.startedAt)
	if left < 0 {
		return 0
	}
	return int(left / time.Second)
}

// FormatSeconds renders a second count as M:SS, or H:MM:SS past one hour.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
