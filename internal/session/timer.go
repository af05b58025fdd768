package session

import (
	"sync"
	"time"
)

// Countdown drives a one-second-resolution per-question countdown. Start
// always cancels the previous interval first, so at most one ticker is live
// at any moment; Expire fires at most once per Start. There are no resume
// semantics; a restart is always the full duration.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	stopCh    chan struct{}

	onTick   func(remaining int)
	onExpire func()
}

// NewCountdown creates a stopped countdown. Either callback may be nil.
// Callbacks run on the ticker goroutine without the countdown lock held, so
// they may call Stop or Start.
func NewCountdown(onTick func(remaining int), onExpire func()) *Countdown {
	return &Countdown{
		onTick:   onTick,
		onExpire: onExpire,
	}
}

// Start resets the countdown to the given budget and begins ticking,
// cancelling any previous interval.
func (c *Countdown) Start(seconds int) {
	c.mu.Lock()
	if c.stopCh != nil {
		close(c.stopCh)
	}
	stop := make(chan struct{})
	c.stopCh = stop
	c.remaining = seconds
	c.mu.Unlock()

	go c.run(stop, seconds)
}

// Stop cancels the active interval. Safe to call repeatedly and from
// callbacks.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	c.mu.Unlock()
}

// Remaining returns the seconds left for display.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether an interval is active.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCh != nil
}

func (c *Countdown) run(stop chan struct{}, seconds int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	remaining := seconds
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining--

			c.mu.Lock()
			if c.stopCh != stop {
				// Superseded by a later Start or stopped; a stale tick must
				// not mutate state or fire callbacks.
				c.mu.Unlock()
				return
			}
			c.remaining = remaining
			c.mu.Unlock()

			if c.onTick != nil {
				c.onTick(remaining)
			}

			if remaining <= 0 {
				c.Stop()
				if c.onExpire != nil {
					c.onExpire()
				}
				return
			}
		}
	}
}
