package session

import (
	"sync"
	"time"

	"storefront/internal/model"
)

// coalescer holds at most one pending auth event. A newer event replaces the
// pending one. next hands out the pending event once window has passed
// without a replacement.
type coalescer struct {
	window time.Duration

	mu      sync.Mutex
	pending *model.AuthEvent
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newCoalescer(window time.Duration) *coalescer {
	return &coalescer{
		window: window,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (c *coalescer) push(ev model.AuthEvent) {
	c.mu.Lock()
	c.pending = &ev
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// next blocks until an event settles. It returns false once closed.
func (c *coalescer) next() (model.AuthEvent, bool) {
	for {
		select {
		case <-c.done:
			return model.AuthEvent{}, false
		case <-c.wake:
		}

		if !c.settle() {
			return model.AuthEvent{}, false
		}

		c.mu.Lock()
		ev := c.pending
		c.pending = nil
		c.mu.Unlock()

		if ev != nil {
			return *ev, true
		}
	}
}

// settle waits for a quiet window, restarting it on every push.
func (c *coalescer) settle() bool {
	timer := time.NewTimer(c.window)
	defer timer.Stop()

	for {
		select {
		case <-c.done:
			return false
		case <-c.wake:
			timer.Reset(c.window)
		case <-timer.C:
			return true
		}
	}
}

func (c *coalescer) close() {
	c.once.Do(func() { close(c.done) })
}
