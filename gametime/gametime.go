// Package gametime provides the virtual time base for a scenario run.
package gametime

import (
	"sync"
)

// VTimeInSec defines the time in the simulated space in the unit of second.
type VTimeInSec float64

// TimeTeller can be used to get the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// A Clock holds the authoritative simulated time of one scenario run. It is
// advanced only by simulator frame timestamps, never by wall-clock polling.
// One Clock is owned by one run loop for the lifetime of one run.
type Clock struct {
	mu        sync.RWMutex
	now       VTimeInSec
	resetTime VTimeInSec
	started   bool
}

// NewClock creates a Clock at time zero.
func NewClock() *Clock {
	return &Clock{}
}

// Reset rewinds the clock for a new scenario run. The first frame advanced
// afterwards defines the run's start time.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.now = 0
	c.resetTime = 0
	c.started = false
	c.mu.Unlock()
}

// Advance moves the clock to the elapsed time of a simulator frame.
// Non-increasing timestamps are ignored so that repeated polling of the same
// frame cannot move the clock.
func (c *Clock) Advance(elapsed VTimeInSec) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		c.started = true
		c.resetTime = elapsed
		c.now = elapsed
		return
	}

	if elapsed <= c.now {
		return
	}

	c.now = elapsed
}

// CurrentTime returns the current simulated time.
func (c *Clock) CurrentTime() VTimeInSec {
	c.mu.RLock()
	t := c.now
	c.mu.RUnlock()
	return t
}

// StartTime returns the simulated time at which the run started, i.e. the
// timestamp of the first frame seen after the last Reset.
func (c *Clock) StartTime() VTimeInSec {
	c.mu.RLock()
	t := c.resetTime
	c.mu.RUnlock()
	return t
}

// SinceStart returns the simulated time elapsed since the run started.
func (c *Clock) SinceStart() VTimeInSec {
	c.mu.RLock()
	d := c.now - c.resetTime
	c.mu.RUnlock()
	return d
}
