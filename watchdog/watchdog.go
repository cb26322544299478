// Package watchdog implements a resettable deadline timer. A watchdog
// reports unhealthy once its interval elapses without a refresh, and can
// additionally deliver the expiry asynchronously through a supervisory
// goroutine, so that a stall is detected even while the owner is blocked
// inside an external call.
package watchdog

import (
	"sync"
	"time"
)

// A Watchdog tracks whether a guarded phase is still alive. While paused,
// expiry is not evaluated and elapsed time does not count; resuming restarts
// the expiry window from the resume point. Expiry is fatal to the guarded
// run; there are no retries.
type Watchdog struct {
	mu sync.Mutex

	timeout  time.Duration
	lastKick time.Time

	running bool
	paused  bool
	expired bool
	fired   bool

	onExpire func()
	stopCh   chan struct{}
}

// New creates a Watchdog with the given expiry interval.
func New(timeout time.Duration) *Watchdog {
	if timeout <= 0 {
		panic("watchdog timeout must be positive")
	}

	return &Watchdog{timeout: timeout}
}

// OnExpire registers a callback invoked at most once, from the supervisory
// goroutine, when the watchdog expires while running and unpaused. It must
// be set before Start.
func (w *Watchdog) OnExpire(f func()) {
	w.mu.Lock()
	w.onExpire = f
	w.mu.Unlock()
}

// Start begins elapsed-time tracking from now and launches the supervisory
// goroutine.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}

	w.running = true
	w.paused = false
	w.expired = false
	w.fired = false
	w.lastKick = time.Now()
	w.stopCh = make(chan struct{})

	go w.supervise(w.stopCh)
}

// Update refreshes the last-seen-alive timestamp. The currently active phase
// must call it periodically.
func (w *Watchdog) Update() {
	w.mu.Lock()
	if w.running {
		w.lastKick = time.Now()
		w.expired = false
	}
	w.mu.Unlock()
}

// Pause suspends expiry evaluation without losing accumulated history.
func (w *Watchdog) Pause() {
	w.mu.Lock()
	if w.running {
		w.paused = true
	}
	w.mu.Unlock()
}

// Resume re-enables expiry evaluation. The expiry window restarts from the
// resume point; time spent paused never counts.
func (w *Watchdog) Resume() {
	w.mu.Lock()
	if w.running && w.paused {
		w.paused = false
		w.lastKick = time.Now()
	}
	w.mu.Unlock()
}

// Status returns false once the interval has elapsed since the last refresh
// while running and unpaused. It returns true if the watchdog was never
// started or has been stopped.
func (w *Watchdog) Status() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statusLocked()
}

func (w *Watchdog) statusLocked() bool {
	if !w.running {
		return true
	}

	if w.expired {
		return false
	}

	if w.paused {
		return true
	}

	if time.Since(w.lastKick) > w.timeout {
		w.expired = true
		return false
	}

	return true
}

// Stop ends tracking permanently and terminates the supervisory goroutine.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.running = false
	close(w.stopCh)
}

// supervise polls for expiry on behalf of the owner. It exits once the
// expiry callback has been delivered or the watchdog is stopped.
func (w *Watchdog) supervise(stopCh chan struct{}) {
	poll := w.timeout / 20
	if poll < time.Millisecond {
		poll = time.Millisecond
	}
	if poll > 100*time.Millisecond {
		poll = 100 * time.Millisecond
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.mu.Lock()
			if !w.running {
				w.mu.Unlock()
				return
			}

			healthy := w.statusLocked()

			var cb func()
			if !healthy && !w.fired {
				w.fired = true
				cb = w.onExpire
			}
			w.mu.Unlock()

			if cb != nil {
				cb()
			}

			if !healthy {
				return
			}
		}
	}
}
