// Package agent declares the driving-agent collaborator and the wrapper that
// normalizes its failure signaling.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/drivelab/scenrunner/world"
)

// ErrNoSensorData indicates that the sensor subsystem had no data available
// when the agent was asked for a decision. This condition is never
// attributable to agent logic; the run loop surfaces it as a
// simulation-level error.
var ErrNoSensorData = errors.New("no sensor data available")

// An Agent computes one control command per tick for the controlled actor.
type Agent interface {
	// Setup binds the agent to the actor it controls.
	Setup(a world.Actor, debug bool) error

	// ComputeControl produces the next driving command from the current
	// sensor and world state. It may block on sensor acquisition; the
	// context allows the caller to abandon a hanging decision.
	ComputeControl(ctx context.Context) (world.Control, error)

	// Release frees the agent's resources (sensors, models).
	Release()
}

// A Wrapper owns one Agent for the duration of a run. It converts agent
// panics into errors so that every failure mode reaches the run loop as an
// error value, and it makes Release safe to call more than once.
type Wrapper struct {
	inner    Agent
	released bool
}

// Wrap creates a Wrapper around an agent.
func Wrap(a Agent) *Wrapper {
	return &Wrapper{inner: a}
}

// Setup forwards to the wrapped agent.
func (w *Wrapper) Setup(a world.Actor, debug bool) error {
	return w.inner.Setup(a, debug)
}

// ComputeControl invokes the wrapped agent's decision call. A panic inside
// the agent is recovered and returned as an error.
func (w *Wrapper) ComputeControl(ctx context.Context) (c world.Control, err error) {
	defer func() {
		if r := recover(); r != nil {
			c = world.Control{}
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()

	return w.inner.ComputeControl(ctx)
}

// Release frees the wrapped agent's resources. Only the first call reaches
// the agent.
func (w *Wrapper) Release() {
	if w.released {
		return
	}

	w.released = true
	w.inner.Release()
}
