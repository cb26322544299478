// Package world declares the collaborator interface toward the external
// physics/traffic simulator. The simulator owns the world and all actors;
// this package only describes the narrow surface the run loop consumes.
package world

import (
	"context"
	"time"

	"github.com/drivelab/scenrunner/gametime"
)

// Location is a position in the simulated world, in meters.
type Location struct {
	X float64
	Y float64
	Z float64
}

// Rotation is an orientation in the simulated world, in degrees.
type Rotation struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

// Pose combines a location and an orientation.
type Pose struct {
	Location Location
	Rotation Rotation
}

// Control is one driving command produced by the agent for the controlled
// actor.
type Control struct {
	Throttle  float64
	Steer     float64
	Brake     float64
	HandBrake bool
	Reverse   bool
}

// Timestamp identifies one simulated frame.
type Timestamp struct {
	// Frame is the monotonically increasing frame counter.
	Frame uint64

	// ElapsedSeconds is the simulated time since the simulator started.
	ElapsedSeconds gametime.VTimeInSec

	// DeltaSeconds is the simulated time covered by this frame.
	DeltaSeconds float64
}

// An Actor is an entity living in the simulator. Actors are created and
// destroyed externally; the run loop only refers to them.
type Actor interface {
	Name() string
}

// Simulator is the surface of the external simulator consumed by the run
// loop. Implementations are expected to be driven from a single goroutine.
type Simulator interface {
	// CurrentFrame returns the timestamp of the most recent frame, or
	// ok == false if no frame has been produced yet.
	CurrentFrame() (ts Timestamp, ok bool)

	// AdvanceOneFrame advances the simulation by exactly one frame,
	// blocking until the frame completes or the timeout elapses. The
	// context allows the caller to abandon a hanging advance.
	AdvanceOneFrame(ctx context.Context, timeout time.Duration) error

	// ControlledActorTransform returns the current pose of the controlled
	// actor.
	ControlledActorTransform() (Pose, error)

	// ApplyControl applies a driving command to an actor.
	ApplyControl(a Actor, c Control) error

	// RepositionObserver moves the observer camera. Headless simulator
	// configurations may implement this as a no-op.
	RepositionObserver(p Pose) error
}

// A StateRefresher caches time-dependent actor state once per frame. The run
// loop invokes it right after advancing the game clock, before the agent
// decision runs.
type StateRefresher interface {
	OnFrame(ts Timestamp)
}
