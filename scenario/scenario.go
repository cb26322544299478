// Package scenario declares the surface of a scenario under test: its
// behavior tree, its pass/fail criteria, and its actors. Scenario authoring
// and behavior-tree internals live outside this module.
package scenario

import (
	"github.com/drivelab/scenrunner/world"
)

// Status is the evaluation state of a behavior tree or of a criterion.
type Status int

const (
	StatusRunning Status = iota
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// A BehaviorTree is evaluated exactly once per tick. Any tree-evaluation
// library exposing tick and status semantics can sit behind this interface.
type BehaviorTree interface {
	// TickOnce evaluates the tree exactly once.
	TickOnce()

	// Status returns the tree status after the last evaluation.
	Status() Status
}

// A TreeDebugger can render its node states as an ordered sequence of lines.
// Trees may optionally implement it to support debug-mode dumps.
type TreeDebugger interface {
	DebugLines() []string
}

// A Criterion is the result of one independent pass/fail check evaluated
// against scenario state.
type Criterion struct {
	Name   string
	Status Status
}

// A Scenario is the entity under test. It is created externally, loaded into
// the run loop once, and terminated explicitly when the run stops.
type Scenario interface {
	Name() string

	// Tree returns the scenario's behavior tree.
	Tree() BehaviorTree

	// Criteria returns the current result of every pass/fail criterion.
	Criteria() []Criterion

	// TimedOut reports whether the scenario's timeout node has fired.
	TimedOut() bool

	// ControlledActors returns the actors driven by the agent under test.
	// The first entry is the one that receives control commands.
	ControlledActors() []world.Actor

	// OtherActors returns the remaining scenario actors.
	OtherActors() []world.Actor

	// Terminate releases the scenario. Called once when the run stops
	// with the simulator still in a consistent state.
	Terminate() error
}
