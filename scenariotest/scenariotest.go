// Package scenariotest provides in-memory collaborator implementations: a
// simulator that produces frames at a fixed simulated rate, a scripted
// agent, and a stub scenario with a programmable behavior tree. They back
// the package tests and the CLI demo command.
package scenariotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/drivelab/scenrunner/gametime"
	"github.com/drivelab/scenrunner/scenario"
	"github.com/drivelab/scenrunner/world"
)

// StaticActor is a named actor with no behavior of its own.
type StaticActor struct {
	ActorName string
}

// Name implements world.Actor.
func (a *StaticActor) Name() string {
	return a.ActorName
}

// FakeSimulator is a synchronous-mode simulator: a new frame is produced
// only when AdvanceOneFrame is called, each frame covering FrameDelta of
// simulated time.
type FakeSimulator struct {
	mu sync.Mutex

	// FrameDelta is the simulated time per frame. Defaults to 50ms.
	FrameDelta time.Duration

	// AdvanceDelay is the wall-clock time each frame advance takes.
	AdvanceDelay time.Duration

	// AdvanceErr, when set, is returned by every AdvanceOneFrame call.
	AdvanceErr error

	// HangOnAdvance makes AdvanceOneFrame block until the context is
	// canceled.
	HangOnAdvance bool

	// ActorPose is the pose reported for the controlled actor.
	ActorPose world.Pose

	frame   uint64
	elapsed gametime.VTimeInSec
	started bool

	applied   []world.Control
	observers []world.Pose
}

// NewFakeSimulator creates a FakeSimulator with a 50ms frame delta and its
// first frame already available.
func NewFakeSimulator() *FakeSimulator {
	s := &FakeSimulator{FrameDelta: 50 * time.Millisecond}
	s.started = true
	s.frame = 1
	s.elapsed = gametime.VTimeInSec(s.FrameDelta.Seconds())

	return s
}

// CurrentFrame implements world.Simulator.
func (s *FakeSimulator) CurrentFrame() (world.Timestamp, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return world.Timestamp{}, false
	}

	return world.Timestamp{
		Frame:          s.frame,
		ElapsedSeconds: s.elapsed,
		DeltaSeconds:   s.FrameDelta.Seconds(),
	}, true
}

// AdvanceOneFrame implements world.Simulator.
func (s *FakeSimulator) AdvanceOneFrame(
	ctx context.Context,
	timeout time.Duration,
) error {
	if s.HangOnAdvance {
		<-ctx.Done()
		return ctx.Err()
	}

	if s.AdvanceDelay > 0 {
		select {
		case <-time.After(s.AdvanceDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.AdvanceErr != nil {
		return s.AdvanceErr
	}

	s.frame++
	s.elapsed += gametime.VTimeInSec(s.FrameDelta.Seconds())

	return nil
}

// ControlledActorTransform implements world.Simulator.
func (s *FakeSimulator) ControlledActorTransform() (world.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ActorPose, nil
}

// ApplyControl implements world.Simulator.
func (s *FakeSimulator) ApplyControl(a world.Actor, c world.Control) error {
	if a == nil {
		return errors.New("nil actor")
	}

	s.mu.Lock()
	s.applied = append(s.applied, c)
	s.mu.Unlock()

	return nil
}

// RepositionObserver implements world.Simulator.
func (s *FakeSimulator) RepositionObserver(p world.Pose) error {
	s.mu.Lock()
	s.observers = append(s.observers, p)
	s.mu.Unlock()

	return nil
}

// AppliedControls returns every control applied so far.
func (s *FakeSimulator) AppliedControls() []world.Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]world.Control{}, s.applied...)
}

// ObserverPoses returns every observer pose set so far.
func (s *FakeSimulator) ObserverPoses() []world.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]world.Pose{}, s.observers...)
}

// ScriptedAgent produces a fixed control command per tick, with an optional
// per-decision latency. It can be programmed to fail or hang at a given
// tick.
type ScriptedAgent struct {
	// Control is the command returned by every decision.
	Control world.Control

	// Latency is the wall-clock time each decision takes.
	Latency time.Duration

	// FailAt makes decision number FailAt (1-based) return FailWith.
	// Zero disables failure injection.
	FailAt   int
	FailWith error

	// HangAt makes decision number HangAt block until the context is
	// canceled. Zero disables hanging.
	HangAt int

	mu       sync.Mutex
	calls    int
	released bool
	actor    world.Actor
}

// Setup implements agent.Agent.
func (a *ScriptedAgent) Setup(actor world.Actor, _ bool) error {
	a.mu.Lock()
	a.actor = actor
	a.mu.Unlock()
	return nil
}

// ComputeControl implements agent.Agent.
func (a *ScriptedAgent) ComputeControl(ctx context.Context) (world.Control, error) {
	a.mu.Lock()
	a.calls++
	call := a.calls
	a.mu.Unlock()

	if a.HangAt > 0 && call >= a.HangAt {
		<-ctx.Done()
		return world.Control{}, ctx.Err()
	}

	if a.Latency > 0 {
		select {
		case <-time.After(a.Latency):
		case <-ctx.Done():
			return world.Control{}, ctx.Err()
		}
	}

	if a.FailAt > 0 && call == a.FailAt {
		err := a.FailWith
		if err == nil {
			err = fmt.Errorf("scripted failure at decision %d", call)
		}
		return world.Control{}, err
	}

	return a.Control, nil
}

// Release implements agent.Agent.
func (a *ScriptedAgent) Release() {
	a.mu.Lock()
	a.released = true
	a.mu.Unlock()
}

// Calls returns the number of decisions requested so far.
func (a *ScriptedAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Released reports whether Release has been called.
func (a *ScriptedAgent) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

// StubTree is a behavior tree that walks a scripted status sequence, one
// entry per evaluation, holding the last entry forever.
type StubTree struct {
	// Statuses is the status reported after the n-th evaluation.
	Statuses []scenario.Status

	ticks int
}

// NewStubTree creates a tree that reports RUNNING for running evaluations
// and then holds the terminal status.
func NewStubTree(running int, terminal scenario.Status) *StubTree {
	statuses := make([]scenario.Status, 0, running+1)
	for i := 0; i < running; i++ {
		statuses = append(statuses, scenario.StatusRunning)
	}
	statuses = append(statuses, terminal)

	return &StubTree{Statuses: statuses}
}

// TickOnce implements scenario.BehaviorTree.
func (t *StubTree) TickOnce() {
	t.ticks++
}

// Status implements scenario.BehaviorTree.
func (t *StubTree) Status() scenario.Status {
	if t.ticks == 0 {
		return scenario.StatusRunning
	}

	idx := t.ticks - 1
	if idx >= len(t.Statuses) {
		idx = len(t.Statuses) - 1
	}

	return t.Statuses[idx]
}

// Ticks returns how many times the tree has been evaluated.
func (t *StubTree) Ticks() int {
	return t.ticks
}

// DebugLines implements scenario.TreeDebugger.
func (t *StubTree) DebugLines() []string {
	return []string{
		"root [" + t.Status().String() + "]",
		"  drive [" + t.Status().String() + "]",
	}
}

// StubScenario is a scenario whose collaborators are all injectable.
type StubScenario struct {
	ScenarioName string
	TreeImpl     *StubTree
	CriteriaList []scenario.Criterion
	TimedOutFlag bool
	Ego          []world.Actor
	Others       []world.Actor

	mu           sync.Mutex
	terminations int
}

// NewStubScenario creates a scenario with one controlled actor and a tree
// that succeeds after the given number of running evaluations.
func NewStubScenario(running int) *StubScenario {
	return &StubScenario{
		ScenarioName: "stub",
		TreeImpl:     NewStubTree(running, scenario.StatusSuccess),
		CriteriaList: []scenario.Criterion{
			{Name: "collision", Status: scenario.StatusSuccess},
		},
		Ego: []world.Actor{&StaticActor{ActorName: "hero"}},
	}
}

// Name implements scenario.Scenario.
func (s *StubScenario) Name() string { return s.ScenarioName }

// Tree implements scenario.Scenario.
func (s *StubScenario) Tree() scenario.BehaviorTree { return s.TreeImpl }

// Criteria implements scenario.Scenario.
func (s *StubScenario) Criteria() []scenario.Criterion { return s.CriteriaList }

// TimedOut implements scenario.Scenario.
func (s *StubScenario) TimedOut() bool { return s.TimedOutFlag }

// ControlledActors implements scenario.Scenario.
func (s *StubScenario) ControlledActors() []world.Actor { return s.Ego }

// OtherActors implements scenario.Scenario.
func (s *StubScenario) OtherActors() []world.Actor { return s.Others }

// Terminate implements scenario.Scenario.
func (s *StubScenario) Terminate() error {
	s.mu.Lock()
	s.terminations++
	s.mu.Unlock()
	return nil
}

// Terminated reports whether Terminate has been called.
func (s *StubScenario) Terminated() bool {
	return s.Terminations() > 0
}

// Terminations returns how many times Terminate has been called.
func (s *StubScenario) Terminations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminations
}
