// Package runner implements the scenario run loop: it drives one tick of the
// world simulation, the agent decision, and the behavior-tree evaluation per
// simulated frame, guards both external steps with deadline watchdogs, and
// accounts for run timing regardless of how the loop terminates.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/drivelab/scenrunner/agent"
	"github.com/drivelab/scenrunner/gametime"
	"github.com/drivelab/scenrunner/scenario"
	"github.com/drivelab/scenrunner/watchdog"
	"github.com/drivelab/scenrunner/world"
)

// observerHeight is how far above the controlled actor the observer camera
// hovers, looking straight down.
const observerHeight = 50.0

// A TickRecord describes one completed tick of the run loop.
type TickRecord struct {
	Tick         uint64
	Frame        uint64
	GameTime     gametime.VTimeInSec
	WallTime     time.Time
	TreeStatus   scenario.Status
	AgentLatency time.Duration
}

// A TickObserver is notified after every completed tick.
type TickObserver interface {
	OnTick(rec TickRecord)
}

// An Analyzer turns the final scenario state and the run statistics into a
// verdict. It is invoked by Stop once the run has terminated cleanly.
type Analyzer interface {
	Analyze(scn scenario.Scenario, stats Stats)
}

// A Runner coordinates the execution of a single scenario. It owns the game
// clock and both watchdogs for the lifetime of one run; they are reset, not
// reused, across runs.
type Runner struct {
	sim       world.Simulator
	refresher world.StateRefresher
	analyzer  Analyzer
	observers []TickObserver
	log       zerolog.Logger

	timeout time.Duration
	debug   bool

	clock   *gametime.Clock
	worldWD *watchdog.Watchdog
	agentWD *watchdog.Watchdog

	scn        scenario.Scenario
	agt        *agent.Wrapper
	ego        []world.Actor
	repetition int
	runID      string

	mu      sync.Mutex
	state   State
	stopped bool

	running       atomic.Bool
	tickCount     atomic.Uint64
	lastTimestamp gametime.VTimeInSec

	startSystemTime time.Time
	startGameTime   gametime.VTimeInSec
	stats           Stats
}

// New creates a Runner that drives scenarios against the given simulator.
// The timeout guards both the world step and the agent decision step.
func New(sim world.Simulator, timeout time.Duration) *Runner {
	if timeout <= 0 {
		panic("runner timeout must be positive")
	}

	return &Runner{
		sim:     sim,
		timeout: timeout,
		clock:   gametime.NewClock(),
		log:     zerolog.Nop(),
	}
}

// WithDebug enables per-tick behavior-tree dumps.
func (r *Runner) WithDebug(debug bool) *Runner {
	r.debug = debug
	return r
}

// WithLogger sets the logger used by the run loop.
func (r *Runner) WithLogger(log zerolog.Logger) *Runner {
	r.log = log
	return r
}

// WithAnalyzer sets the analyzer invoked after a clean stop.
func (r *Runner) WithAnalyzer(a Analyzer) *Runner {
	r.analyzer = a
	return r
}

// WithStateRefresher sets the collaborator that caches time-dependent actor
// state once per frame.
func (r *Runner) WithStateRefresher(sr world.StateRefresher) *Runner {
	r.refresher = sr
	return r
}

// AddTickObserver registers an observer notified after every tick. Must be
// called before Run.
func (r *Runner) AddTickObserver(o TickObserver) *Runner {
	r.observers = append(r.observers, o)
	return r
}

// Load binds a scenario and an agent to the runner. It resets the game
// clock, wraps the agent, and resolves the controlled-actor list. It must be
// called exactly once per run.
func (r *Runner) Load(scn scenario.Scenario, agt agent.Agent, repetition int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		panic("runner: Load must be called exactly once per run")
	}

	ego := scn.ControlledActors()
	if len(ego) == 0 {
		return &ConfigurationError{Reason: "scenario has no controlled actor"}
	}

	r.clock.Reset()

	wrapper := agent.Wrap(agt)
	if err := wrapper.Setup(ego[0], r.debug); err != nil {
		return &ConfigurationError{
			Reason: fmt.Sprintf("agent setup failed: %v", err),
		}
	}

	r.scn = scn
	r.agt = wrapper
	r.ego = ego
	r.repetition = repetition
	r.runID = xid.New().String()
	r.lastTimestamp = 0
	r.state = StateLoaded

	r.log.Info().
		Str("scenario", scn.Name()).
		Str("run_id", r.runID).
		Int("repetition", repetition).
		Msg("scenario loaded")

	return nil
}

// Run executes the tick loop until the behavior tree reaches a terminal
// status, the run is interrupted, or a fault unwinds. It blocks for the
// duration of the run. The caller is responsible for invoking Stop
// afterwards, whether or not Run returned an error.
func (r *Runner) Run(ctx context.Context) error {
	rctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// The watchdogs are mutually exclusive by construction: the agent
	// watchdog is active only around the decision call, the world watchdog
	// everywhere else. A stall in one phase is never attributed to the
	// other.
	worldWD := watchdog.New(r.timeout)
	agentWD := watchdog.New(r.timeout)
	worldWD.OnExpire(func() {
		cancel(&DeadlineFault{Which: WatchdogWorld, Timeout: r.timeout})
	})
	agentWD.OnExpire(func() {
		cancel(&DeadlineFault{Which: WatchdogAgent, Timeout: r.timeout})
	})

	// Publish the watchdogs and the start times under the lock; monitoring
	// and signal-handling goroutines read them through the accessors while
	// the run is in flight.
	r.mu.Lock()
	if r.state != StateLoaded {
		r.mu.Unlock()
		panic("runner: Run requires a loaded scenario")
	}
	r.state = StateRunning
	r.worldWD = worldWD
	r.agentWD = agentWD
	r.startSystemTime = time.Now()
	r.startGameTime = r.clock.CurrentTime()
	r.mu.Unlock()

	worldWD.Start()
	agentWD.Start()
	agentWD.Pause()

	r.running.Store(true)
	defer func() {
		r.running.Store(false)
		r.setState(StateStopped)
	}()

	r.log.Info().
		Str("run_id", r.runID).
		Float64("timeout_sec", r.timeout.Seconds()).
		Msg("scenario run started")

	for r.running.Load() {
		if fault := pendingFault(rctx); fault != nil {
			return fault
		}

		ts, ok := r.sim.CurrentFrame()
		if !ok {
			// No frame available yet. Spin until one arrives.
			runtime.Gosched()
			continue
		}

		if err := r.tick(rctx, ts); err != nil {
			return err
		}
	}

	return nil
}

// tick runs one iteration of the loop for the given frame. Frames whose
// timestamp has already been processed are skipped, so at most one logical
// tick executes per distinct simulated timestamp. The frame advance at the
// end runs on every iteration while the loop is active and healthy.
func (r *Runner) tick(ctx context.Context, ts world.Timestamp) error {
	if r.running.Load() && ts.ElapsedSeconds > r.lastTimestamp {
		r.lastTimestamp = ts.ElapsedSeconds

		if err := r.tickScenario(ctx, ts); err != nil {
			return err
		}
	}

	if r.running.Load() && r.worldWD.Status() {
		if err := r.sim.AdvanceOneFrame(ctx, r.timeout); err != nil {
			if fault := pendingFault(ctx); fault != nil {
				return fault
			}
			return &SimulationFault{Err: err}
		}
	}

	return nil
}

// tickScenario executes steps 1-9 of the per-tick algorithm: clock advance,
// agent decision under the agent watchdog, control application, and a single
// behavior-tree evaluation.
func (r *Runner) tickScenario(ctx context.Context, ts world.Timestamp) error {
	r.worldWD.Update()

	r.clock.Advance(ts.ElapsedSeconds)
	if r.refresher != nil {
		r.refresher.OnFrame(ts)
	}

	// Agent decision latency must not count against the world-step
	// deadline, and vice versa.
	r.worldWD.Pause()
	r.agentWD.Resume()
	r.agentWD.Update()

	agentStart := time.Now()
	cmd, err := r.agt.ComputeControl(ctx)
	agentLatency := time.Since(agentStart)

	r.agentWD.Pause()

	if err != nil {
		if fault := pendingFault(ctx); fault != nil {
			return fault
		}
		if errors.Is(err, agent.ErrNoSensorData) {
			// Not caused by the agent. Surface as a simulation-level
			// error.
			return &SimulationFault{Err: err}
		}
		return &AgentFault{Err: err}
	}

	r.worldWD.Resume()

	if err := r.sim.ApplyControl(r.ego[0], cmd); err != nil {
		return &SimulationFault{Err: err}
	}

	tree := r.scn.Tree()
	tree.TickOnce()

	if r.debug {
		r.dumpTree(tree)
	}

	status := tree.Status()
	if status != scenario.StatusRunning {
		r.log.Info().
			Stringer("status", status).
			Msg("behavior tree reached a terminal status")
		r.running.Store(false)
	}

	r.repositionObserver()

	rec := TickRecord{
		Tick:         r.tickCount.Add(1),
		Frame:        ts.Frame,
		GameTime:     ts.ElapsedSeconds,
		WallTime:     time.Now(),
		TreeStatus:   status,
		AgentLatency: agentLatency,
	}
	for _, o := range r.observers {
		o.OnTick(rec)
	}

	return nil
}

// repositionObserver places the observer camera above the controlled actor,
// looking straight down. Cosmetic; failures are logged and ignored.
func (r *Runner) repositionObserver() {
	pose, err := r.sim.ControlledActorTransform()
	if err != nil {
		r.log.Debug().Err(err).Msg("cannot read controlled actor transform")
		return
	}

	observer := world.Pose{
		Location: world.Location{
			X: pose.Location.X,
			Y: pose.Location.Y,
			Z: pose.Location.Z + observerHeight,
		},
		Rotation: world.Rotation{Pitch: -90},
	}

	if err := r.sim.RepositionObserver(observer); err != nil {
		r.log.Debug().Err(err).Msg("cannot reposition observer")
	}
}

func (r *Runner) dumpTree(tree scenario.BehaviorTree) {
	dbg, ok := tree.(scenario.TreeDebugger)
	if !ok {
		return
	}

	for _, line := range dbg.DebugLines() {
		r.log.Debug().Msg(line)
	}
}

// watchdogs returns both watchdog pointers under the lock. They are nil
// before the first Run.
func (r *Runner) watchdogs() (worldWD, agentWD *watchdog.Watchdog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.worldWD, r.agentWD
}

// Interrupt requests an external stop of the run. If a watchdog has already
// expired, the corresponding DeadlineFault is returned instead and the stop
// request is superseded by the fault.
func (r *Runner) Interrupt() error {
	worldWD, agentWD := r.watchdogs()

	if agentWD != nil && !agentWD.Status() {
		return &DeadlineFault{Which: WatchdogAgent, Timeout: r.timeout}
	}

	if worldWD != nil && !worldWD.Status() {
		return &DeadlineFault{Which: WatchdogWorld, Timeout: r.timeout}
	}

	r.running.Store(false)
	return nil
}

// RunningStatus reports whether both watchdogs still consider the run
// healthy. Once it returns false the simulator state must be treated as
// unreliable.
func (r *Runner) RunningStatus() bool {
	worldWD, agentWD := r.watchdogs()

	if worldWD != nil && !worldWD.Status() {
		return false
	}

	if agentWD != nil && !agentWD.Status() {
		return false
	}

	return true
}

// Stop terminates the run: it stops both watchdogs and computes the run
// statistics. Only if the run is still healthy does it terminate the
// scenario, release the agent, and trigger result analysis; after a watchdog
// expiry the simulator state is unreliable and both are skipped. Stop is
// idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.running.Store(false)

	healthy := r.RunningStatus()

	worldWD, agentWD := r.watchdogs()
	if worldWD != nil {
		worldWD.Stop()
	}
	if agentWD != nil {
		agentWD.Stop()
	}

	r.mu.Lock()
	stats := Stats{
		RunID:           r.runID,
		Repetition:      r.repetition,
		StartSystemTime: r.startSystemTime,
		EndSystemTime:   time.Now(),
		StartGameTime:   r.startGameTime,
		EndGameTime:     r.clock.CurrentTime(),
		Ticks:           r.tickCount.Load(),
	}
	stats.SystemDuration = stats.EndSystemTime.Sub(stats.StartSystemTime)
	stats.GameDuration = stats.EndGameTime - stats.StartGameTime
	r.stats = stats
	r.mu.Unlock()

	if r.scn != nil {
		if healthy {
			if err := r.scn.Terminate(); err != nil {
				r.log.Error().Err(err).Msg("scenario termination failed")
			}

			r.agt.Release()

			if r.analyzer != nil {
				r.analyzer.Analyze(r.scn, r.stats)
			}
		} else {
			r.log.Error().
				Msg("watchdog expired, skipping scenario termination and analysis")
		}
	}

	r.setState(StateStopped)

	r.log.Info().
		Str("run_id", r.runID).
		Uint64("ticks", stats.Ticks).
		Dur("system_duration", stats.SystemDuration).
		Float64("game_duration_sec", float64(stats.GameDuration)).
		Msg("scenario run stopped")
}

// State returns the runner's lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Clock exposes the run's game clock for reading.
func (r *Runner) Clock() gametime.TimeTeller {
	return r.clock
}

// TickCount returns the number of ticks executed so far.
func (r *Runner) TickCount() uint64 {
	return r.tickCount.Load()
}

// WatchdogStatus reports the health of the world and agent watchdogs. Both
// report healthy before the run starts.
func (r *Runner) WatchdogStatus() (worldOK, agentOK bool) {
	worldWD, agentWD := r.watchdogs()

	worldOK = worldWD == nil || worldWD.Status()
	agentOK = agentWD == nil || agentWD.Status()
	return worldOK, agentOK
}

// Stats returns the run statistics. Valid after Stop.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// pendingFault inspects a canceled context. A DeadlineFault carried as the
// cancellation cause takes precedence over plain cancellation.
func pendingFault(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}

	cause := context.Cause(ctx)

	var df *DeadlineFault
	if errors.As(cause, &df) {
		return df
	}

	return cause
}
