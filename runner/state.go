package runner

// State is the lifecycle state of a Runner.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLoaded:
		return "LOADED"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// WatchdogKind identifies which deadline guard expired.
type WatchdogKind int

const (
	// WatchdogWorld guards the simulator's frame-advance step.
	WatchdogWorld WatchdogKind = iota

	// WatchdogAgent guards the agent decision step.
	WatchdogAgent
)

func (k WatchdogKind) String() string {
	switch k {
	case WatchdogWorld:
		return "world"
	case WatchdogAgent:
		return "agent"
	default:
		return "unknown"
	}
}
