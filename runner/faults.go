package runner

import (
	"fmt"
	"time"
)

// A ConfigurationError reports invalid load-time setup. It is raised
// synchronously from Load and is fatal.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// An AgentFault reports that the agent's decision call failed for a reason
// internal to the agent. Fatal to the run.
type AgentFault struct {
	Err error
}

func (e *AgentFault) Error() string {
	return "agent fault: " + e.Err.Error()
}

func (e *AgentFault) Unwrap() error {
	return e.Err
}

// A SimulationFault reports a non-agent-attributable runtime error during a
// tick, including sensor-data unavailability. Fatal to the run.
type SimulationFault struct {
	Err error
}

func (e *SimulationFault) Error() string {
	return "simulation fault: " + e.Err.Error()
}

func (e *SimulationFault) Unwrap() error {
	return e.Err
}

// A DeadlineFault reports that a watchdog expired, typically while the loop
// was blocked inside an external call. It takes precedence over graceful
// cancellation. Fatal to the run.
type DeadlineFault struct {
	Which   WatchdogKind
	Timeout time.Duration
}

func (e *DeadlineFault) Error() string {
	switch e.Which {
	case WatchdogAgent:
		return fmt.Sprintf(
			"agent took longer than %.1fs to send its command",
			e.Timeout.Seconds())
	default:
		return fmt.Sprintf(
			"the simulation took longer than %.1fs to update",
			e.Timeout.Seconds())
	}
}
