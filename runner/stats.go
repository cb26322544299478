package runner

import (
	"time"

	"github.com/drivelab/scenrunner/gametime"
)

// Stats holds the timing accounting of one scenario run. It is computed once
// when the run stops and is immutable thereafter.
type Stats struct {
	RunID      string
	Repetition int

	StartSystemTime time.Time
	EndSystemTime   time.Time

	StartGameTime gametime.VTimeInSec
	EndGameTime   gametime.VTimeInSec

	// SystemDuration is the wall-clock duration of the run.
	SystemDuration time.Duration

	// GameDuration is the simulated duration of the run.
	GameDuration gametime.VTimeInSec

	Ticks uint64
}
