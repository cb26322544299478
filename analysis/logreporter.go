package analysis

import (
	"github.com/rs/zerolog"

	"github.com/drivelab/scenrunner/runner"
	"github.com/drivelab/scenrunner/scenario"
)

// A LogReporter writes the verdict, the per-criterion results, and the run
// timing to a structured logger.
type LogReporter struct {
	log zerolog.Logger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(log zerolog.Logger) *LogReporter {
	return &LogReporter{log: log}
}

// Emit implements Reporter.
func (r *LogReporter) Emit(
	v Verdict,
	criteria []scenario.Criterion,
	stats runner.Stats,
) {
	for _, c := range criteria {
		evt := r.log.Info()
		if c.Status != scenario.StatusSuccess {
			evt = r.log.Error()
		}

		evt.
			Str("criterion", c.Name).
			Stringer("status", c.Status).
			Msg("criterion result")
	}

	evt := r.log.Info()
	if v == VerdictFailure {
		evt = r.log.Error()
	}

	evt.
		Stringer("verdict", v).
		Str("run_id", stats.RunID).
		Int("repetition", stats.Repetition).
		Uint64("ticks", stats.Ticks).
		Dur("system_duration", stats.SystemDuration).
		Float64("game_duration_sec", float64(stats.GameDuration)).
		Msg("scenario result")
}
