package datarecording

import (
	"github.com/drivelab/scenrunner/analysis"
	"github.com/drivelab/scenrunner/runner"
	"github.com/drivelab/scenrunner/scenario"
)

// Table names used by the run log.
const (
	TableTicks      = "ticks"
	TableCriteria   = "criteria"
	TableRunSummary = "run_summary"
)

// TickRow is one recorded tick.
type TickRow struct {
	Tick            uint64
	Frame           uint64
	GameTimeSec     float64
	WallTimeUnixMS  int64
	TreeStatus      string
	AgentLatencySec float64
}

// CriterionRow is one recorded criterion result.
type CriterionRow struct {
	RunID  string
	Name   string
	Status string
}

// SummaryRow is the recorded outcome of one run.
type SummaryRow struct {
	RunID             string
	Repetition        int
	Verdict           string
	Ticks             uint64
	SystemDurationSec float64
	GameDurationSec   float64
}

// A RunLog records the progress and the outcome of a scenario run. It plugs
// into the run loop as a tick observer and into the analyzer as a reporter.
type RunLog struct {
	recorder DataRecorder
}

// NewRunLog creates a RunLog on top of a DataRecorder and creates the run
// tables.
func NewRunLog(recorder DataRecorder) *RunLog {
	l := &RunLog{recorder: recorder}

	recorder.CreateTable(TableTicks, TickRow{})
	recorder.CreateTable(TableCriteria, CriterionRow{})
	recorder.CreateTable(TableRunSummary, SummaryRow{})

	return l
}

// OnTick implements runner.TickObserver.
func (l *RunLog) OnTick(rec runner.TickRecord) {
	l.recorder.InsertData(TableTicks, TickRow{
		Tick:            rec.Tick,
		Frame:           rec.Frame,
		GameTimeSec:     float64(rec.GameTime),
		WallTimeUnixMS:  rec.WallTime.UnixMilli(),
		TreeStatus:      rec.TreeStatus.String(),
		AgentLatencySec: rec.AgentLatency.Seconds(),
	})
}

// Emit implements analysis.Reporter.
func (l *RunLog) Emit(
	v analysis.Verdict,
	criteria []scenario.Criterion,
	stats runner.Stats,
) {
	for _, c := range criteria {
		l.recorder.InsertData(TableCriteria, CriterionRow{
			RunID:  stats.RunID,
			Name:   c.Name,
			Status: c.Status.String(),
		})
	}

	l.recorder.InsertData(TableRunSummary, SummaryRow{
		RunID:             stats.RunID,
		Repetition:        stats.Repetition,
		Verdict:           v.String(),
		Ticks:             stats.Ticks,
		SystemDurationSec: stats.SystemDuration.Seconds(),
		GameDurationSec:   float64(stats.GameDuration),
	})

	l.recorder.Flush()
}
