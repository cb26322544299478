// Package analysis computes the overall verdict of a finished scenario run
// and hands it to the registered reporters.
package analysis

import (
	"github.com/drivelab/scenrunner/runner"
	"github.com/drivelab/scenrunner/scenario"
)

// Verdict is the overall outcome of a scenario run.
type Verdict int

const (
	VerdictSuccess Verdict = iota
	VerdictFailure
)

func (v Verdict) String() string {
	if v == VerdictSuccess {
		return "SUCCESS"
	}
	return "FAILURE"
}

// A Reporter receives the verdict together with the per-criterion results
// and the run statistics. Reporting format is outside this module.
type Reporter interface {
	Emit(v Verdict, criteria []scenario.Criterion, stats runner.Stats)
}

// An Analyzer derives the verdict of a run. Verdict computation only reads
// scenario state and has no side effects on it.
type Analyzer struct {
	reporters []Reporter
}

// NewAnalyzer creates an Analyzer that emits to the given reporters.
func NewAnalyzer(reporters ...Reporter) *Analyzer {
	return &Analyzer{reporters: reporters}
}

// AddReporter registers an additional reporter.
func (a *Analyzer) AddReporter(r Reporter) {
	a.reporters = append(a.reporters, r)
}

// Analyze inspects the scenario's criteria and timeout flag and emits the
// verdict. The overall result is FAILURE if any criterion is not SUCCESS or
// if the scenario timed out, SUCCESS otherwise.
func (a *Analyzer) Analyze(scn scenario.Scenario, stats runner.Stats) {
	a.Verdict(scn, stats)
}

// Verdict computes and reports the verdict, returning it to the caller.
func (a *Analyzer) Verdict(
	scn scenario.Scenario,
	stats runner.Stats,
) Verdict {
	verdict := VerdictSuccess

	criteria := scn.Criteria()
	for _, c := range criteria {
		if c.Status != scenario.StatusSuccess {
			verdict = VerdictFailure
		}
	}

	if scn.TimedOut() {
		verdict = VerdictFailure
	}

	for _, r := range a.reporters {
		r.Emit(verdict, criteria, stats)
	}

	return verdict
}
