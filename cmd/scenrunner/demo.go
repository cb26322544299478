package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drivelab/scenrunner/analysis"
	"github.com/drivelab/scenrunner/datarecording"
	"github.com/drivelab/scenrunner/monitoring"
	"github.com/drivelab/scenrunner/runner"
	"github.com/drivelab/scenrunner/scenario"
	"github.com/drivelab/scenrunner/scenariotest"
	"github.com/drivelab/scenrunner/world"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a synthetic scenario through the real run loop",
	Long: `Demo drives a built-in synthetic scenario through the real run ` +
		`loop: an in-memory simulator produces frames at a fixed simulated ` +
		`rate, a scripted agent answers every decision, and the behavior ` +
		`tree succeeds after a configurable number of ticks. Useful for ` +
		`smoke-testing an installation and for exercising the monitoring ` +
		`and recording backends.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().Float64("timeout", 20.0,
		"watchdog timeout in seconds for the world and agent steps")
	demoCmd.Flags().Bool("debug", false,
		"dump the behavior tree after every tick")
	demoCmd.Flags().Int("ticks", 11,
		"number of ticks before the synthetic scenario succeeds")
	demoCmd.Flags().Bool("record", true,
		"record the run into a SQLite run log")
	demoCmd.Flags().Int("monitor-port", 0,
		"serve the live monitor on this port (0 disables)")

	_ = viper.BindPFlag("timeout", demoCmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("debug", demoCmd.Flags().Lookup("debug"))
	_ = viper.BindPFlag("demo.ticks", demoCmd.Flags().Lookup("ticks"))
	_ = viper.BindPFlag("record.enabled", demoCmd.Flags().Lookup("record"))
	_ = viper.BindPFlag("monitor.port", demoCmd.Flags().Lookup("monitor-port"))

	rootCmd.AddCommand(demoCmd)
}

// captureReporter remembers the last verdict so the command can translate it
// into an exit status.
type captureReporter struct {
	verdict analysis.Verdict
	emitted bool
}

func (c *captureReporter) Emit(
	v analysis.Verdict,
	_ []scenario.Criterion,
	_ runner.Stats,
) {
	c.verdict = v
	c.emitted = true
}

func runDemo(cmd *cobra.Command, _ []string) error {
	timeout := time.Duration(viper.GetFloat64("timeout") * float64(time.Second))
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", timeout)
	}

	debug := viper.GetBool("debug")
	log := newLogger(debug)

	sim := scenariotest.NewFakeSimulator()
	sim.AdvanceDelay = 2 * time.Millisecond

	agt := &scenariotest.ScriptedAgent{
		Control: world.Control{Throttle: 0.4},
		Latency: time.Millisecond,
	}

	ticks := viper.GetInt("demo.ticks")
	if ticks < 1 {
		ticks = 1
	}
	scn := scenariotest.NewStubScenario(ticks - 1)
	scn.ScenarioName = "demo"

	capture := &captureReporter{}
	analyzer := analysis.NewAnalyzer(analysis.NewLogReporter(log), capture)

	r := runner.New(sim, timeout).
		WithDebug(debug).
		WithLogger(log).
		WithAnalyzer(analyzer)

	if viper.GetBool("record.enabled") {
		recorder := datarecording.New(viper.GetString("record.path"))
		defer recorder.Close()

		runLog := datarecording.NewRunLog(recorder)
		r.AddTickObserver(runLog)
		analyzer.AddReporter(runLog)
	}

	if port := viper.GetInt("monitor.port"); port > 0 {
		monitor := monitoring.NewMonitor().WithPortNumber(port)
		monitor.RegisterRunner(r)
		r.AddTickObserver(monitor)
		monitor.StartServer()

		if viper.GetBool("monitor.open") {
			monitor.OpenDashboard()
		}
	}

	if err := r.Load(scn, agt, 0); err != nil {
		return err
	}

	// Forward interrupts to the runner. A pending watchdog expiry takes
	// precedence over the stop request.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	go func() {
		for range sigCh {
			if err := r.Interrupt(); err != nil {
				log.Error().Err(err).Msg("interrupt superseded by fault")
			}
		}
	}()

	runErr := r.Run(cmd.Context())
	r.Stop()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if capture.emitted && capture.verdict != analysis.VerdictSuccess {
		return fmt.Errorf("scenario finished with verdict %s", capture.verdict)
	}

	return nil
}
