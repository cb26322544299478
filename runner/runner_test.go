package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/drivelab/scenrunner/agent"
	"github.com/drivelab/scenrunner/scenario"
	"github.com/drivelab/scenrunner/scenariotest"
	"github.com/drivelab/scenrunner/world"
)

type captureAnalyzer struct {
	mu    sync.Mutex
	calls int
	stats Stats
}

func (c *captureAnalyzer) Analyze(_ scenario.Scenario, stats Stats) {
	c.mu.Lock()
	c.calls++
	c.stats = stats
	c.mu.Unlock()
}

func (c *captureAnalyzer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *captureAnalyzer) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

type setupFailAgent struct {
	scenariotest.ScriptedAgent
}

func (a *setupFailAgent) Setup(world.Actor, bool) error {
	return errors.New("sensor bridge unavailable")
}

type tickCollector struct {
	mu   sync.Mutex
	recs []TickRecord
}

func (c *tickCollector) OnTick(rec TickRecord) {
	c.mu.Lock()
	c.recs = append(c.recs, rec)
	c.mu.Unlock()
}

func (c *tickCollector) Records() []TickRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TickRecord{}, c.recs...)
}

var _ = Describe("Runner", func() {
	Context("loading", func() {
		It("should reject a scenario without a controlled actor", func() {
			scn := scenariotest.NewStubScenario(1)
			scn.Ego = nil

			r := New(scenariotest.NewFakeSimulator(), time.Second)
			err := r.Load(scn, &scenariotest.ScriptedAgent{}, 0)

			var cfgErr *ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(r.State()).To(Equal(StateIdle))
		})

		It("should reject an agent that fails to set up", func() {
			r := New(scenariotest.NewFakeSimulator(), time.Second)
			err := r.Load(scenariotest.NewStubScenario(1), &setupFailAgent{}, 0)

			var cfgErr *ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Reason).To(ContainSubstring("sensor bridge unavailable"))
		})

		It("should panic when loaded twice", func() {
			r := New(scenariotest.NewFakeSimulator(), time.Second)
			Expect(r.Load(scenariotest.NewStubScenario(1),
				&scenariotest.ScriptedAgent{}, 0)).To(Succeed())

			Expect(func() {
				_ = r.Load(scenariotest.NewStubScenario(1),
					&scenariotest.ScriptedAgent{}, 0)
			}).To(Panic())
		})

		It("should panic when run without a loaded scenario", func() {
			r := New(scenariotest.NewFakeSimulator(), time.Second)
			Expect(func() {
				_ = r.Run(context.Background())
			}).To(Panic())
		})
	})

	Context("running to completion", func() {
		var (
			sim      *scenariotest.FakeSimulator
			agt      *scenariotest.ScriptedAgent
			scn      *scenariotest.StubScenario
			analyzer *captureAnalyzer
			ticks    *tickCollector
			r        *Runner
		)

		BeforeEach(func() {
			sim = scenariotest.NewFakeSimulator()
			agt = &scenariotest.ScriptedAgent{
				Control: world.Control{Throttle: 0.6},
			}
			scn = scenariotest.NewStubScenario(10)
			analyzer = &captureAnalyzer{}
			ticks = &tickCollector{}

			r = New(sim, 2*time.Second).
				WithAnalyzer(analyzer).
				AddTickObserver(ticks)

			Expect(r.Load(scn, agt, 0)).To(Succeed())
			Expect(r.Run(context.Background())).To(Succeed())
			r.Stop()
		})

		It("should tick once per frame until the tree terminates", func() {
			Expect(r.TickCount()).To(Equal(uint64(11)))
			Expect(scn.TreeImpl.Ticks()).To(Equal(11))
			Expect(agt.Calls()).To(Equal(11))
		})

		It("should apply one control command per tick", func() {
			applied := sim.AppliedControls()
			Expect(applied).To(HaveLen(11))
			Expect(applied[0].Throttle).To(Equal(0.6))
		})

		It("should park the observer above the controlled actor", func() {
			poses := sim.ObserverPoses()
			Expect(poses).To(HaveLen(11))
			Expect(poses[0].Location.Z).To(Equal(50.0))
			Expect(poses[0].Rotation.Pitch).To(Equal(-90.0))
		})

		It("should notify tick observers in order", func() {
			recs := ticks.Records()
			Expect(recs).To(HaveLen(11))
			Expect(recs[0].Tick).To(Equal(uint64(1)))
			Expect(recs[10].Tick).To(Equal(uint64(11)))
			Expect(recs[10].TreeStatus).To(Equal(scenario.StatusSuccess))
			Expect(recs[10].GameTime).To(BeNumerically(">", recs[0].GameTime))
		})

		It("should terminate the scenario and release the agent", func() {
			Expect(scn.Terminations()).To(Equal(1))
			Expect(agt.Released()).To(BeTrue())
		})

		It("should analyze the run exactly once", func() {
			Expect(analyzer.Calls()).To(Equal(1))
			Expect(analyzer.Stats().Ticks).To(Equal(uint64(11)))
		})

		It("should account game time from the simulator frames", func() {
			stats := r.Stats()
			Expect(float64(stats.GameDuration)).
				To(BeNumerically("~", 0.55, 1e-9))
			Expect(stats.SystemDuration).To(BeNumerically(">", 0))
			Expect(stats.RunID).NotTo(BeEmpty())
		})

		It("should end in the stopped state", func() {
			Expect(r.State()).To(Equal(StateStopped))
		})

		It("should stop idempotently", func() {
			stats := r.Stats()

			r.Stop()
			r.Stop()

			Expect(scn.Terminations()).To(Equal(1))
			Expect(analyzer.Calls()).To(Equal(1))
			Expect(r.Stats()).To(Equal(stats))
		})
	})

	Context("frame deduplication", func() {
		var ctrl *gomock.Controller

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
		})

		AfterEach(func() {
			ctrl.Finish()
		})

		It("should tick at most once per distinct timestamp", func() {
			sim := NewMockSimulator(ctrl)
			refresher := NewMockStateRefresher(ctrl)

			ts1 := world.Timestamp{Frame: 1, ElapsedSeconds: 0.05, DeltaSeconds: 0.05}
			ts2 := world.Timestamp{Frame: 2, ElapsedSeconds: 0.10, DeltaSeconds: 0.05}

			gomock.InOrder(
				sim.EXPECT().CurrentFrame().Return(ts1, true).Times(3),
				sim.EXPECT().CurrentFrame().Return(ts2, true),
			)
			sim.EXPECT().
				AdvanceOneFrame(gomock.Any(), gomock.Any()).
				Return(nil).
				Times(3)
			sim.EXPECT().
				ApplyControl(gomock.Any(), gomock.Any()).
				Return(nil).
				Times(2)
			sim.EXPECT().
				ControlledActorTransform().
				Return(world.Pose{}, nil).
				Times(2)
			sim.EXPECT().
				RepositionObserver(gomock.Any()).
				Return(nil).
				Times(2)
			refresher.EXPECT().OnFrame(ts1)
			refresher.EXPECT().OnFrame(ts2)

			r := New(sim, time.Second).WithStateRefresher(refresher)
			agt := &scenariotest.ScriptedAgent{}

			Expect(r.Load(scenariotest.NewStubScenario(1), agt, 0)).To(Succeed())
			Expect(r.Run(context.Background())).To(Succeed())

			Expect(r.TickCount()).To(Equal(uint64(2)))
			Expect(agt.Calls()).To(Equal(2))
		})

		It("should not tick on a zero-time first frame", func() {
			sim := NewMockSimulator(ctrl)

			ts0 := world.Timestamp{Frame: 0, ElapsedSeconds: 0, DeltaSeconds: 0.05}
			ts1 := world.Timestamp{Frame: 1, ElapsedSeconds: 0.05, DeltaSeconds: 0.05}

			gomock.InOrder(
				sim.EXPECT().CurrentFrame().Return(ts0, true),
				sim.EXPECT().CurrentFrame().Return(ts1, true),
			)
			sim.EXPECT().
				AdvanceOneFrame(gomock.Any(), gomock.Any()).
				Return(nil)
			sim.EXPECT().
				ApplyControl(gomock.Any(), gomock.Any()).
				Return(nil)
			sim.EXPECT().
				ControlledActorTransform().
				Return(world.Pose{}, nil)
			sim.EXPECT().
				RepositionObserver(gomock.Any()).
				Return(nil)

			r := New(sim, time.Second)
			agt := &scenariotest.ScriptedAgent{}

			Expect(r.Load(scenariotest.NewStubScenario(0), agt, 0)).To(Succeed())
			Expect(r.Run(context.Background())).To(Succeed())

			Expect(r.TickCount()).To(Equal(uint64(1)))
			Expect(agt.Calls()).To(Equal(1))
		})
	})

	Context("concurrent observation", func() {
		It("should serve watchdog health and stats while the loop runs", func() {
			sim := scenariotest.NewFakeSimulator()
			sim.AdvanceDelay = time.Millisecond
			scn := scenariotest.NewStubScenario(50)

			r := New(sim, 2*time.Second)
			Expect(r.Load(scn, &scenariotest.ScriptedAgent{}, 0)).To(Succeed())

			stop := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}

					worldOK, agentOK := r.WatchdogStatus()
					_ = worldOK && agentOK
					_ = r.RunningStatus()
					_ = r.Stats()
					_ = r.State()
					_ = r.TickCount()
				}
			}()

			Expect(r.Run(context.Background())).To(Succeed())
			r.Stop()

			close(stop)
			wg.Wait()

			worldOK, agentOK := r.WatchdogStatus()
			Expect(worldOK).To(BeTrue())
			Expect(agentOK).To(BeTrue())
			Expect(r.Stats().Ticks).To(Equal(uint64(51)))
		})
	})

	Context("fault attribution", func() {
		It("should blame the agent for its own errors", func() {
			sim := scenariotest.NewFakeSimulator()
			agt := &scenariotest.ScriptedAgent{
				FailAt:   3,
				FailWith: errors.New("planner crash"),
			}

			r := New(sim, time.Second)
			Expect(r.Load(scenariotest.NewStubScenario(100), agt, 0)).To(Succeed())

			err := r.Run(context.Background())

			var af *AgentFault
			Expect(errors.As(err, &af)).To(BeTrue())
			Expect(af.Error()).To(ContainSubstring("planner crash"))
		})

		It("should blame the simulation for missing sensor data", func() {
			sim := scenariotest.NewFakeSimulator()
			agt := &scenariotest.ScriptedAgent{
				FailAt:   2,
				FailWith: agent.ErrNoSensorData,
			}

			r := New(sim, time.Second)
			Expect(r.Load(scenariotest.NewStubScenario(100), agt, 0)).To(Succeed())

			err := r.Run(context.Background())

			var sf *SimulationFault
			Expect(errors.As(err, &sf)).To(BeTrue())
			Expect(errors.Is(err, agent.ErrNoSensorData)).To(BeTrue())
		})
	})

	Context("deadline expiry", func() {
		It("should unwind a hanging agent decision as an agent deadline", func() {
			sim := scenariotest.NewFakeSimulator()
			agt := &scenariotest.ScriptedAgent{HangAt: 2}
			scn := scenariotest.NewStubScenario(100)
			analyzer := &captureAnalyzer{}

			r := New(sim, 100*time.Millisecond).WithAnalyzer(analyzer)
			Expect(r.Load(scn, agt, 0)).To(Succeed())

			err := r.Run(context.Background())

			var df *DeadlineFault
			Expect(errors.As(err, &df)).To(BeTrue())
			Expect(df.Which).To(Equal(WatchdogAgent))

			Expect(r.Interrupt()).To(MatchError(err))
			Expect(r.RunningStatus()).To(BeFalse())

			r.Stop()

			Expect(scn.Terminations()).To(BeZero())
			Expect(analyzer.Calls()).To(BeZero())
		})

		It("should unwind a hanging frame advance as a world deadline", func() {
			sim := scenariotest.NewFakeSimulator()
			sim.HangOnAdvance = true
			scn := scenariotest.NewStubScenario(100)
			analyzer := &captureAnalyzer{}

			r := New(sim, 100*time.Millisecond).WithAnalyzer(analyzer)
			Expect(r.Load(scn, &scenariotest.ScriptedAgent{}, 0)).To(Succeed())

			err := r.Run(context.Background())

			var df *DeadlineFault
			Expect(errors.As(err, &df)).To(BeTrue())
			Expect(df.Which).To(Equal(WatchdogWorld))

			r.Stop()

			Expect(scn.Terminations()).To(BeZero())
			Expect(analyzer.Calls()).To(BeZero())
		})
	})

	Context("external interruption", func() {
		It("should stop the loop gracefully while healthy", func() {
			sim := scenariotest.NewFakeSimulator()
			scn := scenariotest.NewStubScenario(1_000_000)
			analyzer := &captureAnalyzer{}

			r := New(sim, 2*time.Second).WithAnalyzer(analyzer)
			Expect(r.Load(scn, &scenariotest.ScriptedAgent{}, 0)).To(Succeed())

			done := make(chan error, 1)
			go func() {
				done <- r.Run(context.Background())
			}()

			Eventually(r.TickCount).Should(BeNumerically(">", 0))
			Expect(r.Interrupt()).To(Succeed())

			Eventually(done).Should(Receive(BeNil()))

			r.Stop()

			Expect(scn.Terminations()).To(Equal(1))
			Expect(analyzer.Calls()).To(Equal(1))
		})
	})
})
