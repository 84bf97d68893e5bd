package campaign

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/dataset"
	"github.com/buckleypaul/testit/internal/device"
	"github.com/buckleypaul/testit/internal/fault"
	"github.com/buckleypaul/testit/internal/results"
)

type fakeGenerator struct {
	calls [][]dataset.Job
	err   error
}

func (g *fakeGenerator) Generate(jobs []dataset.Job) ([]dataset.Generated, error) {
	g.calls = append(g.calls, append([]dataset.Job(nil), jobs...))
	return nil, g.err
}

type fakeStore struct {
	cleared   bool
	durations *results.Durations
}

func (s *fakeStore) Clear() error {
	s.cleared = true
	return nil
}

func (s *fakeStore) WriteDurations(d results.Durations) error {
	s.durations = &d
	return nil
}

type launchMatcher struct {
	app       string
	iteration int
}

func (m launchMatcher) Matches(x interface{}) bool {
	l, ok := x.(device.Launch)
	return ok && l.App == m.app && l.Iteration == m.iteration
}

func (m launchMatcher) String() string {
	return fmt.Sprintf("launch of %s at iteration %d", m.app, m.iteration)
}

func launchOf(app string, iteration int) gomock.Matcher {
	return launchMatcher{app: app, iteration: iteration}
}

func testSpec(name string, params ...config.ParameterSpec) config.TestSpec {
	return config.TestSpec{
		AppName:      name,
		Dir:          "sw/" + name,
		OutputFormat: `(\d+):(\d+):(\w+)`,
		OutputTags:   []string{"ID", "Cycles", "Outcome"},
		Parameters:   params,
	}
}

func simConfig(iterations int, tests ...config.TestSpec) *config.Config {
	cfg := config.Defaults()
	cfg.Target.Type = config.TargetSim
	cfg.Target.Name = "verilator"
	cfg.Target.OutputFile = "out.txt"
	cfg.Target.Iterations = iterations
	cfg.Tests = tests
	return &cfg
}

func boardConfig(iterations int, tests ...config.TestSpec) *config.Config {
	cfg := simConfig(iterations, tests...)
	cfg.Target.Type = config.TargetBoard
	cfg.Target.Name = "pynq-z2"
	cfg.Target.USBPort = "0"
	cfg.Target.Baudrate = 115200
	return cfg
}

var _ = Describe("Controller", func() {
	var (
		mockCtrl *gomock.Controller
		session  *MockSession
		gen      *fakeGenerator
		store    *fakeStore
		events   []Event
		ctx      context.Context
	)

	newController := func(cfg *config.Config, opts Options) *Controller {
		return New(cfg, opts, Deps{
			Session:   session,
			Generator: gen,
			Store:     store,
			Observer:  ObserverFunc(func(e Event) { events = append(events, e) }),
		})
	}

	states := func() []State {
		var out []State
		for _, e := range events {
			if e.Kind == StateChanged {
				out = append(out, e.State)
			}
		}
		return out
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		session = NewMockSession(mockCtrl)
		gen = &fakeGenerator{}
		store = &fakeStore{}
		events = nil
		ctx = context.Background()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run every test every iteration on a simulator", func() {
		cfg := simConfig(3, testSpec("t1"), testSpec("t2"))
		c := newController(cfg, Options{})

		calls := []*gomock.Call{session.EXPECT().Build(gomock.Any())}
		for i := 0; i < 3; i++ {
			calls = append(calls,
				session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", i)),
				session.EXPECT().LaunchTest(gomock.Any(), launchOf("t2", i)))
		}
		calls = append(calls, session.EXPECT().Close())
		gomock.InOrder(calls...)

		Expect(c.Run(ctx)).To(Succeed())

		Expect(c.State()).To(Equal(Complete))
		Expect(states()).To(Equal([]State{Validated, Built, Iterating, Complete}))
		Expect(store.cleared).To(BeTrue())
		Expect(gen.calls).To(HaveLen(3))
		Expect(gen.calls[0]).To(HaveLen(2))

		Expect(store.durations).NotTo(BeNil())
		Expect(store.durations.Campaign).To(Equal(c.ID()))
		Expect(store.durations.Iterations).To(HaveLen(3))
	})

	It("should skip the build with NoBuild", func() {
		cfg := simConfig(1, testSpec("t1"))
		c := newController(cfg, Options{NoBuild: true})

		session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 0))
		session.EXPECT().Close()

		Expect(c.Run(ctx)).To(Succeed())
		Expect(states()).To(Equal([]State{Validated, Built, Iterating, Complete}))
	})

	It("should drop a test once its own sweep is exhausted", func() {
		cfg := simConfig(0,
			testSpec("t1", config.ParameterSpec{Name: "N", Value: config.Range(0, 4), Step: 2}),
			testSpec("t2", config.ParameterSpec{Name: "M", Value: config.Range(1, 2), Step: 1}),
		)
		c := newController(cfg, Options{NoBuild: true, Sweep: true})

		gomock.InOrder(
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 0)),
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t2", 0)),
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 1)),
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t2", 1)),
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 2)),
			session.EXPECT().Close(),
		)

		Expect(c.Run(ctx)).To(Succeed())

		Expect(gen.calls).To(HaveLen(3))
		Expect(gen.calls[1]).To(HaveLen(2))
		Expect(gen.calls[1][1].Index).To(BeEquivalentTo(1))
		Expect(gen.calls[2]).To(HaveLen(1))
		Expect(gen.calls[2][0].Test.AppName).To(Equal("t1"))
		Expect(gen.calls[2][0].Index).To(BeEquivalentTo(2))
	})

	It("should bring up a board and re-attach the debugger periodically", func() {
		cfg := boardConfig(12, testSpec("t1"))
		c := newController(cfg, Options{NoBuild: true})

		calls := []*gomock.Call{
			session.EXPECT().LoadBitstream(gomock.Any()),
			session.EXPECT().OpenSerial(),
			session.EXPECT().AttachDebugger(gomock.Any()),
		}
		for i := 0; i < 10; i++ {
			calls = append(calls, session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", i)))
		}
		calls = append(calls,
			session.EXPECT().DetachDebugger(),
			session.EXPECT().AttachDebugger(gomock.Any()),
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 10)),
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 11)),
			session.EXPECT().DetachDebugger(),
			session.EXPECT().Close(),
		)
		gomock.InOrder(calls...)

		Expect(c.Run(ctx)).To(Succeed())
		Expect(states()).To(Equal([]State{Validated, Built, Loaded, DeviceAttached, Iterating, Complete}))
	})

	It("should retry a failed re-attach once", func() {
		cfg := boardConfig(2, testSpec("t1"))
		c := newController(cfg, Options{NoBuild: true, ReattachEvery: 1})

		gomock.InOrder(
			session.EXPECT().LoadBitstream(gomock.Any()),
			session.EXPECT().OpenSerial(),
			session.EXPECT().AttachDebugger(gomock.Any()),
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 0)),
			session.EXPECT().DetachDebugger(),
			session.EXPECT().AttachDebugger(gomock.Any()).Return(errors.New("connection refused")),
			session.EXPECT().AttachDebugger(gomock.Any()),
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 1)),
			session.EXPECT().DetachDebugger(),
			session.EXPECT().Close(),
		)

		Expect(c.Run(ctx)).To(Succeed())
	})

	It("should abort when the re-attach retry fails too", func() {
		cfg := boardConfig(2, testSpec("t1"))
		c := newController(cfg, Options{NoBuild: true, ReattachEvery: 1})
		attachErr := fault.New(fault.Attach, "attach debugger", "connection refused")

		gomock.InOrder(
			session.EXPECT().LoadBitstream(gomock.Any()),
			session.EXPECT().OpenSerial(),
			session.EXPECT().AttachDebugger(gomock.Any()),
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 0)),
			session.EXPECT().DetachDebugger(),
			session.EXPECT().AttachDebugger(gomock.Any()).Return(attachErr).Times(2),
			session.EXPECT().Close(),
		)

		err := c.Run(ctx)
		Expect(fault.Is(err, fault.Attach)).To(BeTrue())
		Expect(c.State()).To(Equal(Aborted))
		Expect(store.durations).To(BeNil())
	})

	It("should abort the campaign on the first failing test", func() {
		cfg := simConfig(5, testSpec("t1"), testSpec("t2"))
		c := newController(cfg, Options{NoBuild: true})
		testErr := fault.New(fault.Test, "run t1", "debugger timed out")

		gomock.InOrder(
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 0)).Return(testErr),
			session.EXPECT().Close(),
		)

		err := c.Run(ctx)
		Expect(err).To(MatchError(testErr))
		Expect(c.State()).To(Equal(Aborted))

		last := events[len(events)-1]
		Expect(last.Kind).To(Equal(Failed))
		Expect(last.Err).To(MatchError(testErr))
	})

	It("should abort on a generation failure before launching", func() {
		cfg := simConfig(2, testSpec("t1"))
		c := newController(cfg, Options{NoBuild: true})
		gen.err = fault.New(fault.Generation, "generate t1", "test directory sw/t1 not found")

		session.EXPECT().Close()

		err := c.Run(ctx)
		Expect(fault.Is(err, fault.Generation)).To(BeTrue())
	})

	It("should reject an invalid configuration before any side effect", func() {
		cfg := boardConfig(1, testSpec("t1"))
		cfg.Target.Baudrate = 0
		c := newController(cfg, Options{})

		session.EXPECT().Close()

		err := c.Run(ctx)
		Expect(fault.Is(err, fault.Config)).To(BeTrue())
		Expect(store.cleared).To(BeFalse())
		Expect(states()).To(Equal([]State{Aborted}))
	})

	It("should require the backend's build targets", func() {
		makefile := filepath.Join(GinkgoT().TempDir(), "Makefile")
		Expect(os.WriteFile(makefile, []byte("sim-build:\n\techo ok\nsw-sim:\n\techo ok\n"), 0o644)).To(Succeed())
		c := newController(simConfig(1, testSpec("t1")), Options{Makefile: makefile})

		session.EXPECT().Close()

		err := c.Run(ctx)
		Expect(fault.Is(err, fault.Precondition)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("sim-run"))
	})

	It("should stop when the context is cancelled", func() {
		cfg := simConfig(3, testSpec("t1"))
		c := newController(cfg, Options{NoBuild: true})
		cctx, cancel := context.WithCancel(ctx)

		gomock.InOrder(
			session.EXPECT().LaunchTest(gomock.Any(), launchOf("t1", 0)).Do(func(context.Context, device.Launch) { cancel() }),
			session.EXPECT().Close(),
		)

		err := c.Run(cctx)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("should estimate the remaining time from the mean iteration", func() {
		d := results.Durations{}
		d.Add(0, 2*time.Second)
		d.Add(1, 4*time.Second)

		Expect(estimate(d, 3)).To(Equal(9 * time.Second))
		Expect(estimate(d, 0)).To(BeZero())
		Expect(estimate(results.Durations{}, 5)).To(BeZero())
	})
})
