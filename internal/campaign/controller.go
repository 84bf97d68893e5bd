// Package campaign sequences a verification campaign: validate, build,
// bring up the device, then run every test for every iteration.
package campaign

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/buckleypaul/testit/internal/buildsys"
	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/dataset"
	"github.com/buckleypaul/testit/internal/device"
	"github.com/buckleypaul/testit/internal/fault"
	"github.com/buckleypaul/testit/internal/results"
)

// DefaultReattachEvery is how many invocations a board debugger session
// serves before it is replaced.
const DefaultReattachEvery = 10

// Options tunes a campaign run.
type Options struct {
	NoBuild bool
	Sweep   bool
	// ReattachEvery replaces the board debugger session after this many
	// test invocations. Zero uses DefaultReattachEvery, negative disables.
	ReattachEvery int
	// Timeout bounds each test invocation.
	Timeout time.Duration
	// Makefile is checked for the targets the backend needs. Empty skips
	// the check.
	Makefile string
}

// Generator writes the datasets of a set of tests.
type Generator interface {
	Generate(jobs []dataset.Job) ([]dataset.Generated, error)
}

// Store is the part of the results store the controller owns.
type Store interface {
	Clear() error
	WriteDurations(d results.Durations) error
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Session   device.Session
	Generator Generator
	Store     Store
	Observer  Observer
	Logger    *zap.Logger
}

// Controller runs one campaign.
type Controller struct {
	cfg  *config.Config
	opts Options
	deps Deps

	id       string
	state    State
	attached bool
	started  time.Time
	logger   *zap.Logger
	observer Observer
}

// New returns a Controller for cfg.
func New(cfg *config.Config, opts Options, deps Deps) *Controller {
	if opts.ReattachEvery == 0 {
		opts.ReattachEvery = DefaultReattachEvery
	}
	if opts.Timeout <= 0 {
		opts.Timeout = cfg.Target.Timeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	id := uuid.NewString()
	return &Controller{
		cfg:      cfg,
		opts:     opts,
		deps:     deps,
		id:       id,
		state:    Init,
		logger:   logger.Named("campaign").With(zap.String("campaign", id)),
		observer: observer,
	}
}

// ID identifies the campaign in logs and the durations document.
func (c *Controller) ID() string { return c.id }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Run executes the campaign. The first failure aborts it; the session is
// closed on every path.
func (c *Controller) Run(ctx context.Context) (err error) {
	c.started = time.Now()
	defer func() {
		if cerr := c.deps.Session.Close(); cerr != nil {
			c.logger.Warn("closing device session", zap.Error(cerr))
		}
		if err != nil {
			c.setState(Aborted)
			c.logger.Error("campaign aborted", zap.Stringer("kind", fault.KindOf(err)), zap.Error(err))
			c.emit(Event{Kind: Failed, Err: err})
		}
	}()

	if err := c.validate(); err != nil {
		return err
	}
	c.setState(Validated)

	if err := c.deps.Store.Clear(); err != nil {
		return fault.Wrap(fault.Precondition, "clear results", err)
	}

	if c.opts.NoBuild {
		c.logger.Info("build skipped")
	} else {
		c.phase("build")
		if err := c.deps.Session.Build(ctx); err != nil {
			return err
		}
	}
	c.setState(Built)

	if c.cfg.Target.IsBoard() {
		if err := c.bringUp(ctx); err != nil {
			return err
		}
	}

	c.setState(Iterating)
	durations, err := c.iterate(ctx)
	if err != nil {
		return err
	}

	if c.attached {
		if err := c.deps.Session.DetachDebugger(); err != nil {
			c.logger.Warn("detaching debugger", zap.Error(err))
		}
		c.attached = false
	}
	if err := c.deps.Store.WriteDurations(durations); err != nil {
		return err
	}

	c.setState(Complete)
	c.emit(Event{Kind: Finished, Elapsed: time.Since(c.started)})
	return nil
}

func (c *Controller) validate() error {
	if c.opts.Makefile != "" {
		required := buildsys.SimTargets
		if c.cfg.Target.IsBoard() {
			required = buildsys.BoardTargets
		}
		if err := buildsys.CheckTargets(c.opts.Makefile, required); err != nil {
			return err
		}
	}
	return config.Validate(c.cfg, c.opts.Sweep)
}

func (c *Controller) bringUp(ctx context.Context) error {
	c.phase("load")
	if err := c.deps.Session.LoadBitstream(ctx); err != nil {
		return err
	}
	c.setState(Loaded)

	c.phase("serial")
	if err := c.deps.Session.OpenSerial(); err != nil {
		return err
	}

	c.phase("attach")
	if err := c.deps.Session.AttachDebugger(ctx); err != nil {
		return err
	}
	c.attached = true
	c.setState(DeviceAttached)
	return nil
}

// activeTest tracks a test's own progress through its sweep.
type activeTest struct {
	spec   config.TestSpec
	launch device.Launch
	total  int64
	done   int64
}

func (c *Controller) iterate(ctx context.Context) (results.Durations, error) {
	durations := results.Durations{Campaign: c.id, Started: c.started}

	active := make([]*activeTest, 0, len(c.cfg.Tests))
	for _, test := range c.cfg.Tests {
		launch, err := device.LaunchFor(test, 0, c.opts.Timeout)
		if err != nil {
			return durations, err
		}
		active = append(active, &activeTest{
			spec:   test,
			launch: launch,
			total:  dataset.SweepCount(test.Parameters),
		})
	}
	total := c.totalIterations(active)
	c.logger.Info("running tests",
		zap.Int("iterations", total),
		zap.Int("tests", len(active)),
		zap.Bool("sweep", c.opts.Sweep))

	invocations := 0
	for i := 0; i < total && len(active) > 0; i++ {
		if err := ctx.Err(); err != nil {
			return durations, errors.Wrap(err, "campaign interrupted")
		}
		start := time.Now()

		jobs := make([]dataset.Job, len(active))
		for k, a := range active {
			jobs[k] = dataset.Job{Test: a.spec, Index: a.done}
		}
		if _, err := c.deps.Generator.Generate(jobs); err != nil {
			return durations, err
		}

		remaining := active[:0]
		for _, a := range active {
			if c.reattachDue(invocations) {
				if err := c.reattach(ctx); err != nil {
					return durations, err
				}
			}

			c.emit(Event{Kind: TestStarted, Iteration: i, Total: total, Test: a.spec.AppName, Done: invocations})
			launch := a.launch
			launch.Iteration = i
			if err := c.deps.Session.LaunchTest(ctx, launch); err != nil {
				return durations, err
			}
			invocations++
			c.emit(Event{Kind: TestFinished, Iteration: i, Total: total, Test: a.spec.AppName, Done: invocations})

			a.done++
			if c.opts.Sweep && a.done >= a.total {
				c.logger.Debug("sweep exhausted", zap.String("test", a.spec.AppName), zap.Int64("combinations", a.total))
				continue
			}
			remaining = append(remaining, a)
		}
		active = remaining

		elapsed := time.Since(start)
		durations.Add(i, elapsed)
		c.emit(Event{
			Kind:      IterationFinished,
			Iteration: i,
			Total:     total,
			Done:      invocations,
			Elapsed:   time.Since(c.started),
			Remaining: estimate(durations, total-i-1),
		})
	}
	return durations, nil
}

func (c *Controller) totalIterations(tests []*activeTest) int {
	if !c.opts.Sweep {
		return c.cfg.Target.Iterations
	}
	var most int64
	for _, t := range tests {
		most = max(most, t.total)
	}
	return int(most)
}

func (c *Controller) reattachDue(invocations int) bool {
	every := c.opts.ReattachEvery
	return c.attached && every > 0 && invocations > 0 && invocations%every == 0
}

// reattach replaces the debugger session, retrying the attach once.
func (c *Controller) reattach(ctx context.Context) error {
	c.logger.Debug("re-attaching debugger")
	if err := c.deps.Session.DetachDebugger(); err != nil {
		c.logger.Warn("detaching debugger", zap.Error(err))
	}
	err := c.deps.Session.AttachDebugger(ctx)
	if err == nil {
		return nil
	}
	c.logger.Warn("re-attach failed, retrying", zap.Error(err))
	if err := c.deps.Session.AttachDebugger(ctx); err != nil {
		c.attached = false
		return err
	}
	return nil
}

// estimate extrapolates the mean iteration time over left iterations.
func estimate(d results.Durations, left int) time.Duration {
	if len(d.Iterations) == 0 || left <= 0 {
		return 0
	}
	mean := d.Total() / time.Duration(len(d.Iterations))
	return mean * time.Duration(left)
}

func (c *Controller) setState(s State) {
	c.logger.Debug("state", zap.Stringer("from", c.state), zap.Stringer("to", s))
	c.state = s
	c.emit(Event{Kind: StateChanged, State: s})
}

func (c *Controller) phase(name string) {
	c.logger.Info("phase", zap.String("phase", name))
	c.emit(Event{Kind: PhaseStarted, State: c.state, Phase: name})
}

func (c *Controller) emit(e Event) {
	if e.Kind != StateChanged {
		e.State = c.state
	}
	c.observer.Notify(e)
}
