package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"

	"github.com/buckleypaul/testit/internal/buildsys"
	"github.com/buckleypaul/testit/internal/campaign"
	"github.com/buckleypaul/testit/internal/dataset"
	"github.com/buckleypaul/testit/internal/device"
	"github.com/buckleypaul/testit/internal/golden"
	"github.com/buckleypaul/testit/internal/logging"
	"github.com/buckleypaul/testit/internal/results"
	"github.com/buckleypaul/testit/internal/ui"
)

const logFile = "testit.log"

var runFlags struct {
	noBuild  bool
	sweep    bool
	plain    bool
	timeout  time.Duration
	reattach int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the verification campaign",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&runFlags.noBuild, "nobuild", false, "skip building the model")
	f.BoolVar(&runFlags.sweep, "sweep", false, "sweep every ranged parameter instead of drawing random values")
	f.BoolVar(&runFlags.plain, "plain", false, "print plain progress lines instead of the interactive view")
	f.DurationVar(&runFlags.timeout, "timeout", 0, "bound on each test invocation (default from target.timeout)")
	f.IntVar(&runFlags.reattach, "reattach-every", campaign.DefaultReattachEvery, "replace the board debugger session after this many invocations, 0 disables")
}

func runRun(cmd *cobra.Command, _ []string) error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	cfg := proj.cfg
	if runFlags.timeout > 0 {
		cfg.Target.Timeout = runFlags.timeout
	}
	reportDir := proj.path(cfg.Report.Dir)

	interactive := !runFlags.plain && isatty.IsTerminal(os.Stdout.Fd())
	var logPaths []string
	if interactive {
		// The progress view owns the terminal.
		if err := os.MkdirAll(reportDir, 0o755); err != nil {
			return err
		}
		logPaths = []string{filepath.Join(reportDir, logFile)}
	}
	logger, err := newLogger(logPaths...)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store := results.New(reportDir)
	runner := buildsys.NewMake(cfg.Build.Tool, proj.buildDir, cfg.Build.Path)
	runner.Logger = logging.Component(logger, "make")

	session := device.New(device.Options{
		Target:   cfg.Target,
		Runner:   runner,
		Recorder: store,
		WorkDir:  proj.root,
		Logger:   logging.Component(logger, "device"),
	}, runner)
	atexit.Register(func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing device session", zap.Error(err))
		}
	})

	loader := golden.Cached(golden.NewScriptLoader(proj.path(cfg.Golden.File), logging.Component(logger, "golden")))
	gen := dataset.New(dataset.Options{
		Sweep:   runFlags.sweep,
		Seed:    cfg.Seed,
		Golden:  loader,
		BaseDir: proj.root,
		Logger:  logging.Component(logger, "dataset"),
	})

	reattach := runFlags.reattach
	if reattach == 0 {
		reattach = -1
	}
	opts := campaign.Options{
		NoBuild:       runFlags.noBuild,
		Sweep:         runFlags.sweep,
		ReattachEvery: reattach,
		Timeout:       cfg.Target.Timeout,
		Makefile:      proj.makefile,
	}
	deps := campaign.Deps{
		Session:   session,
		Generator: gen,
		Store:     store,
		Logger:    logger,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !interactive {
		deps.Observer = newLineObserver(cmd.OutOrStdout())
		return campaign.New(cfg, opts, deps).Run(ctx)
	}
	return runInteractive(ctx, cfg.Target.Name, opts, deps, proj)
}

// runInteractive runs the campaign on its own goroutine while the progress
// view runs on this one.
func runInteractive(ctx context.Context, target string, opts campaign.Options, deps campaign.Deps, proj *project) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewProgress("TestIt campaign on "+target, cancel))
	deps.Observer = teaObserver{send: p.Send}
	ctrl := campaign.New(proj.cfg, opts, deps)

	errc := make(chan error, 1)
	go func() {
		errc <- ctrl.Run(ctx)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return err
	}
	return <-errc
}
