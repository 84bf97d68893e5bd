// Package device runs build, load and test steps against a simulator or a
// physical board. Both backends implement Session.
package device

import (
	"context"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/buckleypaul/testit/internal/buildsys"
	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/fault"
	"github.com/buckleypaul/testit/internal/results"
)

// Session is the device contract the campaign controller drives. Board-only
// operations are no-ops on a simulator.
type Session interface {
	Build(ctx context.Context) error
	LoadBitstream(ctx context.Context) error
	OpenSerial() error
	AttachDebugger(ctx context.Context) error
	DetachDebugger() error
	LaunchTest(ctx context.Context, l Launch) error
	Close() error
}

// Launch is one invocation of a test application.
type Launch struct {
	App       string
	Iteration int
	// Pattern is matched against every output line; its capture groups are
	// zipped with Tags.
	Pattern *regexp.Regexp
	Tags    []string
	// Timeout bounds the whole invocation. Zero means no bound.
	Timeout time.Duration
}

// LaunchFor builds the Launch of test at iteration.
func LaunchFor(test config.TestSpec, iteration int, timeout time.Duration) (Launch, error) {
	re, err := regexp.Compile(test.OutputFormat)
	if err != nil {
		return Launch{}, fault.Wrap(fault.Config, "output format of "+test.AppName, err)
	}
	return Launch{
		App:       test.AppName,
		Iteration: iteration,
		Pattern:   re,
		Tags:      test.OutputTags,
		Timeout:   timeout,
	}, nil
}

// Recorder receives the classified records of each invocation.
type Recorder interface {
	Append(test string, iteration int, records []results.Record) error
}

// Options holds what both backends share.
type Options struct {
	Target   config.TargetConfig
	Runner   buildsys.Runner
	Recorder Recorder
	// WorkDir is the project directory. Crash logs are written there and a
	// relative simulator output file is resolved against it.
	WorkDir string
	Logger  *zap.Logger
}

// New returns the backend for opts.Target. spawner starts the long-running
// board targets and is unused for a simulator.
func New(opts Options, spawner Spawner) Session {
	if opts.Target.IsBoard() {
		return NewBoard(opts, spawner)
	}
	return NewSimulator(opts)
}

// Classify turns output lines into records. Every line the pattern matches
// yields one record whose fields are the capture groups keyed by tags.
func Classify(lines []string, pattern *regexp.Regexp, tags []string) []results.Record {
	var records []results.Record
	for _, line := range lines {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		groups := m[1:]
		rec := results.Record{Fields: make([]results.Field, 0, len(groups))}
		for i, g := range groups {
			if i >= len(tags) {
				break
			}
			rec.Fields = append(rec.Fields, results.Field{Key: tags[i], Value: g})
		}
		records = append(records, rec)
	}
	return records
}

// base carries the step runner shared by both backends.
type base struct {
	opts   Options
	logger *zap.Logger
}

func newBase(opts Options, name string) base {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{opts: opts, logger: logger.Named(name)}
}

// step runs one build target and classifies it by the error-marker rule. A
// failing step leaves its output in the crash log.
func (b *base) step(ctx context.Context, kind fault.Kind, op, target string, vars ...buildsys.Var) error {
	out, err := b.opts.Runner.Run(ctx, target, vars...)
	if err != nil {
		return fault.Wrap(kind, op, err)
	}
	if merr := out.Err(); merr != nil {
		b.crashLog(out)
		return fault.Wrap(kind, op, merr)
	}
	b.logger.Debug("step finished", zap.String("op", op), zap.Duration("duration", out.Duration))
	return nil
}

func (b *base) crashLog(out buildsys.Output) {
	path, err := buildsys.WriteCrashLog(b.opts.WorkDir, out)
	if err != nil {
		b.logger.Warn("could not write crash log", zap.Error(err))
		return
	}
	b.logger.Info("step output saved", zap.String("target", out.Target), zap.String("crash_log", path))
}

func (b *base) record(l Launch, lines []string) error {
	records := Classify(lines, l.Pattern, l.Tags)
	b.logger.Debug("test classified",
		zap.String("app", l.App),
		zap.Int("iteration", l.Iteration),
		zap.Int("lines", len(lines)),
		zap.Int("records", len(records)))
	if b.opts.Recorder == nil {
		return nil
	}
	if err := b.opts.Recorder.Append(l.App, l.Iteration, records); err != nil {
		return fault.Wrap(fault.Test, "record results of "+l.App, err)
	}
	return nil
}

func (b *base) path(p string) string {
	if filepath.IsAbs(p) || b.opts.WorkDir == "" {
		return p
	}
	return filepath.Join(b.opts.WorkDir, p)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
