package device

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/buckleypaul/testit/internal/buildsys"
	"github.com/buckleypaul/testit/internal/fault"
)

// Simulator runs tests through the simulation targets of the build system
// and reads results from the simulator's output file.
type Simulator struct {
	base
}

// NewSimulator returns a simulator session.
func NewSimulator(opts Options) *Simulator {
	return &Simulator{base: newBase(opts, "sim")}
}

// Build builds the simulation model with the configured tool.
func (s *Simulator) Build(ctx context.Context) error {
	s.logger.Info("building simulation model", zap.String("tool", s.opts.Target.Name))
	return s.step(ctx, fault.Build, "build simulation model",
		buildsys.TargetSimBuild, buildsys.V("tool", s.opts.Target.Name))
}

func (s *Simulator) LoadBitstream(context.Context) error  { return nil }
func (s *Simulator) OpenSerial() error                    { return nil }
func (s *Simulator) AttachDebugger(context.Context) error { return nil }
func (s *Simulator) DetachDebugger() error                { return nil }
func (s *Simulator) Close() error                         { return nil }

// LaunchTest compiles the application, runs the simulation and classifies
// the lines of the output file.
func (s *Simulator) LaunchTest(ctx context.Context, l Launch) error {
	ctx, cancel := withTimeout(ctx, l.Timeout)
	defer cancel()

	if err := s.step(ctx, fault.Test, "compile "+l.App,
		buildsys.TargetSimCompile, buildsys.V("app", l.App), buildsys.V("target", s.opts.Target.Name)); err != nil {
		return err
	}
	if err := s.step(ctx, fault.Test, "simulate "+l.App,
		buildsys.TargetSimRun, buildsys.V("app", l.App)); err != nil {
		return err
	}

	lines, err := readLines(s.path(s.opts.Target.OutputFile))
	if err != nil {
		if os.IsNotExist(err) {
			return fault.New(fault.Test, "read output of "+l.App, "output file %s not found", s.opts.Target.OutputFile)
		}
		return fault.Wrap(fault.Test, "read output of "+l.App, err)
	}
	return s.record(l, lines)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines, sc.Err()
}
