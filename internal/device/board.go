package device

import (
	"context"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/buckleypaul/testit/internal/buildsys"
	"github.com/buckleypaul/testit/internal/debugger"
	"github.com/buckleypaul/testit/internal/fault"
	"github.com/buckleypaul/testit/internal/serial"
)

const (
	detachGrace   = 2 * time.Second
	lineQueueSize = 256
)

// Spawner creates commands for long-running build targets.
type Spawner interface {
	Command(ctx context.Context, target string, vars ...buildsys.Var) *exec.Cmd
}

// LineReader is the serial side of a board.
type LineReader interface {
	ReadLines(ctx context.Context, out chan<- string) error
	Reset() error
	Close() error
}

// Debugger is an attached debugger session.
type Debugger interface {
	Setup(opts debugger.SetupOptions) error
	Load(ctx context.Context) (string, error)
	RunToExit(ctx context.Context, poll time.Duration) error
	Alive() bool
	Stop() error
}

// Server is the background debug server process.
type Server interface {
	Alive() bool
	Terminate(grace time.Duration) error
}

// Board runs tests on an FPGA board: the application is flashed and run
// through the debugger and its output arrives over serial.
type Board struct {
	base

	openPort      func(path string, baud int) (LineReader, error)
	startServer   func() (Server, error)
	startDebugger func() (Debugger, error)

	port   LineReader
	server Server
	gdb    Debugger
}

// NewBoard returns a board session. The debug server and debugger are
// spawned from spawner.
func NewBoard(opts Options, spawner Spawner) *Board {
	b := &Board{base: newBase(opts, "board")}
	target := opts.Target

	b.openPort = func(path string, baud int) (LineReader, error) {
		return serial.Open(path, baud, serial.Options{
			Sentinel:    target.Sentinel,
			ReadTimeout: target.ReadTimeout,
			Logger:      b.logger.Named("serial"),
		})
	}
	b.startServer = func() (Server, error) {
		cmd := spawner.Command(context.Background(), buildsys.TargetDebugServer)
		return debugger.StartBackground(cmd, b.logger.Named("server"))
	}
	b.startDebugger = func() (Debugger, error) {
		cmd := spawner.Command(context.Background(), buildsys.TargetDebugger)
		proc, err := debugger.Start(cmd, b.logger.Named("gdb"))
		if err != nil {
			return nil, err
		}
		return debugger.NewGDB(proc, b.logger.Named("gdb")), nil
	}
	return b
}

// Build synthesizes the bitstream for the configured board.
func (b *Board) Build(ctx context.Context) error {
	b.logger.Info("building bitstream", zap.String("board", b.opts.Target.Name))
	return b.step(ctx, fault.Build, "build bitstream",
		buildsys.TargetFPGABuild, buildsys.V("board", b.opts.Target.Name))
}

// LoadBitstream programs the board.
func (b *Board) LoadBitstream(ctx context.Context) error {
	b.logger.Info("loading bitstream", zap.String("board", b.opts.Target.Name))
	return b.step(ctx, fault.Load, "load bitstream",
		buildsys.TargetFPGALoad, buildsys.V("board", b.opts.Target.Name))
}

// OpenSerial opens the configured serial port.
func (b *Board) OpenSerial() error {
	path := b.opts.Target.USBPort.Path()
	port, err := b.openPort(path, b.opts.Target.Baudrate)
	if err != nil {
		return fault.Wrap(fault.Attach, "open serial "+path, err)
	}
	b.port = port
	b.logger.Debug("serial open", zap.String("port", path), zap.Int("baud", b.opts.Target.Baudrate))
	return nil
}

// AttachDebugger starts the debug server on first use and attaches a new
// debugger to it.
func (b *Board) AttachDebugger(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fault.Wrap(fault.Attach, "attach debugger", err)
	}

	if b.server == nil || !b.server.Alive() {
		srv, err := b.startServer()
		if err != nil {
			return fault.Wrap(fault.Attach, "start debug server", err)
		}
		b.server = srv
	}

	gdb, err := b.startDebugger()
	if err != nil {
		return fault.Wrap(fault.Attach, "start debugger", err)
	}
	err = gdb.Setup(debugger.SetupOptions{
		Endpoint:      b.opts.Target.DebugEndpoint,
		RemoteTimeout: b.opts.Target.RemoteTimeout,
	})
	if err != nil {
		if serr := gdb.Stop(); serr != nil {
			b.logger.Debug("stop debugger", zap.Error(serr))
		}
		return fault.Wrap(fault.Attach, "attach debugger", err)
	}
	b.gdb = gdb
	return nil
}

// DetachDebugger stops the debugger. The debug server keeps running.
func (b *Board) DetachDebugger() error {
	if b.gdb == nil {
		return nil
	}
	err := b.gdb.Stop()
	b.gdb = nil
	return fault.Wrap(fault.Attach, "detach debugger", err)
}

// LaunchTest compiles the application, flashes and runs it under the
// debugger, and classifies the serial output it printed before the
// sentinel.
func (b *Board) LaunchTest(ctx context.Context, l Launch) error {
	op := "run " + l.App
	if b.port == nil {
		return fault.New(fault.Test, op, "serial port is not open")
	}
	if b.gdb == nil || !b.gdb.Alive() {
		return fault.New(fault.Test, op, "debugger is not attached")
	}

	ctx, cancel := withTimeout(ctx, l.Timeout)
	defer cancel()

	if err := b.port.Reset(); err != nil {
		b.logger.Debug("reset serial input", zap.Error(err))
	}

	// The reader starts before compiling so nothing the board prints is
	// lost. It ends on the sentinel or when the launch context ends.
	readCtx, stopReader := context.WithCancel(ctx)
	defer stopReader()
	g, gctx := errgroup.WithContext(readCtx)
	queue := make(chan string, lineQueueSize)
	var lines []string
	g.Go(func() error {
		defer close(queue)
		return b.port.ReadLines(gctx, queue)
	})
	g.Go(func() error {
		for line := range queue {
			lines = append(lines, line)
		}
		return nil
	})
	abort := func(err error) error {
		stopReader()
		_ = g.Wait()
		return err
	}

	if err := b.step(ctx, fault.Test, "compile "+l.App,
		buildsys.TargetFPGACompile, buildsys.V("app", l.App), buildsys.V("target", b.opts.Target.Name)); err != nil {
		return abort(err)
	}

	if out, err := b.gdb.Load(ctx); err != nil {
		return abort(fault.Wrap(fault.Test, "load "+l.App, err))
	} else if out != "" {
		b.logger.Debug("load output", zap.String("output", out))
	}

	if err := b.gdb.RunToExit(ctx, b.opts.Target.BreakpointPoll); err != nil {
		return abort(fault.Wrap(fault.Test, op, err))
	}

	if err := g.Wait(); err != nil {
		return fault.Wrap(fault.Test, "read serial output of "+l.App, err)
	}
	return b.record(l, lines)
}

// Close releases the debugger, the debug server and the serial port.
func (b *Board) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	keep(b.DetachDebugger())
	if b.server != nil {
		keep(b.server.Terminate(detachGrace))
		b.server = nil
	}
	if b.port != nil {
		keep(b.port.Close())
		b.port = nil
	}
	return first
}
