package debugger

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// Prompt is the token gdb prints when it is ready for a command.
	Prompt = "(gdb)"
	// ExitSymbol is where every test application ends.
	ExitSymbol = "_exit"
	// DefaultLoadTimeout bounds a flash load when the caller sets no deadline.
	DefaultLoadTimeout = 5 * time.Minute
)

// breakpointHit matches "Breakpoint 2, _exit (...)" but not the
// "Breakpoint 2 at 0x..." confirmation printed when it is set.
var breakpointHit = regexp.MustCompile(`Breakpoint \d+, `)

// SetupOptions configures the connection to the debug server.
type SetupOptions struct {
	Endpoint      string        // host:port of the debug server
	RemoteTimeout int           // seconds, passed to "set remotetimeout"
	PromptTimeout time.Duration // wait for each prompt
}

// GDB speaks the gdb command protocol over a Process.
type GDB struct {
	proc   *Process
	logger *zap.Logger
}

// NewGDB wraps a started debugger process.
func NewGDB(proc *Process, logger *zap.Logger) *GDB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GDB{proc: proc, logger: logger}
}

// Setup disables interactive prompts and connects to the debug server.
// Each command waits for the prompt; it fails unless the debugger is
// alive afterwards.
func (g *GDB) Setup(opts SetupOptions) error {
	if opts.PromptTimeout <= 0 {
		opts.PromptTimeout = 30 * time.Second
	}
	if _, err := g.proc.Expect(Prompt, opts.PromptTimeout); err != nil {
		return errors.Wrap(err, "debugger prompt")
	}

	for _, cmd := range []string{
		"set pagination off",
		"set confirm off",
		"set remotetimeout " + strconv.Itoa(opts.RemoteTimeout),
		"target extended-remote " + opts.Endpoint,
	} {
		out, err := g.command(cmd, opts.PromptTimeout)
		if err != nil {
			return err
		}
		if msg, failed := connectFailure(out); failed {
			return errors.Wrapf(ErrConnect, "%s: %s", opts.Endpoint, msg)
		}
	}

	if !g.proc.Alive() {
		return errors.Wrap(ErrExited, "after connecting to "+opts.Endpoint)
	}
	g.logger.Debug("debugger attached", zap.String("endpoint", opts.Endpoint))
	return nil
}

// connectFailures are printed by gdb when the remote target is unreachable.
// gdb itself keeps running in that case.
var connectFailures = []string{
	"Connection refused",
	"Connection timed out",
	"Remote communication error",
	"Remote connection closed",
}

func connectFailure(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		for _, f := range connectFailures {
			if strings.Contains(line, f) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

// Load flashes the compiled application and returns what the debugger
// printed before its next prompt. The wait is bounded by ctx, or by
// DefaultLoadTimeout when ctx has no deadline.
func (g *GDB) Load(ctx context.Context) (string, error) {
	wait := DefaultLoadTimeout
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}
	if wait <= 0 {
		return "", errors.Wrap(ErrTimeout, "load")
	}
	return g.command("load", wait)
}

// command sends cmd and waits for the prompt that follows its output.
func (g *GDB) command(cmd string, timeout time.Duration) (string, error) {
	if err := g.proc.SendLine(cmd); err != nil {
		return "", err
	}
	out, err := g.proc.Expect(Prompt, timeout)
	if err != nil {
		return out, errors.Wrapf(err, "%q", cmd)
	}
	return strings.TrimSpace(strings.TrimSuffix(out, Prompt)), nil
}

// RunToExit sets a breakpoint on the exit symbol, continues, and waits for
// the breakpoint in attempts of poll until ctx ends. On timeout the
// debugger is terminated.
func (g *GDB) RunToExit(ctx context.Context, poll time.Duration) error {
	if _, err := g.command("b "+ExitSymbol, poll); err != nil {
		return errors.Wrap(err, "set breakpoint")
	}
	if err := g.proc.SendLine("continue"); err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		wait := poll
		if deadline, ok := ctx.Deadline(); ok {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			if remaining < wait {
				wait = remaining
			}
		}

		_, err := g.proc.ExpectMatch(breakpointHit, wait)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrTimeout) {
			return err
		}
		if ctx.Err() != nil {
			break
		}
		g.logger.Debug("waiting for breakpoint", zap.Int("attempt", attempt))
	}

	g.proc.Terminate(time.Second)
	return errors.Wrapf(ErrTimeout, "breakpoint at %s", ExitSymbol)
}

// Alive reports whether the debugger is still running.
func (g *GDB) Alive() bool { return g.proc.Alive() }

// Stop interrupts the debugger and terminates it.
func (g *GDB) Stop() error {
	if err := g.proc.Interrupt(); err != nil {
		g.logger.Debug("interrupt debugger", zap.Error(err))
	}
	return g.proc.Terminate(2 * time.Second)
}
