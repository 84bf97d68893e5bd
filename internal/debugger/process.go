// Package debugger drives an interactive debugger child process over its
// standard streams: send a line, wait for a token, repeat.
package debugger

import (
	"bytes"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrTimeout is returned when an expected token does not arrive in time.
	ErrTimeout = errors.New("timed out waiting for debugger output")
	// ErrExited is returned when the child exits before the token arrives.
	ErrExited = errors.New("debugger process exited")
	// ErrConnect is returned when the debugger cannot reach its target.
	ErrConnect = errors.New("debugger could not connect")
)

// Process is a running debugger child. Its combined output is pumped into
// a buffer that Expect consumes, or into the log for
// background processes.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *zap.Logger
	sink   io.Writer

	mu     sync.Mutex
	buf    bytes.Buffer
	notify chan struct{}

	pumpDone chan struct{}
	exited   chan struct{}
	waitErr  error
}

// Start launches cmd with piped streams. cmd must not have been started.
func Start(cmd *exec.Cmd, logger *zap.Logger) (*Process, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return start(cmd, logger, nil)
}

// StartBackground launches a process nobody talks to, such as a debug
// server. Its output goes to the debug log line by line and is not kept.
func StartBackground(cmd *exec.Cmd, logger *zap.Logger) (*Process, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return start(cmd, logger, &lineLogger{logger: logger})
}

func start(cmd *exec.Cmd, logger *zap.Logger, sink io.Writer) (*Process, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "debugger stdin")
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, errors.Wrapf(err, "start %s", cmd.Path)
	}

	p := &Process{
		cmd:      cmd,
		stdin:    stdin,
		logger:   logger,
		sink:     sink,
		notify:   make(chan struct{}, 1),
		pumpDone: make(chan struct{}),
		exited:   make(chan struct{}),
	}

	go p.pump(pr)
	go func() {
		p.waitErr = cmd.Wait()
		pw.Close()
		close(p.exited)
	}()

	logger.Debug("debugger started", zap.Int("pid", cmd.Process.Pid))
	return p, nil
}

func (p *Process) pump(r io.Reader) {
	defer close(p.pumpDone)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 && p.sink != nil {
			p.sink.Write(buf[:n])
		} else if n > 0 {
			p.mu.Lock()
			p.buf.Write(buf[:n])
			p.mu.Unlock()
			p.signal()
		}
		if err != nil {
			p.signal()
			return
		}
	}
}

func (p *Process) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// SendLine writes line followed by a newline to the debugger.
func (p *Process) SendLine(line string) error {
	p.logger.Debug("debugger <-", zap.String("cmd", line))
	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		return errors.Wrapf(err, "send %q", line)
	}
	return nil
}

// Expect waits until token appears in the output and consumes the output
// up to and including it.
func (p *Process) Expect(token string, timeout time.Duration) (string, error) {
	return p.expect(strconv.Quote(token), func(s string) int {
		if idx := strings.Index(s, token); idx >= 0 {
			return idx + len(token)
		}
		return -1
	}, timeout)
}

// ExpectMatch is Expect for a pattern.
func (p *Process) ExpectMatch(re *regexp.Regexp, timeout time.Duration) (string, error) {
	return p.expect(re.String(), func(s string) int {
		if loc := re.FindStringIndex(s); loc != nil {
			return loc[1]
		}
		return -1
	}, timeout)
}

// expect waits until match reports the end offset of a match in the
// pending output.
func (p *Process) expect(what string, match func(string) int, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	consume := func() (string, bool) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if end := match(p.buf.String()); end >= 0 {
			return string(p.buf.Next(end)), true
		}
		return "", false
	}

	for {
		if out, ok := consume(); ok {
			return out, nil
		}

		select {
		case <-p.notify:
		case <-p.pumpDone:
			// Output is complete; one last look before giving up.
			if out, ok := consume(); ok {
				return out, nil
			}
			return "", errors.Wrapf(ErrExited, "waiting for %s", what)
		case <-deadline.C:
			return "", errors.Wrapf(ErrTimeout, "waiting for %s after %s", what, timeout)
		}
	}
}

// lineLogger writes each complete line it receives to the debug log.
type lineLogger struct {
	logger  *zap.Logger
	pending []byte
}

func (l *lineLogger) Write(b []byte) (int, error) {
	l.pending = append(l.pending, b...)
	for {
		idx := bytes.IndexByte(l.pending, '\n')
		if idx < 0 {
			break
		}
		if line := strings.TrimRight(string(l.pending[:idx]), "\r"); line != "" {
			l.logger.Debug("output", zap.String("line", line))
		}
		l.pending = l.pending[idx+1:]
	}
	return len(b), nil
}

// Alive reports whether the child is still running.
func (p *Process) Alive() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// Interrupt sends SIGINT to the child's process group.
func (p *Process) Interrupt() error {
	if !p.Alive() {
		return nil
	}
	return interrupt(p.cmd)
}

// Terminate stops the child, escalating to a kill after grace, and waits
// for it to exit.
func (p *Process) Terminate(grace time.Duration) error {
	p.stdin.Close()
	if !p.Alive() {
		return nil
	}
	if err := terminate(p.cmd); err != nil {
		p.logger.Debug("terminate", zap.Error(err))
	}

	select {
	case <-p.exited:
		return nil
	case <-time.After(grace):
	}

	if err := kill(p.cmd); err != nil {
		return errors.Wrap(err, "kill debugger")
	}
	<-p.exited
	return nil
}

// Wait blocks until the child exits and returns its exit status.
func (p *Process) Wait() error {
	<-p.exited
	return p.waitErr
}
