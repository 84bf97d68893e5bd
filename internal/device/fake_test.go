package device

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/buckleypaul/testit/internal/buildsys"
	"github.com/buckleypaul/testit/internal/debugger"
)

type fakeRunner struct {
	calls   []string
	outputs map[string]buildsys.Output
	hooks   map[string]func()
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string]buildsys.Output),
		hooks:   make(map[string]func()),
	}
}

func (f *fakeRunner) Run(_ context.Context, target string, vars ...buildsys.Var) (buildsys.Output, error) {
	parts := []string{target}
	for _, v := range vars {
		parts = append(parts, v.String())
	}
	f.calls = append(f.calls, strings.Join(parts, " "))

	if hook := f.hooks[target]; hook != nil {
		hook()
	}
	out := f.outputs[target]
	out.Target = target
	return out, nil
}

type fakeLines struct {
	lines []string
	// hang keeps the reader waiting for a sentinel that never comes.
	hang bool

	mu     sync.Mutex
	resets int
	closed bool
}

func (f *fakeLines) ReadLines(ctx context.Context, out chan<- string) error {
	for _, line := range f.lines {
		select {
		case out <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeLines) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeLines) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeDebugger struct {
	setupErr error
	runErr   error
	stopped  bool
	calls    []string
}

func (f *fakeDebugger) Setup(opts debugger.SetupOptions) error {
	f.calls = append(f.calls, "setup "+opts.Endpoint)
	return f.setupErr
}

func (f *fakeDebugger) Load(context.Context) (string, error) {
	f.calls = append(f.calls, "load")
	return "Transfer rate: 42 KB/sec", nil
}

func (f *fakeDebugger) RunToExit(context.Context, time.Duration) error {
	f.calls = append(f.calls, "run")
	return f.runErr
}

func (f *fakeDebugger) Alive() bool { return !f.stopped }

func (f *fakeDebugger) Stop() error {
	f.stopped = true
	return nil
}

type fakeServer struct {
	terminated bool
}

func (f *fakeServer) Alive() bool { return !f.terminated }

func (f *fakeServer) Terminate(time.Duration) error {
	f.terminated = true
	return nil
}
