package buildsys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Var is a key=value assignment passed to a build target.
type Var struct {
	Key   string
	Value string
}

// V is shorthand for a Var.
func V(key, value string) Var { return Var{Key: key, Value: value} }

func (v Var) String() string { return v.Key + "=" + v.Value }

// Output captures one build-tool invocation.
type Output struct {
	Target   string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Combined returns stdout followed by stderr.
func (o Output) Combined() string {
	return o.Stdout + o.Stderr
}

// MarkerError reports an error marker found in captured output.
type MarkerError struct {
	Target string
	Line   string
}

func (e *MarkerError) Error() string {
	return fmt.Sprintf("%s: error marker in output: %s", e.Target, e.Line)
}

// Err classifies the invocation. The exit code is ignored: build tools in
// the field exit 0 after printing errors, so only the error marker counts.
func (o Output) Err() error {
	if line, ok := findMarker(o.Stdout); ok {
		return &MarkerError{Target: o.Target, Line: line}
	}
	if line, ok := findMarker(o.Stderr); ok {
		return &MarkerError{Target: o.Target, Line: line}
	}
	return nil
}

func findMarker(s string) (string, bool) {
	lower := strings.ToLower(s)
	idx := strings.Index(lower, "error")
	if idx < 0 {
		return "", false
	}
	start := strings.LastIndexByte(s[:idx], '\n') + 1
	end := strings.IndexByte(s[idx:], '\n')
	if end < 0 {
		return strings.TrimSpace(s[start:]), true
	}
	return strings.TrimSpace(s[start : idx+end]), true
}

// Runner invokes build-system targets.
type Runner interface {
	Run(ctx context.Context, target string, vars ...Var) (Output, error)
}

// Make runs targets through an external build tool, `make` by default.
type Make struct {
	Tool   string
	Dir    string
	Env    []string
	Logger *zap.Logger
}

// Command returns an unstarted command for target. Long-running targets
// (debug server, debugger) are spawned from it.
func (m *Make) Command(ctx context.Context, target string, vars ...Var) *exec.Cmd {
	tool := m.Tool
	if tool == "" {
		tool = "make"
	}
	args := make([]string, 0, len(vars)+1)
	args = append(args, target)
	for _, v := range vars {
		args = append(args, v.String())
	}
	cmd := exec.CommandContext(ctx, tool, args...)
	m.applyEnv(cmd)
	return cmd
}

// Run executes target to completion and captures its output. The returned
// error is non-nil only when the tool could not be run at all; callers
// classify the output with Output.Err.
func (m *Make) Run(ctx context.Context, target string, vars ...Var) (Output, error) {
	start := time.Now()
	cmd := m.Command(ctx, target, vars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{
		Target:   target,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			out.ExitCode = -1
			return out, fmt.Errorf("%s %s: %w", cmd.Path, target, err)
		}
		out.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			return out, fmt.Errorf("%s: %w", target, ctx.Err())
		}
	}

	m.logger().Debug("build target finished",
		zap.String("target", target),
		zap.Int("exit_code", out.ExitCode),
		zap.Duration("duration", out.Duration))
	return out, nil
}

func (m *Make) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}
