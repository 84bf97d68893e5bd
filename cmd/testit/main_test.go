package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buckleypaul/testit/internal/campaign"
	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/fault"
	"github.com/buckleypaul/testit/internal/ui"
)

func TestSetupWritesTemplatesOnce(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, setup(dir, &out))
	assert.FileExists(t, filepath.Join(dir, config.DefaultFile))
	assert.FileExists(t, filepath.Join(dir, config.DefaultGoldenFile))
	assert.Equal(t, 2, strings.Count(out.String(), "CREATED"))

	cfg, err := config.Load(filepath.Join(dir, config.DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, "matmul", cfg.Tests[0].AppName)

	out.Reset()
	require.NoError(t, setup(dir, &out))
	assert.Equal(t, 2, strings.Count(out.String(), "already exists"))
}

func TestLoadProjectResolvesDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Template()
	cfg.Build.Dir = "hw"
	path := filepath.Join(dir, config.DefaultFile)
	require.NoError(t, config.Save(cfg, path))

	old := rootFlags.config
	rootFlags.config = path
	t.Cleanup(func() { rootFlags.config = old })

	proj, err := loadProject()
	require.NoError(t, err)
	assert.Equal(t, dir, proj.root)
	assert.Equal(t, filepath.Join(dir, "hw"), proj.buildDir)
	assert.Equal(t, filepath.Join(dir, "hw", "Makefile"), proj.makefile)
	assert.Equal(t, filepath.Join(dir, "report"), proj.path(proj.cfg.Report.Dir))
}

func TestLoadProjectMissingConfig(t *testing.T) {
	old := rootFlags.config
	rootFlags.config = filepath.Join(t.TempDir(), "missing", config.DefaultFile)
	t.Cleanup(func() { rootFlags.config = old })

	_, err := loadProject()
	assert.True(t, fault.Is(err, fault.Config), "got %v", err)
}

func TestErrorLabel(t *testing.T) {
	err := fault.New(fault.Build, "build bitstream", "error marker")
	assert.Equal(t, "build: build bitstream: error marker", errorLabel(err))
	assert.Equal(t, "plain", errorLabel(errors.New("plain")))
}

func TestLineObserver(t *testing.T) {
	var out bytes.Buffer
	o := newLineObserver(&out)

	o.Notify(campaign.Event{Kind: campaign.PhaseStarted, Phase: "build"})
	o.Notify(campaign.Event{Kind: campaign.StateChanged, State: campaign.Iterating})
	o.Notify(campaign.Event{Kind: campaign.TestFinished, Test: "t1", Iteration: 0, Total: 2})
	o.Notify(campaign.Event{Kind: campaign.IterationFinished, Iteration: 0, Total: 2, Remaining: 3 * time.Second})
	o.Notify(campaign.Event{Kind: campaign.Finished, Elapsed: 1500 * time.Millisecond})

	want := " - Building model...\n" +
		" - Running tests...\n" +
		"   1/2: t1\n" +
		"   iteration 1/2 done, about 3s left\n" +
		"Campaign completed in 1.5s\n"
	assert.Equal(t, want, out.String())
}

func TestTeaObserver(t *testing.T) {
	var msgs []tea.Msg
	o := teaObserver{send: func(m tea.Msg) { msgs = append(msgs, m) }}

	o.Notify(campaign.Event{Kind: campaign.StateChanged, State: campaign.Built})
	o.Notify(campaign.Event{Kind: campaign.PhaseStarted, Phase: "attach"})
	o.Notify(campaign.Event{Kind: campaign.TestStarted, Test: "t1", Iteration: 3, Total: 5})
	failure := errors.New("boom")
	o.Notify(campaign.Event{Kind: campaign.Failed, Err: failure})

	require.Len(t, msgs, 3)
	assert.Equal(t, ui.PhaseMsg{Label: "Attaching debugger"}, msgs[0])
	assert.Equal(t, ui.TestMsg{Test: "t1", Iteration: 3, Total: 5}, msgs[1])
	assert.Equal(t, ui.FinishedMsg{Err: failure}, msgs[2])
}
