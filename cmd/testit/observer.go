package main

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/testit/internal/campaign"
	"github.com/buckleypaul/testit/internal/ui"
)

var phaseLabels = map[string]string{
	"build":  "Building model",
	"load":   "Loading bitstream",
	"serial": "Opening serial port",
	"attach": "Attaching debugger",
}

const runningLabel = "Running tests"

func phaseLabel(phase string) string {
	if label, ok := phaseLabels[phase]; ok {
		return label
	}
	return phase
}

// teaObserver forwards campaign events to the progress view.
type teaObserver struct {
	send func(tea.Msg)
}

func (o teaObserver) Notify(e campaign.Event) {
	switch e.Kind {
	case campaign.PhaseStarted:
		o.send(ui.PhaseMsg{Label: phaseLabel(e.Phase)})
	case campaign.StateChanged:
		if e.State == campaign.Iterating {
			o.send(ui.PhaseMsg{Label: runningLabel})
		}
	case campaign.TestStarted:
		o.send(ui.TestMsg{Test: e.Test, Iteration: e.Iteration, Total: e.Total})
	case campaign.IterationFinished:
		o.send(ui.IterationMsg{Iteration: e.Iteration, Total: e.Total, Elapsed: e.Elapsed, Remaining: e.Remaining})
	case campaign.Finished, campaign.Failed:
		o.send(ui.FinishedMsg{Err: e.Err, Elapsed: e.Elapsed})
	}
}

// lineObserver prints one line per step, for logs and CI.
type lineObserver struct {
	w io.Writer
}

func newLineObserver(w io.Writer) *lineObserver {
	return &lineObserver{w: w}
}

func (o *lineObserver) Notify(e campaign.Event) {
	switch e.Kind {
	case campaign.PhaseStarted:
		fmt.Fprintf(o.w, " - %s...\n", phaseLabel(e.Phase))
	case campaign.StateChanged:
		if e.State == campaign.Iterating {
			fmt.Fprintf(o.w, " - %s...\n", runningLabel)
		}
	case campaign.TestFinished:
		fmt.Fprintf(o.w, "   %d/%d: %s\n", e.Iteration+1, e.Total, e.Test)
	case campaign.IterationFinished:
		if e.Remaining > 0 {
			fmt.Fprintf(o.w, "   iteration %d/%d done, about %s left\n", e.Iteration+1, e.Total, e.Remaining.Round(time.Second))
		}
	case campaign.Finished:
		fmt.Fprintf(o.w, "Campaign completed in %s\n", e.Elapsed.Round(time.Millisecond))
	}
}
