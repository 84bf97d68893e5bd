package campaign

import (
	"fmt"
	"time"
)

// State is a phase of a campaign.
type State int

const (
	Init State = iota
	Validated
	Built
	Loaded
	DeviceAttached
	Iterating
	Complete
	Aborted
)

var stateNames = [...]string{
	Init:           "init",
	Validated:      "validated",
	Built:          "built",
	Loaded:         "loaded",
	DeviceAttached: "device attached",
	Iterating:      "iterating",
	Complete:       "complete",
	Aborted:        "aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	StateChanged EventKind = iota
	PhaseStarted
	TestStarted
	TestFinished
	IterationFinished
	Finished
	Failed
)

// Event is a progress notification sent to the Observer.
type Event struct {
	Kind  EventKind
	State State
	// Phase names the step that started, e.g. "build".
	Phase string

	Iteration int
	Total     int
	Test      string
	// Done counts test invocations so far.
	Done int

	Elapsed   time.Duration
	Remaining time.Duration
	Err       error
}

// Observer receives campaign events on the controller's goroutine.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Notify(Event) {}
