// Package fault classifies campaign failures. Every error that reaches the
// campaign controller carries a Kind so the CLI can report what went wrong
// without string matching.
package fault

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the failure class of an error.
type Kind int

const (
	Unknown Kind = iota
	Config
	Precondition
	Build
	Load
	Attach
	Test
	Generation
)

var kindNames = map[Kind]string{
	Unknown:      "unknown",
	Config:       "config",
	Precondition: "precondition",
	Build:        "build",
	Load:         "load",
	Attach:       "attach",
	Test:         "test",
	Generation:   "generation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failed", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error with a formatted message.
func New(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: errors.WithStack(err)}
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
