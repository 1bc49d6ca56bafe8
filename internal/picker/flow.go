// Package picker implements the single list selection primitive shared by all
// interactive flows: a logical cursor/commit/cancel state machine plus a
// terminal front end for it.
package picker

import (
	"errors"
	"fmt"
)

// ErrInvalidDefault reports an unusable starting position: an empty option
// list or a default index past the end.
var ErrInvalidDefault = errors.New("invalid default selection")

// Flow is the logical state of one selection step. It carries no terminal
// state, so it is testable without one.
type Flow struct {
	options   []string
	focus     int
	committed bool
	cancelled bool
}

// NewFlow builds a flow focused on defaultIndex.
func NewFlow(options []string, defaultIndex int) (*Flow, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: no options to choose from", ErrInvalidDefault)
	}
	if defaultIndex < 0 || defaultIndex >= len(options) {
		return nil, ErrInvalidDefault
	}
	return &Flow{options: options, focus: defaultIndex}, nil
}

// Move shifts the focus by delta, clamping at the list ends.
func (f *Flow) Move(delta int) {
	if f.done() {
		return
	}
	f.focus += delta
	if f.focus < 0 {
		f.focus = 0
	}
	if f.focus >= len(f.options) {
		f.focus = len(f.options) - 1
	}
}

// Confirm commits the current focus as the selection.
func (f *Flow) Confirm() {
	if !f.done() {
		f.committed = true
	}
}

// Cancel abandons the selection.
func (f *Flow) Cancel() {
	if !f.done() {
		f.cancelled = true
	}
}

func (f *Flow) done() bool {
	return f.committed || f.cancelled
}

func (f *Flow) Focus() int        { return f.focus }
func (f *Flow) Options() []string { return f.options }
func (f *Flow) Cancelled() bool   { return f.cancelled }

// Result reports the committed index. ok is false until Confirm, and stays
// false forever after Cancel.
func (f *Flow) Result() (int, bool) {
	if !f.committed {
		return 0, false
	}
	return f.focus, true
}
