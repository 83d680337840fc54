package statemachine

import "github.com/erauner12/topicsync/internal/change"

// Transition is an ordered list of committed changes plus the originator's
// client id, emitted when a recording scope exits cleanly with at least one
// non-sentinel change.
type Transition struct {
	Changes      []change.Change
	ActionSource int
}

func newTransition(changes []change.Change, actionSource int) *Transition {
	cp := make([]change.Change, len(changes))
	copy(cp, changes)
	return &Transition{Changes: cp, ActionSource: actionSource}
}
