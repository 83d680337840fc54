// Package topic implements the typed, validated, listener-bearing state
// cells the state machine mutates. A Topic never decides whether a mutation
// is safe to apply on its own timeline — it only knows how to validate a
// Change against its current value and how to notify whichever listener hub
// fired. Scheduling (recording, cascades, rollback) belongs to the state
// machine; Topic just knows its own type's rules.
package topic

import (
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// Validator inspects the value a change would produce and may reject it.
type Validator func(oldValue, newValue any, c change.Change) bool

// Listener is an auto or manual hub member. Returning a non-nil error fails
// the notification — for a manual listener this is always escalated to
// critical by the state machine; for an auto listener it triggers subtree
// rollback.
type Listener func(c change.Change, old, new any) error

// RawListener receives every notification regardless of hub, tagged with
// which hub fired it.
type RawListener func(auto bool, c change.Change, old, new any) error

// Submitter is the subset of the state machine a topic needs in order to
// hand off externally-initiated mutations (Set, Add, Append, ...). Topics
// depend on this interface rather than a concrete state machine type so the
// two packages don't import each other.
type Submitter interface {
	ApplyChange(c change.Change) error
}

// Topic is the contract every concrete topic type implements.
type Topic interface {
	Name() string
	Type() string
	IsStateful() bool

	// Get returns a deep copy of the current value.
	Get() any

	AddValidator(v Validator)
	AddAutoListener(l Listener)
	AddManualListener(l Listener)
	AddRawListener(l RawListener)

	// ApplyChange validates c against a copy of the current value, commits
	// on success, and returns (old, new). It does not notify listeners —
	// the state machine calls NotifyListeners separately once it has
	// decided which hub(s) should fire for this change.
	ApplyChange(c change.Change) (old, new any, err error)

	NotifyListeners(auto bool, c change.Change, old, new any) error

	// MergeChanges coalesces a pending batch per this topic type's rule
	// (§4.1's "merge (buffer coalescing)"), for the update buffer's flush.
	MergeChanges(pending []change.Change) []change.Change

	// InitSnapshot returns the wire payload for a fresh subscriber's init
	// message: the value, plus any type-specific extras (string topics
	// include their version).
	InitSnapshot() map[string]any

	// LoadSnapshot hydrates this topic directly from an "init" message's
	// payload, bypassing validators and listeners entirely — a mirror
	// overwrites its local value wholesale on subscribe, it doesn't derive
	// it from a Change.
	LoadSnapshot(value any, extra map[string]any) error

	SetToDefault()
}

type base struct {
	name       string
	stateful   bool
	value      any
	validators []Validator
	auto       []Listener
	manual     []Listener
	raw        []RawListener
	sm         Submitter
}

func newBase(name string, stateful bool, initial any, sm Submitter) base {
	return base{name: name, stateful: stateful, value: initial, sm: sm}
}

func (b *base) Name() string        { return b.name }
func (b *base) IsStateful() bool    { return b.stateful }
func (b *base) Get() any            { return change.Clone(b.value) }
func (b *base) AddValidator(v Validator)      { b.validators = append(b.validators, v) }
func (b *base) AddAutoListener(l Listener)    { b.auto = append(b.auto, l) }
func (b *base) AddManualListener(l Listener)  { b.manual = append(b.manual, l) }
func (b *base) AddRawListener(l RawListener)  { b.raw = append(b.raw, l) }

func (b *base) validateAndApply(c change.Change) (old, new any, err error) {
	old = b.value
	candidate := change.Clone(b.value)
	new, err = c.Apply(candidate)
	if err != nil {
		return old, nil, err
	}
	for _, v := range b.validators {
		if !v(old, new, c) {
			return old, nil, &change.InvalidChangeError{TopicName: b.name, Reason: "validator failed"}
		}
	}
	b.value = new
	return old, new, nil
}

func (b *base) NotifyListeners(auto bool, c change.Change, old, new any) error {
	hub := b.manual
	if auto {
		hub = b.auto
	}
	for _, l := range hub {
		if err := l(c, old, new); err != nil {
			return err
		}
	}
	for _, r := range b.raw {
		if err := r(auto, c, old, new); err != nil {
			return err
		}
	}
	return nil
}

// submit hands a freshly-built change to the state machine on the caller's
// behalf, implementing "build the appropriate Change and hand to the state
// machine" for every kind-specific mutator.
func (b *base) submit(c change.Change) error {
	if b.sm == nil {
		return fmt.Errorf("topic %q has no attached state machine", b.name)
	}
	return b.sm.ApplyChange(c)
}

// mergeSetOverwrite implements "a set overwrites all pending non-set changes
// since the last set, retaining only the latest set" for string and list
// topics: everything before the last Set-kind change in the batch is
// dropped; the last Set and anything after it passes through unchanged.
func mergeSetOverwrite(pending []change.Change, isSet func(change.Change) bool) []change.Change {
	lastSet := -1
	for i, c := range pending {
		if isSet(c) {
			lastSet = i
		}
	}
	if lastSet <= 0 {
		return pending
	}
	return pending[lastSet:]
}

// typeValidator rejects any candidate value that doesn't assert to T.
func typeValidator[T any]() Validator {
	return func(_, newValue any, _ change.Change) bool {
		_, ok := newValue.(T)
		return ok
	}
}
