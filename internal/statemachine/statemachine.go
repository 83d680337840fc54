// Package statemachine implements the transactional executor that owns
// every topic: record() opens a scope, apply_change commits one change and
// may trigger a reactive cascade through that topic's auto listeners, and a
// failure anywhere in a cascade rolls back exactly the subtree it caused —
// never its siblings or ancestors. Undo/redo replay a past transition's
// changes (or their inverses) through the same machinery with auto
// listeners suppressed, so reverting a transition never re-triggers the
// reactions that built it.
//
// A StateMachine is not safe for concurrent use by multiple goroutines on
// its own — the mutex below only prevents a concurrent *second* top-level
// entry from corrupting bookkeeping mid-scope, and is a defensive backstop,
// not a substitute for serialized access. Callers are expected to drive one
// StateMachine from a single goroutine (an actor-style dispatcher owning
// one connection set), matching the "single logical holder may nest record
// scopes" requirement this type implements.
package statemachine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/erauner12/topicsync/internal/change"
	"github.com/erauner12/topicsync/internal/topic"
)

// Phase is the state machine's current scheduling phase.
type Phase int

const (
	PhaseForwarding Phase = iota
	PhaseUndoing
	PhaseRedoing
)

func (p Phase) String() string {
	switch p {
	case PhaseUndoing:
		return "undoing"
	case PhaseRedoing:
		return "redoing"
	default:
		return "forwarding"
	}
}

// ErrorState tracks whether the machine is mid-recovery or permanently
// wedged.
type ErrorState int

const (
	NoError ErrorState = iota
	Recovering
	CriticalState
)

// MaxCascadeDepth bounds how deeply an auto-listener cascade may recurse
// before apply_change silently stops propagating further changes — a
// defensive ceiling against runaway reactive cycles, not a correctness
// requirement (well-behaved cascades are expected to terminate on their
// own because listeners eventually stop proposing new changes).
const MaxCascadeDepth = 10000

// StateMachine owns the topic registry and every transactional operation
// over it.
type StateMachine struct {
	mu sync.Mutex

	topics map[string]topic.Topic

	onChangesMade    func(changes []change.Change, actionID string)
	onTransitionDone func(t *Transition)

	isRecording bool
	phase       Phase
	errorState  ErrorState

	currentTransition []change.Change
	changesMade       []change.Change

	callStack        []string
	insideEmitChange bool
	maxCascadeDepth  int

	afterTransition []func()
}

// New builds a StateMachine. onChangesMade fires once per completed scope
// with every non-sentinel, non-event change made (the broadcast source);
// onTransitionDone fires once per scope that committed at least one change
// under emit_transition=true (the undo/redo history source).
func New(onChangesMade func([]change.Change, string), onTransitionDone func(*Transition)) *StateMachine {
	if onChangesMade == nil {
		onChangesMade = func([]change.Change, string) {}
	}
	if onTransitionDone == nil {
		onTransitionDone = func(*Transition) {}
	}
	return &StateMachine{
		topics:           map[string]topic.Topic{},
		onChangesMade:    onChangesMade,
		onTransitionDone: onTransitionDone,
		maxCascadeDepth:  MaxCascadeDepth,
	}
}

func (sm *StateMachine) AddTopic(name, topicType string, stateful bool) (topic.Topic, error) {
	if _, exists := sm.topics[name]; exists {
		return nil, fmt.Errorf("topic %q already exists", name)
	}
	t, err := topic.New(name, topicType, sm, stateful)
	if err != nil {
		return nil, err
	}
	sm.topics[name] = t
	return t, nil
}

func (sm *StateMachine) RemoveTopic(name string) { delete(sm.topics, name) }

func (sm *StateMachine) GetTopic(name string) (topic.Topic, bool) {
	t, ok := sm.topics[name]
	return t, ok
}

func (sm *StateMachine) HasTopic(name string) bool {
	_, ok := sm.topics[name]
	return ok
}

func (sm *StateMachine) ErrorState() ErrorState { return sm.errorState }
func (sm *StateMachine) IsCritical() bool        { return sm.errorState == CriticalState }

// SetMaxCascadeDepth overrides the default cascade depth ceiling. Intended
// to be called once, before any ApplyChange, from startup configuration.
func (sm *StateMachine) SetMaxCascadeDepth(n int) {
	if n > 0 {
		sm.maxCascadeDepth = n
	}
}

// manualRecordingMode reports whether auto listeners must stay silent for
// the remainder of this scope: true during undo/redo replay, and true
// while the machine is mid-recovery from a failed transition.
func (sm *StateMachine) manualRecordingMode() bool {
	return sm.phase != PhaseForwarding || sm.errorState != NoError
}

// ApplyChange is the entry point every topic mutator (and every cascading
// auto listener) funnels through. If no scope is open, one is opened
// implicitly around this single change.
func (sm *StateMachine) ApplyChange(c change.Change) error {
	if sm.errorState == CriticalState {
		return &CriticalError{Cause: errors.New("state machine is critical; no further changes accepted")}
	}
	if !sm.isRecording {
		return sm.Record(0, "", false, true, PhaseForwarding, func() error {
			return sm.applyChangeInternal(c)
		})
	}
	return sm.applyChangeInternal(c)
}

func (sm *StateMachine) applyChangeInternal(c change.Change) error {
	t, ok := sm.topics[c.TopicName()]
	if !ok {
		return fmt.Errorf("unknown topic %q", c.TopicName())
	}

	if t.IsStateful() && !sm.insideEmitChange && len(sm.callStack)+1 > sm.maxCascadeDepth {
		return nil
	}

	for _, name := range sm.callStack {
		if name == c.TopicName() {
			// A topic may not be re-entered by its own cascade before the
			// first application has unwound. Silently skip, not an error.
			return nil
		}
	}

	old, newVal, err := t.ApplyChange(c)
	if err != nil {
		// Nothing committed: nothing to record, nothing to unwind.
		return err
	}

	recordTreeNode := t.IsStateful() && !sm.insideEmitChange && !sm.manualRecordingMode()
	if recordTreeNode {
		sm.currentTransition = append(sm.currentTransition, c)
	}
	sm.changesMade = append(sm.changesMade, c)

	sm.callStack = append(sm.callStack, c.TopicName())
	defer func() { sm.callStack = sm.callStack[:len(sm.callStack)-1] }()

	// Manual listeners fire unconditionally, for every topic in every
	// mode. A manual listener failing is always critical: manual mode
	// exists so recovery-sensitive code can observe every change,
	// including during undo itself, and there is no well-defined rollback
	// for that.
	if err := t.NotifyListeners(false, c, old, newVal); err != nil {
		sm.errorState = CriticalState
		// Self-heal this topic's own value before escalating: a failed
		// notification must not leave a committed mutation behind.
		t.ApplyChange(c.Inverse())
		return &CriticalError{Cause: fmt.Errorf("manual listener failed for topic %q: %w", c.TopicName(), err)}
	}

	if !t.IsStateful() || sm.manualRecordingMode() {
		return nil
	}

	isEmit := change.IsEvent(c)
	wasEmitting := sm.insideEmitChange
	if isEmit && !wasEmitting {
		sm.insideEmitChange = true
	}
	autoErr := t.NotifyListeners(true, c, old, newVal)
	if isEmit && !wasEmitting {
		sm.insideEmitChange = false
	}
	if autoErr != nil {
		if sm.insideEmitChange {
			sm.errorState = CriticalState
			return &CriticalError{Cause: autoErr}
		}
		if recordTreeNode {
			sm.undoSubtree(c)
		}
		return autoErr
	}
	return nil
}

// undoSubtree compensates everything applied in consequence of root (its
// whole cascade, children first in reverse), then reverts root's own value
// and strips its entry too. The scope's bookkeeping and topic values end up
// exactly as if root had never been applied at all, rather than carrying a
// forward/inverse pair as separate history entries.
func (sm *StateMachine) undoSubtree(root change.Change) {
	for len(sm.currentTransition) > 0 {
		top := sm.currentTransition[len(sm.currentTransition)-1]
		sm.currentTransition = sm.currentTransition[:len(sm.currentTransition)-1]
		if top == root {
			break
		}
		if err := sm.revertAndStrip(top); err != nil {
			sm.errorState = CriticalState
			return
		}
	}
	if err := sm.revertAndStrip(root); err != nil {
		sm.errorState = CriticalState
	}
}

func (sm *StateMachine) revertAndStrip(c change.Change) error {
	if t, ok := sm.topics[c.TopicName()]; ok {
		if _, _, err := t.ApplyChange(c.Inverse()); err != nil {
			return err
		}
	}
	sm.stripChangesMade(c)
	return nil
}

func (sm *StateMachine) stripChangesMade(c change.Change) {
	for i := len(sm.changesMade) - 1; i >= 0; i-- {
		if sm.changesMade[i] == c {
			sm.changesMade = append(sm.changesMade[:i], sm.changesMade[i+1:]...)
			return
		}
	}
}

// cleanupFailedTransition unwinds every change the failed scope recorded in
// its transition (stateful topics changed while forwarding), in reverse
// order, escalating to CriticalState if reverting a single entry itself
// fails. Changes to non-stateful topics, and changes applied while undoing
// or redoing, are not recorded there and stay applied.
func (sm *StateMachine) cleanupFailedTransition() {
	// A manual listener failure already escalated to CriticalState before
	// fn() returned; cleanup must not paper over that by resetting it back
	// to NoError just because the rollback itself went fine.
	wasCritical := sm.errorState == CriticalState
	sm.errorState = Recovering
	for len(sm.currentTransition) > 0 {
		top := sm.currentTransition[len(sm.currentTransition)-1]
		sm.currentTransition = sm.currentTransition[:len(sm.currentTransition)-1]
		if err := sm.revertAndStrip(top); err != nil {
			sm.errorState = CriticalState
			return
		}
	}
	if wasCritical {
		sm.errorState = CriticalState
		return
	}
	sm.errorState = NoError
}

// DoAfterTransition queues task to run once the current scope exits
// cleanly, unless no scope is open (run immediately) or the current scope
// is undoing/redoing (discarded — undo paths must not introduce new
// changes).
func (sm *StateMachine) DoAfterTransition(task func()) {
	switch {
	case !sm.isRecording:
		task()
	case sm.phase == PhaseForwarding:
		sm.afterTransition = append(sm.afterTransition, task)
	default:
	}
}

// Record opens a recording scope, runs fn inside it, and performs the
// bookkeeping a scope's exit demands, whichever way it exits.
func (sm *StateMachine) Record(actionSource int, actionID string, allowReentry, emitTransition bool, phase Phase, fn func() error) error {
	if sm.isRecording {
		if !allowReentry {
			return &ReentryError{}
		}
		return fn()
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.isRecording = true
	sm.phase = phase
	sm.currentTransition = nil
	sm.changesMade = nil

	err := fn()

	if err != nil {
		sm.isRecording = false
		sm.cleanupFailedTransition()
		sm.finishScope(actionID)
		sm.afterTransition = nil
		return err
	}

	sm.isRecording = false
	if len(sm.currentTransition) > 0 && emitTransition {
		sm.onTransitionDone(newTransition(sm.currentTransition, actionSource))
	}
	sm.finishScope(actionID)

	if phase == PhaseForwarding {
		tasks := sm.afterTransition
		sm.afterTransition = nil
		for _, t := range tasks {
			t()
		}
	} else {
		sm.afterTransition = nil
	}
	return nil
}

// finishScope fires the changes-made callback with sentinel/event entries
// filtered out, regardless of how the scope exited.
func (sm *StateMachine) finishScope(actionID string) {
	filtered := make([]change.Change, 0, len(sm.changesMade))
	for _, c := range sm.changesMade {
		if _, isNull := c.(*change.NullChange); isNull {
			continue
		}
		if change.IsEvent(c) {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) > 0 {
		sm.onChangesMade(filtered, actionID)
	}
	sm.changesMade = nil
	sm.currentTransition = nil
}

// Undo replays transition's changes in reverse as their inverses, with
// auto listeners suppressed, so reverting never re-triggers the cascade
// that built it. No new transition is appended to history.
func (sm *StateMachine) Undo(t *Transition) error {
	return sm.Record(t.ActionSource, "", false, false, PhaseUndoing, func() error {
		for i := len(t.Changes) - 1; i >= 0; i-- {
			if err := sm.ApplyChange(t.Changes[i].Inverse()); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyChanges commits every change in one recording scope tagged with
// actionID, so the whole batch either lands as one transition (and one
// onChangesMade call carrying that action id) or fails and rolls back as
// one unit — the entry point an "action" message's command list goes
// through, as opposed to ApplyChange's implicit single-change scope.
func (sm *StateMachine) ApplyChanges(changes []change.Change, actionID string) error {
	return sm.Record(0, actionID, false, true, PhaseForwarding, func() error {
		for _, c := range changes {
			if err := sm.applyChangeInternal(c); err != nil {
				return err
			}
		}
		return nil
	})
}

// Redo is Undo's mirror: forward order, the original changes themselves.
func (sm *StateMachine) Redo(t *Transition) error {
	return sm.Record(t.ActionSource, "", false, false, PhaseRedoing, func() error {
		for _, c := range t.Changes {
			if err := sm.ApplyChange(c); err != nil {
				return err
			}
		}
		return nil
	})
}
