// Package clientmirror implements the client side of the update protocol:
// a local topic registry kept in sync with the server's, an optimistic
// preview deque for changes the client itself initiated, and the
// confirm/diverge reconciliation that keeps the two converged.
//
// A Mirror owns its own *statemachine.StateMachine purely as a local
// value store — topics registered on it apply validators and commit
// values the same way the server's do, but no auto listeners are ever
// attached, so nothing here ever cascades. The mirror's job is to track
// state, not to run business logic.
package clientmirror

import (
	"fmt"
	"sync"

	"github.com/erauner12/topicsync/internal/change"
	"github.com/erauner12/topicsync/internal/statemachine"
	"github.com/erauner12/topicsync/internal/topic"
	"github.com/erauner12/topicsync/internal/wire"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// topicSpec records how a locally registered topic was declared, so a
// reconnect can resend an equivalent subscribe.
type topicSpec struct {
	topicType string
	stateful  bool
}

// previewEntry is one locally-applied, not-yet-confirmed change, tagged
// with the action id it was sent under. handleReject does not use the tag:
// a reject rolls back the whole deque whatever action it names.
type previewEntry struct {
	actionID string
	change   change.Change
}

// Mirror is the client-side half of the protocol described in §4.5:
// local topics, a mirror state machine, and a preview deque.
type Mirror struct {
	log zerolog.Logger

	sm *statemachine.StateMachine

	mu         sync.Mutex
	preview    []previewEntry
	subscribed map[string]topicSpec

	sendMu sync.Mutex
	send   func(data []byte) error // wired by the transport once connected
}

// New builds a disconnected Mirror. Wire a transport with SetSender before
// any topic mutation is expected to reach the server; see conn.go for the
// reconnecting WebSocket transport that normally supplies it.
func New(log zerolog.Logger) *Mirror {
	m := &Mirror{
		log:        log,
		subscribed: map[string]topicSpec{},
	}
	m.sm = statemachine.New(m.onLocalChangesMade, nil)
	return m
}

// SetSender installs the function used to deliver an encoded frame to the
// server. The transport calls this once per successful connection (and
// again after every reconnect, since the old closure's underlying socket
// is no longer valid).
func (m *Mirror) SetSender(send func(data []byte) error) {
	m.sendMu.Lock()
	m.send = send
	m.sendMu.Unlock()
}

func (m *Mirror) sendFrame(data []byte) error {
	m.sendMu.Lock()
	send := m.send
	m.sendMu.Unlock()
	if send == nil {
		return fmt.Errorf("clientmirror: no transport attached")
	}
	return send(data)
}

// RegisterTopic declares a topic this mirror wants to track, creating its
// local shadow if one doesn't already exist. topicType/stateful must match
// what the server has — the mirror has no way to discover them on its own,
// since an init message carries only a topic's value.
func (m *Mirror) RegisterTopic(name, topicType string, stateful bool) (topic.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.sm.GetTopic(name); ok {
		return t, nil
	}
	t, err := m.sm.AddTopic(name, topicType, stateful)
	if err != nil {
		return nil, err
	}
	m.subscribed[name] = topicSpec{topicType: topicType, stateful: stateful}
	return t, nil
}

// Topic returns a previously registered local topic.
func (m *Mirror) Topic(name string) (topic.Topic, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sm.GetTopic(name)
}

// Subscribe registers the topic locally (if needed) and asks the server
// for its current state. Call after a (re)connect for every topic the
// caller cares about.
func (m *Mirror) Subscribe(name, topicType string, stateful bool) error {
	if _, err := m.RegisterTopic(name, topicType, stateful); err != nil {
		return err
	}
	env, err := wire.Encode(wire.TypeSubscribe, map[string]any{"topic_name": name})
	if err != nil {
		return err
	}
	return m.sendFrame(env)
}

// Unsubscribe drops server-side interest in name. The local shadow and
// its queued subscription spec are left alone — a later re-Subscribe
// picks the topic straight back up without re-declaring its type.
func (m *Mirror) Unsubscribe(name string) error {
	env, err := wire.Encode(wire.TypeUnsubscribe, map[string]any{"topic_name": name})
	if err != nil {
		return err
	}
	return m.sendFrame(env)
}

// resubscribeAll resends a subscribe for every topic the mirror has ever
// registered, for use right after a reconnect — the server has forgotten
// this client's subscriptions along with the dropped socket.
func (m *Mirror) resubscribeAll() {
	m.mu.Lock()
	names := make([]string, 0, len(m.subscribed))
	for name := range m.subscribed {
		names = append(names, name)
	}
	m.mu.Unlock()
	for _, name := range names {
		env, err := wire.Encode(wire.TypeSubscribe, map[string]any{"topic_name": name})
		if err != nil {
			continue
		}
		if err := m.sendFrame(env); err != nil {
			m.log.Warn().Err(err).Str("topic_name", name).Msg("resubscribe failed")
		}
	}
}

// onLocalChangesMade is the mirror's own state machine's changes-made
// callback — it fires once per topic mutator call (Set, Insert, Emit, ...)
// issued against a locally registered topic. Every change it reports was
// just committed against the local shadow value (the optimistic apply);
// this tags them with a fresh action id, queues them on the preview deque,
// and forwards them to the server as an action message.
func (m *Mirror) onLocalChangesMade(changes []change.Change, _ string) {
	if len(changes) == 0 {
		return
	}
	actionID := uuid.NewString()

	m.mu.Lock()
	for _, c := range changes {
		m.preview = append(m.preview, previewEntry{actionID: actionID, change: c})
	}
	m.mu.Unlock()

	env, err := wire.Encode(wire.TypeAction, map[string]any{
		"action_id": actionID,
		"commands":  wire.EncodeChanges(changes),
	})
	if err != nil {
		m.log.Error().Err(err).Msg("failed to encode local action")
		return
	}
	if err := m.sendFrame(env); err != nil {
		m.log.Warn().Err(err).Str("action_id", actionID).Msg("failed to send action")
	}
}

// HandleFrame decodes and dispatches one frame received from the server.
func (m *Mirror) HandleFrame(data []byte) error {
	env, err := wire.Decode(data)
	if err != nil {
		return err
	}
	switch env.Type {
	case wire.TypeInit:
		return m.handleInit(env)
	case wire.TypeUpdate:
		return m.handleUpdate(env)
	case wire.TypeReject, wire.TypeRejectUpdate:
		m.handleReject(env)
		return nil
	case wire.TypeHello, wire.TypeRequest, wire.TypeResponse:
		// No default handling: hello is informational, request/response
		// routing is an application-level concern layered on top of this
		// mirror rather than something it owns.
		return nil
	default:
		m.log.Warn().Str("type", env.Type).Msg("unknown message type")
		return nil
	}
}

func (m *Mirror) handleInit(env wire.Envelope) error {
	name, _ := wire.Arg[string](env, "topic_name")
	if name == "" {
		return fmt.Errorf("init message missing topic_name")
	}
	t, ok := m.Topic(name)
	if !ok {
		return fmt.Errorf("init for unregistered local topic %q", name)
	}
	return t.LoadSnapshot(env.Args["value"], env.Args)
}

// handleUpdate reconciles incoming authoritative changes against the
// preview deque: a change whose id matches the deque head confirms it
// (pop, no-op otherwise — the value was already applied optimistically);
// anything else means the client has diverged from the server, so the
// entire deque is undone before the authoritative change is applied.
func (m *Mirror) handleUpdate(env wire.Envelope) error {
	changes, err := wire.DecodeChanges(env.Args["changes"])
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		if len(m.preview) > 0 && m.preview[0].change.ID() == c.ID() {
			m.preview = m.preview[1:]
			continue
		}
		m.abandonPreviewLocked()
		if err := m.applyAuthoritativeLocked(c); err != nil {
			m.log.Warn().Err(err).Str("topic_name", c.TopicName()).Msg("failed to apply authoritative change")
		}
	}
	return nil
}

// handleReject undoes and clears the whole preview path. actionID (or,
// failing that, the rejected action's first change id) is only used to
// log which action was rejected — the rollback itself is unconditional,
// since a preview deque is a path: whatever built on top of a rejected
// action can no longer be assumed valid either.
func (m *Mirror) handleReject(env wire.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.preview) == 0 {
		return
	}
	actionID, _ := wire.Arg[string](env, "action_id")
	reason, _ := wire.Arg[string](env, "reason")
	m.log.Info().Str("action_id", actionID).Str("reason", reason).Msg("action rejected, rolling back preview")
	m.abandonPreviewLocked()
}

// abandonPreviewLocked undoes every queued preview entry in reverse order
// and clears the deque. Callers must hold m.mu.
func (m *Mirror) abandonPreviewLocked() {
	for i := len(m.preview) - 1; i >= 0; i-- {
		if err := m.applyAuthoritativeLocked(m.preview[i].change.Inverse()); err != nil {
			m.log.Warn().Err(err).Str("topic_name", m.preview[i].change.TopicName()).Msg("failed to undo preview entry")
		}
	}
	m.preview = nil
}

// applyAuthoritativeLocked commits c directly against the topic, bypassing
// the state machine entirely: these values come from the server and must
// not re-trigger onLocalChangesMade (which would re-queue them for send,
// echoing them straight back). Callers must hold m.mu.
func (m *Mirror) applyAuthoritativeLocked(c change.Change) error {
	t, ok := m.sm.GetTopic(c.TopicName())
	if !ok {
		return fmt.Errorf("update for unregistered local topic %q", c.TopicName())
	}
	_, _, err := t.ApplyChange(c)
	return err
}
