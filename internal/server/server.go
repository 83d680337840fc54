// Package server wires the state machine, the topic registry, and the
// broadcast fabric together behind a WebSocket+HTTP front door: one message
// loop per connection reads frames and dispatches them, the state machine
// and its meta-topic own topic lifecycle, and the update buffer fans
// committed changes back out to subscribers.
package server

import (
	"github.com/erauner12/topicsync/internal/broker"
	"github.com/erauner12/topicsync/internal/change"
	"github.com/erauner12/topicsync/internal/config"
	"github.com/erauner12/topicsync/internal/statemachine"
	"github.com/erauner12/topicsync/internal/topic"
	"github.com/erauner12/topicsync/internal/wire"
	"github.com/rs/zerolog"
)

// Server owns one state machine and everything needed to expose it to
// WebSocket clients.
type Server struct {
	log zerolog.Logger
	cfg config.Config

	sm       *statemachine.StateMachine
	clients  *broker.ClientManager
	buffer   *broker.UpdateBuffer
	requests *broker.RequestCorrelator
	limiter  *clientRateLimiter

	meta *topic.Dict
}

func New(cfg config.Config, log zerolog.Logger) *Server {
	s := &Server{
		log:      log,
		cfg:      cfg,
		clients:  broker.NewClientManager(log),
		requests: broker.NewRequestCorrelator(),
		limiter:  newClientRateLimiter(cfg.RateLimitBurst, cfg.RateLimitPerSecond),
	}

	s.sm = statemachine.New(s.onChangesMade, s.onTransitionDone)
	s.sm.SetMaxCascadeDepth(cfg.MaxCascadeDepth)

	s.buffer = broker.NewUpdateBuffer(s.sm, log, s.broadcastChanges)
	s.buffer.SetFlushInterval(cfg.FlushInterval)

	t, err := s.sm.AddTopic(MetaTopicName, "dict", true)
	if err != nil {
		// Only ever fails if the meta topic name collides with itself,
		// which can't happen on a freshly constructed state machine.
		panic(err)
	}
	meta := t.(*topic.Dict)
	meta.AddAutoListener(s.onTopicListChanged)
	s.meta = meta

	return s
}

// Run starts the background update-buffer clock. Call once, in its own
// goroutine; returns when Stop is called.
func (s *Server) Run() { s.buffer.Run() }

func (s *Server) Stop() { s.buffer.Stop() }

// onChangesMade is the state machine's broadcast-source callback: every
// non-sentinel, non-event change a completed scope produced, tagged with
// the originating action id (or "" for changes made outside any client
// action). Buffer flushes bypass this callback and reach broadcastChanges
// directly under the action id "clock".
func (s *Server) onChangesMade(changes []change.Change, actionID string) {
	s.buffer.AddChanges(changes, actionID)
}

// onTransitionDone would feed an undo/redo history; this protocol has no
// wire-level undo/redo trigger (spec's undo/redo is a programmatic
// capability of the state machine, not exposed to clients), so there is
// nothing to record here beyond what an embedder might choose to do.
func (s *Server) onTransitionDone(t *statemachine.Transition) {}

// broadcastChanges is the update buffer's send callback. A batch may span
// several topics (a flushed non-stateful batch, or a cascaded transition);
// per the ordering guarantee that one transition's changes arrive at every
// subscriber in the same order they were produced, this groups changes by
// destination client rather than by topic, so one client gets exactly one
// "update" frame per batch, its own subscribed-topic changes in their
// original relative order.
func (s *Server) broadcastChanges(changes []change.Change, actionID string) {
	perClient := map[int][]change.Change{}
	order := make([]int, 0, len(changes))
	for _, c := range changes {
		for _, id := range s.clients.Subscribers(c.TopicName()) {
			if _, seen := perClient[id]; !seen {
				order = append(order, id)
			}
			perClient[id] = append(perClient[id], c)
		}
	}
	for _, id := range order {
		s.clients.SendTo(id, wire.TypeUpdate, map[string]any{
			"changes":   wire.EncodeChanges(perClient[id]),
			"action_id": actionID,
		})
	}
}
