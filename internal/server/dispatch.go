package server

import (
	"context"
	"fmt"

	"github.com/erauner12/topicsync/internal/broker"
	"github.com/erauner12/topicsync/internal/wire"
)

// dispatch handles one decoded frame from client c, replying or broadcasting
// as that message type requires. It returns nothing: protocol-level problems
// (unknown topic, rejected action) are reported back to the client, and an
// unknown message type is logged and ignored. Malformed frames never reach
// it; the read loop logs and skips them.
func (s *Server) dispatch(ctx context.Context, c *broker.Client, env wire.Envelope) {
	switch env.Type {
	case wire.TypeSubscribe:
		s.handleSubscribe(c, env)
	case wire.TypeUnsubscribe:
		s.handleUnsubscribe(c, env)
	case wire.TypeAction:
		s.handleAction(c, env)
	case wire.TypeRequest:
		s.handleRequest(ctx, c, env)
	case wire.TypeResponse:
		s.handleResponse(env)
	case wire.TypeRegisterService:
		s.handleRegisterService(c, env)
	case wire.TypeUnregisterService:
		s.handleUnregisterService(c, env)
	default:
		s.log.Warn().Str("type", env.Type).Int("client_id", c.ID).Msg("unknown message type")
	}
}

func (s *Server) handleSubscribe(c *broker.Client, env wire.Envelope) {
	topicName, _ := wire.Arg[string](env, "topic_name")
	if topicName == "" {
		return
	}
	t, ok := s.sm.GetTopic(topicName)
	if !ok {
		s.clients.SendTo(c.ID, wire.TypeReject, map[string]any{
			"reason": fmt.Sprintf("topic %q does not exist", topicName),
		})
		return
	}
	// Idempotent: a repeated subscribe from the same client to the same
	// topic is a no-op rather than a duplicate init.
	if s.clients.IsSubscribed(c.ID, topicName) {
		return
	}
	s.clients.Subscribe(c.ID, topicName)

	snapshot := t.InitSnapshot()
	args := map[string]any{"topic_name": topicName}
	for k, v := range snapshot {
		args[k] = v
	}
	s.clients.SendTo(c.ID, wire.TypeInit, args)
}

func (s *Server) handleUnsubscribe(c *broker.Client, env wire.Envelope) {
	topicName, _ := wire.Arg[string](env, "topic_name")
	if topicName == "" {
		return
	}
	s.clients.Unsubscribe(c.ID, topicName)
}

func (s *Server) handleAction(c *broker.Client, env wire.Envelope) {
	if !s.limiter.allow(c.ID) {
		s.clients.SendTo(c.ID, wire.TypeReject, map[string]any{"reason": "rate limit exceeded"})
		return
	}
	actionID, _ := wire.Arg[string](env, "action_id")
	commands, err := wire.DecodeChanges(env.Args["commands"])
	if err != nil {
		s.clients.SendTo(c.ID, wire.TypeReject, map[string]any{"reason": err.Error()})
		return
	}
	if err := s.sm.ApplyChanges(commands, actionID); err != nil {
		s.log.Info().Err(err).Int("client_id", c.ID).Str("action_id", actionID).Msg("action rejected")
		s.clients.SendTo(c.ID, wire.TypeReject, map[string]any{"reason": err.Error()})
	}
}

func (s *Server) handleRequest(ctx context.Context, c *broker.Client, env wire.Envelope) {
	serviceName, _ := wire.Arg[string](env, "service_name")
	args, _ := env.Args["args"].(map[string]any)
	requestID, _ := wire.Arg[string](env, "request_id")

	providerID, ok := s.clients.ServiceProvider(serviceName)
	if !ok {
		s.clients.SendTo(c.ID, wire.TypeResponse, map[string]any{
			"request_id": requestID,
			"response":   nil,
		})
		return
	}

	forwardID := s.requests.NewRequestID()
	s.clients.SendTo(providerID, wire.TypeRequest, map[string]any{
		"service_name": serviceName,
		"args":         args,
		"request_id":   forwardID,
	})

	go func() {
		response, err := s.requests.Wait(ctx, forwardID)
		if err != nil {
			response = nil
		}
		s.clients.SendTo(c.ID, wire.TypeResponse, map[string]any{
			"request_id": requestID,
			"response":   response,
		})
	}()
}

func (s *Server) handleResponse(env wire.Envelope) {
	requestID, _ := wire.Arg[string](env, "request_id")
	if requestID == "" {
		return
	}
	s.requests.Resolve(requestID, env.Args["response"])
}

func (s *Server) handleRegisterService(c *broker.Client, env wire.Envelope) {
	name, _ := wire.Arg[string](env, "service_name")
	if name == "" {
		return
	}
	s.clients.RegisterService(c.ID, name)
}

func (s *Server) handleUnregisterService(c *broker.Client, env wire.Envelope) {
	name, _ := wire.Arg[string](env, "service_name")
	if name == "" {
		return
	}
	if err := s.clients.UnregisterService(c.ID, name); err != nil {
		s.log.Warn().Err(err).Int("client_id", c.ID).Msg("unregister_service failed")
	}
}
