package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/erauner12/topicsync/internal/change"
	"github.com/erauner12/topicsync/internal/config"
	"github.com/erauner12/topicsync/internal/wire"
	"github.com/rs/zerolog"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []wire.Envelope
}

func (f *fakeConn) WriteMessage(ctx context.Context, data []byte) error {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	f.mu.Lock()
	f.frames = append(f.frames, env)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) last() (wire.Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return wire.Envelope{}, false
	}
	return f.frames[len(f.frames)-1], true
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func waitForCount(t *testing.T, f *fakeConn, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if f.count() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected at least %d frames, got %d", n, f.count())
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		FlushInterval:      50 * time.Millisecond,
		MaxCascadeDepth:    10000,
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
	}
	return New(cfg, zerolog.Nop())
}

func TestSubscribeUnknownTopicSendsReject(t *testing.T) {
	s := newTestServer(t)
	conn := &fakeConn{}
	c, err := s.clients.Register(context.Background(), conn)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	waitForCount(t, conn, 1) // hello

	s.dispatch(context.Background(), c, wire.Envelope{
		Type: wire.TypeSubscribe,
		Args: map[string]any{"topic_name": "nonexistent"},
	})

	waitForCount(t, conn, 2)
	env, _ := conn.last()
	if env.Type != wire.TypeReject {
		t.Fatalf("Type = %q, want %q", env.Type, wire.TypeReject)
	}
}

// createTopic drives the meta topic's add path the way a client would, via
// ApplyChange against the topic_list dict, so a topic exists to subscribe
// to and exercises onTopicListChanged at the same time.
func createTopic(t *testing.T, s *Server, name, topicType string, stateful bool) {
	t.Helper()
	entry := map[string]any{"type": topicType, "is_stateful": stateful}
	if err := s.sm.ApplyChange(change.NewDictAdd(MetaTopicName, name, entry)); err != nil {
		t.Fatalf("create topic %q: %v", name, err)
	}
}

func TestSubscribeSendsInitSnapshot(t *testing.T) {
	s := newTestServer(t)
	createTopic(t, s, "counter", "int", true)

	conn := &fakeConn{}
	c, _ := s.clients.Register(context.Background(), conn)
	waitForCount(t, conn, 1)

	s.dispatch(context.Background(), c, wire.Envelope{
		Type: wire.TypeSubscribe,
		Args: map[string]any{"topic_name": "counter"},
	})

	waitForCount(t, conn, 2)
	env, _ := conn.last()
	if env.Type != wire.TypeInit {
		t.Fatalf("Type = %q, want %q", env.Type, wire.TypeInit)
	}
	if env.Args["topic_name"] != "counter" {
		t.Fatalf("topic_name = %v, want counter", env.Args["topic_name"])
	}
}

func TestSubscribeTwiceIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	createTopic(t, s, "counter", "int", true)
	conn := &fakeConn{}
	c, _ := s.clients.Register(context.Background(), conn)
	waitForCount(t, conn, 1)

	env := wire.Envelope{Type: wire.TypeSubscribe, Args: map[string]any{"topic_name": "counter"}}
	s.dispatch(context.Background(), c, env)
	waitForCount(t, conn, 2)
	s.dispatch(context.Background(), c, env)

	time.Sleep(20 * time.Millisecond)
	if conn.count() != 2 {
		t.Fatalf("a repeated subscribe should not send a second init, got %d frames", conn.count())
	}
}

func TestActionAppliesChangeAndBroadcasts(t *testing.T) {
	s := newTestServer(t)
	createTopic(t, s, "counter", "int", true)

	subConn := &fakeConn{}
	subscriber, _ := s.clients.Register(context.Background(), subConn)
	waitForCount(t, subConn, 1)
	s.dispatch(context.Background(), subscriber, wire.Envelope{
		Type: wire.TypeSubscribe, Args: map[string]any{"topic_name": "counter"},
	})
	waitForCount(t, subConn, 2)

	actorConn := &fakeConn{}
	actor, _ := s.clients.Register(context.Background(), actorConn)
	waitForCount(t, actorConn, 1)

	commands := wire.EncodeChanges([]change.Change{change.NewIntSet("counter", 7)})
	s.dispatch(context.Background(), actor, wire.Envelope{
		Type: wire.TypeAction,
		Args: map[string]any{"action_id": "a1", "commands": commands},
	})

	waitForCount(t, subConn, 3)
	env, _ := subConn.last()
	if env.Type != wire.TypeUpdate {
		t.Fatalf("Type = %q, want %q", env.Type, wire.TypeUpdate)
	}
	if env.Args["action_id"] != "a1" {
		t.Fatalf("action_id = %v, want a1", env.Args["action_id"])
	}
}

func TestActionOnUnknownTopicSendsReject(t *testing.T) {
	s := newTestServer(t)
	conn := &fakeConn{}
	c, _ := s.clients.Register(context.Background(), conn)
	waitForCount(t, conn, 1)

	commands := wire.EncodeChanges([]change.Change{change.NewIntSet("ghost", 1)})
	s.dispatch(context.Background(), c, wire.Envelope{
		Type: wire.TypeAction,
		Args: map[string]any{"action_id": "a2", "commands": commands},
	})

	waitForCount(t, conn, 2)
	env, _ := conn.last()
	if env.Type != wire.TypeReject {
		t.Fatalf("Type = %q, want %q", env.Type, wire.TypeReject)
	}
}

func TestActionRateLimitRejectsAfterBurstExhausted(t *testing.T) {
	cfg := config.Config{FlushInterval: 50 * time.Millisecond, MaxCascadeDepth: 10000, RateLimitPerSecond: 0.001, RateLimitBurst: 1}
	s := New(cfg, zerolog.Nop())
	createTopic(t, s, "counter", "int", true)

	conn := &fakeConn{}
	c, _ := s.clients.Register(context.Background(), conn)
	waitForCount(t, conn, 1)

	send := func(v int) {
		commands := wire.EncodeChanges([]change.Change{change.NewIntSet("counter", v)})
		s.dispatch(context.Background(), c, wire.Envelope{
			Type: wire.TypeAction,
			Args: map[string]any{"action_id": "x", "commands": commands},
		})
	}
	send(1)
	send(2)

	waitForCount(t, conn, 2)
	env, _ := conn.last()
	if env.Type != wire.TypeReject {
		t.Fatalf("second action within the burst window should be rate-limited, got %q", env.Type)
	}
}

func TestRequestForwardsToProviderAndResolvesResponse(t *testing.T) {
	s := newTestServer(t)

	providerConn := &fakeConn{}
	provider, _ := s.clients.Register(context.Background(), providerConn)
	waitForCount(t, providerConn, 1)
	s.dispatch(context.Background(), provider, wire.Envelope{
		Type: wire.TypeRegisterService,
		Args: map[string]any{"service_name": "translate"},
	})

	callerConn := &fakeConn{}
	caller, _ := s.clients.Register(context.Background(), callerConn)
	waitForCount(t, callerConn, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.dispatch(ctx, caller, wire.Envelope{
		Type: wire.TypeRequest,
		Args: map[string]any{"service_name": "translate", "request_id": "r1", "args": map[string]any{}},
	})

	waitForCount(t, providerConn, 2)
	forwarded, _ := providerConn.last()
	if forwarded.Type != wire.TypeRequest {
		t.Fatalf("provider should have received a forwarded request, got %q", forwarded.Type)
	}
	forwardID, _ := forwarded.Args["request_id"].(string)
	if forwardID == "" {
		t.Fatalf("forwarded request should carry a non-empty request id")
	}

	s.dispatch(ctx, provider, wire.Envelope{
		Type: wire.TypeResponse,
		Args: map[string]any{"request_id": forwardID, "response": "bonjour"},
	})

	waitForCount(t, callerConn, 2)
	resp, _ := callerConn.last()
	if resp.Type != wire.TypeResponse {
		t.Fatalf("Type = %q, want %q", resp.Type, wire.TypeResponse)
	}
	if resp.Args["request_id"] != "r1" {
		t.Fatalf("request_id = %v, want r1 (the caller's own id, not the forwarded one)", resp.Args["request_id"])
	}
	if resp.Args["response"] != "bonjour" {
		t.Fatalf("response = %v, want bonjour", resp.Args["response"])
	}
}

func TestRequestWithNoProviderRespondsWithNilImmediately(t *testing.T) {
	s := newTestServer(t)
	conn := &fakeConn{}
	c, _ := s.clients.Register(context.Background(), conn)
	waitForCount(t, conn, 1)

	s.dispatch(context.Background(), c, wire.Envelope{
		Type: wire.TypeRequest,
		Args: map[string]any{"service_name": "nobody-home", "request_id": "r2", "args": map[string]any{}},
	})

	waitForCount(t, conn, 2)
	env, _ := conn.last()
	if env.Type != wire.TypeResponse || env.Args["response"] != nil {
		t.Fatalf("expected an immediate nil response, got %+v", env)
	}
}

func TestTopicPopDestroysTopicAndPurgesSubscription(t *testing.T) {
	s := newTestServer(t)
	createTopic(t, s, "scratch", "int", true)
	if !s.sm.HasTopic("scratch") {
		t.Fatalf("topic should exist after creation")
	}
	s.clients.Subscribe(1, "scratch")

	if err := s.sm.ApplyChange(change.NewDictPop(MetaTopicName, "scratch")); err != nil {
		t.Fatalf("destroy topic: %v", err)
	}
	if s.sm.HasTopic("scratch") {
		t.Fatalf("topic should have been removed")
	}
	if s.clients.IsSubscribed(1, "scratch") {
		t.Fatalf("subscription should have been purged along with the topic")
	}
}
