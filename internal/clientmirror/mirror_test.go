package clientmirror

import (
	"sync"
	"testing"

	"github.com/erauner12/topicsync/internal/change"
	"github.com/erauner12/topicsync/internal/topic"
	"github.com/erauner12/topicsync/internal/wire"
	"github.com/rs/zerolog"
)

type captureSender struct {
	mu     sync.Mutex
	frames []wire.Envelope
}

func (c *captureSender) send(data []byte) error {
	env, err := wire.Decode(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, env)
	c.mu.Unlock()
	return nil
}

func (c *captureSender) last() (wire.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return wire.Envelope{}, false
	}
	return c.frames[len(c.frames)-1], true
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func newTestMirror(t *testing.T) (*Mirror, *captureSender) {
	t.Helper()
	m := New(zerolog.Nop())
	cs := &captureSender{}
	m.SetSender(cs.send)
	return m, cs
}

func TestSubscribeSendsSubscribeFrame(t *testing.T) {
	m, cs := newTestMirror(t)
	if err := m.Subscribe("counter", "int", true); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	env, ok := cs.last()
	if !ok || env.Type != wire.TypeSubscribe {
		t.Fatalf("expected a subscribe frame, got %+v (ok=%v)", env, ok)
	}
	if env.Args["topic_name"] != "counter" {
		t.Fatalf("topic_name = %v, want counter", env.Args["topic_name"])
	}
}

func TestLocalMutationQueuesPreviewAndSendsAction(t *testing.T) {
	m, cs := newTestMirror(t)
	if err := m.Subscribe("counter", "int", true); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	tp, ok := m.Topic("counter")
	if !ok {
		t.Fatalf("Topic(counter) not found after Subscribe")
	}
	i := tp.(*topic.Int)

	if err := i.Set(5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if i.Get() != 5 {
		t.Fatalf("local value should be applied optimistically, got %v", i.Get())
	}

	env, ok := cs.last()
	if !ok || env.Type != wire.TypeAction {
		t.Fatalf("expected an action frame after a local mutation, got %+v (ok=%v)", env, ok)
	}
	if env.Args["action_id"] == "" {
		t.Fatalf("action frame should carry a non-empty action id")
	}
	if len(m.preview) != 1 {
		t.Fatalf("preview deque len = %d, want 1", len(m.preview))
	}
}

func TestHandleUpdateConfirmsMatchingPreviewEntry(t *testing.T) {
	m, _ := newTestMirror(t)
	m.Subscribe("counter", "int", true)
	tp, _ := m.Topic("counter")
	i := tp.(*topic.Int)
	i.Set(5)

	confirmed := m.preview[0].change

	env := wire.Envelope{Type: wire.TypeUpdate, Args: map[string]any{
		"changes":   wire.EncodeChanges([]change.Change{confirmed}),
		"action_id": m.preview[0].actionID,
	}}
	if err := m.HandleFrame(mustEncode(t, env)); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	if len(m.preview) != 0 {
		t.Fatalf("a confirming update should pop the matched preview entry, got len %d", len(m.preview))
	}
	if i.Get() != 5 {
		t.Fatalf("value should remain 5 after confirmation, got %v", i.Get())
	}
}

func TestHandleUpdateDivergingChangeAbandonsPreviewAndAppliesAuthoritative(t *testing.T) {
	m, _ := newTestMirror(t)
	m.Subscribe("counter", "int", true)
	tp, _ := m.Topic("counter")
	i := tp.(*topic.Int)
	i.Set(5) // optimistic local preview, value now 5

	// The server's authoritative change disagrees: counter is actually 99,
	// set by some other client. This is a different change id than our
	// pending preview entry, so it must undo our preview and then apply.
	authoritative := change.NewIntSet("counter", 99)

	env := wire.Envelope{Type: wire.TypeUpdate, Args: map[string]any{
		"changes": wire.EncodeChanges([]change.Change{authoritative}),
	}}
	if err := m.HandleFrame(mustEncode(t, env)); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	if len(m.preview) != 0 {
		t.Fatalf("diverging update should clear the preview deque, got len %d", len(m.preview))
	}
	if i.Get() != 99 {
		t.Fatalf("value should be the authoritative 99 after reconciliation, got %v", i.Get())
	}
}

func TestHandleRejectUndoesEntirePreview(t *testing.T) {
	m, _ := newTestMirror(t)
	m.Subscribe("counter", "int", true)
	tp, _ := m.Topic("counter")
	i := tp.(*topic.Int)
	i.Add(3)
	i.Add(4)
	if i.Get() != 7 {
		t.Fatalf("optimistic value = %v, want 7", i.Get())
	}

	env := wire.Envelope{Type: wire.TypeReject, Args: map[string]any{"action_id": "whatever", "reason": "nope"}}
	m.handleReject(env)

	if len(m.preview) != 0 {
		t.Fatalf("reject should clear the whole preview deque, got len %d", len(m.preview))
	}
	if i.Get() != 0 {
		t.Fatalf("value should be fully unwound to its default, got %v", i.Get())
	}
}

func TestHandleInitHydratesTopicValue(t *testing.T) {
	m, _ := newTestMirror(t)
	m.RegisterTopic("counter", "int", true)

	env := wire.Envelope{Type: wire.TypeInit, Args: map[string]any{"topic_name": "counter", "value": 42.0}}
	if err := m.HandleFrame(mustEncode(t, env)); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	tp, _ := m.Topic("counter")
	if tp.(*topic.Int).Get() != 42 {
		t.Fatalf("Get() = %v, want 42", tp.(*topic.Int).Get())
	}
}

func TestHandleInitForUnregisteredTopicErrors(t *testing.T) {
	m, _ := newTestMirror(t)
	env := wire.Envelope{Type: wire.TypeInit, Args: map[string]any{"topic_name": "ghost", "value": 1.0}}
	if err := m.HandleFrame(mustEncode(t, env)); err == nil {
		t.Fatalf("expected an error initializing a topic the mirror never registered")
	}
}

func TestResubscribeAllResendsEverySubscribedTopic(t *testing.T) {
	m, cs := newTestMirror(t)
	m.Subscribe("counter", "int", true)
	m.Subscribe("doc", "string", true)

	base := cs.count()
	m.resubscribeAll()
	if cs.count() != base+2 {
		t.Fatalf("resubscribeAll should resend one subscribe per tracked topic, got %d new frames", cs.count()-base)
	}
}

func mustEncode(t *testing.T, env wire.Envelope) []byte {
	t.Helper()
	data, err := wire.Encode(env.Type, env.Args)
	if err != nil {
		t.Fatalf("wire.Encode: %v", err)
	}
	return data
}
