package broker

import (
	"testing"
	"time"

	"github.com/erauner12/topicsync/internal/change"
	"github.com/erauner12/topicsync/internal/topic"
	"github.com/rs/zerolog"
)

type fakeLookup struct {
	topics map[string]topic.Topic
}

func (f *fakeLookup) HasTopic(name string) bool {
	_, ok := f.topics[name]
	return ok
}

func (f *fakeLookup) GetTopic(name string) (topic.Topic, bool) {
	t, ok := f.topics[name]
	return t, ok
}

func newFakeLookup(t *testing.T) *fakeLookup {
	t.Helper()
	counter, err := topic.New("counter", "int", nil, true)
	if err != nil {
		t.Fatalf("New counter: %v", err)
	}
	cursor, err := topic.New("cursor", "string", nil, false)
	if err != nil {
		t.Fatalf("New cursor: %v", err)
	}
	return &fakeLookup{topics: map[string]topic.Topic{
		"counter": counter,
		"cursor":  cursor,
	}}
}

func TestUpdateBufferSendsStatefulChangesImmediately(t *testing.T) {
	lookup := newFakeLookup(t)
	var sent []change.Change
	var actionIDs []string
	buf := NewUpdateBuffer(lookup, zerolog.Nop(), func(changes []change.Change, actionID string) {
		sent = append(sent, changes...)
		actionIDs = append(actionIDs, actionID)
	})

	buf.AddChanges([]change.Change{change.NewIntSet("counter", 1)}, "action-1")

	if len(sent) != 1 {
		t.Fatalf("expected the stateful change to be sent immediately, got %d", len(sent))
	}
	if actionIDs[0] != "action-1" {
		t.Fatalf("actionID = %q, want action-1", actionIDs[0])
	}
}

func TestUpdateBufferDefersNonStatefulChangesUntilFlush(t *testing.T) {
	lookup := newFakeLookup(t)
	var sent [][]change.Change
	buf := NewUpdateBuffer(lookup, zerolog.Nop(), func(changes []change.Change, actionID string) {
		sent = append(sent, changes)
	})

	buf.AddChanges([]change.Change{change.NewStringSet("cursor", "x=1")}, "action-2")
	if len(sent) != 0 {
		t.Fatalf("a non-stateful change should not be sent before a flush, got %d sends", len(sent))
	}

	buf.flush()
	if len(sent) != 1 || len(sent[0]) != 1 {
		t.Fatalf("expected one flushed batch of one change, got %v", sent)
	}
}

func TestUpdateBufferFlushMergesPerTopic(t *testing.T) {
	lookup := newFakeLookup(t)
	var sent []change.Change
	buf := NewUpdateBuffer(lookup, zerolog.Nop(), func(changes []change.Change, actionID string) {
		sent = changes
		if actionID != "clock" {
			t.Errorf("flush-triggered sends should carry the clock action id, got %q", actionID)
		}
	})

	buf.AddChanges([]change.Change{
		change.NewStringInsert("cursor", 0, "a", ""),
		change.NewStringSet("cursor", "reset"),
		change.NewStringInsert("cursor", 5, "!", ""),
	}, "")
	buf.flush()

	if len(sent) != 2 {
		t.Fatalf("merged len = %d, want 2 (the set and everything after it)", len(sent))
	}
}

func TestUpdateBufferIgnoresChangesForUnknownTopics(t *testing.T) {
	lookup := newFakeLookup(t)
	var calls int
	buf := NewUpdateBuffer(lookup, zerolog.Nop(), func(changes []change.Change, actionID string) { calls++ })

	buf.AddChanges([]change.Change{change.NewIntSet("ghost", 1)}, "action-3")
	if calls != 0 {
		t.Fatalf("a change for an unregistered topic should not be sent, got %d calls", calls)
	}
}

func TestUpdateBufferRemoveTopicDropsDeferredChanges(t *testing.T) {
	lookup := newFakeLookup(t)
	var calls int
	buf := NewUpdateBuffer(lookup, zerolog.Nop(), func(changes []change.Change, actionID string) { calls++ })

	buf.AddChanges([]change.Change{change.NewStringSet("cursor", "x=1")}, "")
	buf.RemoveTopic("cursor")
	buf.flush()

	if calls != 0 {
		t.Fatalf("a removed topic's deferred changes should not flush, got %d calls", calls)
	}
}

func TestUpdateBufferSetFlushIntervalIgnoresNonPositive(t *testing.T) {
	lookup := newFakeLookup(t)
	buf := NewUpdateBuffer(lookup, zerolog.Nop(), func([]change.Change, string) {})
	buf.SetFlushInterval(0)
	if buf.flushInterval != FlushInterval {
		t.Fatalf("SetFlushInterval(0) should be ignored, got %v", buf.flushInterval)
	}
	buf.SetFlushInterval(50 * time.Millisecond)
	if buf.flushInterval != 50*time.Millisecond {
		t.Fatalf("SetFlushInterval should apply a positive duration")
	}
}
