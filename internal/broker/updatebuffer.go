package broker

import (
	"sync"
	"time"

	"github.com/desertbit/timer"
	"github.com/erauner12/topicsync/internal/change"
	"github.com/erauner12/topicsync/internal/topic"
	"github.com/rs/zerolog"
)

// FlushInterval is how often non-stateful changes accumulate before being
// coalesced and sent as one batch.
const FlushInterval = 200 * time.Millisecond

// TopicLookup is the subset of the state machine the update buffer needs:
// enough to decide whether a change's topic is stateful, and to ask that
// topic how to merge a pending batch.
type TopicLookup interface {
	HasTopic(name string) bool
	GetTopic(name string) (topic.Topic, bool)
}

// UpdateBuffer sits between the state machine's changes-made callback and
// the client manager's broadcast: stateful-topic changes go out immediately
// (they're cheap and rare relative to, say, a cursor-position event), while
// non-stateful-topic changes accumulate and flush on a fixed clock, merged
// per topic by that topic's own coalescing rule. This bounds the broadcast
// rate of a topic like a live cursor position to once per tick regardless
// of how fast its producer emits.
type UpdateBuffer struct {
	log           zerolog.Logger
	sm            TopicLookup
	send          func(changes []change.Change, actionID string)
	flushInterval time.Duration
	clock         *timer.Timer

	mu       sync.Mutex
	deferred map[string][]change.Change
	stopped  chan struct{}
}

func NewUpdateBuffer(sm TopicLookup, log zerolog.Logger, send func(changes []change.Change, actionID string)) *UpdateBuffer {
	return &UpdateBuffer{
		log:           log,
		sm:            sm,
		send:          send,
		flushInterval: FlushInterval,
		deferred:      map[string][]change.Change{},
		stopped:       make(chan struct{}),
	}
}

// SetFlushInterval overrides the default flush cadence. Call before Run.
func (b *UpdateBuffer) SetFlushInterval(d time.Duration) {
	if d > 0 {
		b.flushInterval = d
	}
}

// Run starts the periodic flush clock and blocks until Stop is called.
func (b *UpdateBuffer) Run() {
	b.clock = timer.NewTimer(b.flushInterval)
	defer b.clock.Stop()
	for {
		select {
		case <-b.stopped:
			return
		case <-b.clock.C:
			b.flush()
			b.clock.Reset(b.flushInterval)
		}
	}
}

func (b *UpdateBuffer) Stop() { close(b.stopped) }

// AddChanges is the state machine's onChangesMade callback: changes on
// stateful topics broadcast at once, under actionID; changes on
// non-stateful topics accumulate until the next flush tick.
func (b *UpdateBuffer) AddChanges(changes []change.Change, actionID string) {
	var now []change.Change
	b.mu.Lock()
	for _, c := range changes {
		if !b.sm.HasTopic(c.TopicName()) {
			continue
		}
		t, _ := b.sm.GetTopic(c.TopicName())
		if t.IsStateful() {
			now = append(now, c)
		} else {
			b.deferred[c.TopicName()] = append(b.deferred[c.TopicName()], c)
		}
	}
	b.mu.Unlock()

	if len(now) > 0 {
		b.send(now, actionID)
	}
}

// RemoveTopic discards any buffered, not-yet-flushed changes for a topic
// that no longer exists, so flush never hands a stale name to the state
// machine.
func (b *UpdateBuffer) RemoveTopic(topicName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.deferred, topicName)
}

func (b *UpdateBuffer) flush() {
	b.mu.Lock()
	pending := b.deferred
	b.deferred = map[string][]change.Change{}
	b.mu.Unlock()

	var merged []change.Change
	for topicName, changes := range pending {
		t, ok := b.sm.GetTopic(topicName)
		if !ok {
			continue
		}
		merged = append(merged, t.MergeChanges(changes)...)
	}
	if len(merged) > 0 {
		b.send(merged, "clock")
	}
}
