package server

import (
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// MetaTopicName is the server-owned dict topic clients subscribe to in
// order to learn the topology of every other topic, and through which they
// create or destroy topics by submitting add/pop changes against it.
const MetaTopicName = "topicsync/topic_list"

// onTopicListChanged is the meta-topic's auto listener: an accepted add
// entry creates the named topic in the state machine, a pop entry
// dismantles it. Returning an error here fails (and rolls back) just the
// add/pop that caused it, exactly like a validator would for any other
// topic.
func (s *Server) onTopicListChanged(c change.Change, old, new any) error {
	switch ch := c.(type) {
	case *change.DictAdd:
		return s.createTopicFromEntry(ch.Key, ch.Value)
	case *change.DictPop:
		s.destroyTopic(ch.Key)
	}
	return nil
}

func (s *Server) createTopicFromEntry(name string, entry any) error {
	meta, ok := entry.(map[string]any)
	if !ok {
		return fmt.Errorf("topic_list entry for %q must be an object", name)
	}
	topicType, _ := meta["type"].(string)
	if topicType == "" {
		return fmt.Errorf("topic_list entry for %q is missing a type", name)
	}
	stateful := true
	if v, present := meta["is_stateful"]; present {
		b, _ := v.(bool)
		stateful = b
	}

	t, err := s.sm.AddTopic(name, topicType, stateful)
	if err != nil {
		return err
	}
	// boundary_value seeds the topic with something other than its type's
	// zero value, e.g. a pre-populated list or a non-empty starting string.
	if bv, present := meta["boundary_value"]; present {
		_ = seedBoundaryValue(t, bv)
	}
	s.log.Info().Str("topic", name).Str("type", topicType).Bool("stateful", stateful).Msg("topic created")
	return nil
}

func (s *Server) destroyTopic(name string) {
	s.sm.RemoveTopic(name)
	s.buffer.RemoveTopic(name)
	s.clients.PurgeTopic(name)
	s.log.Info().Str("topic", name).Msg("topic removed")
}
