package change

// GenericSet is the sole change kind for the "generic" topic type: any
// JSON-serializable value, no further structure assumed.
type GenericSet struct {
	base
	Value    any
	OldValue any
}

func NewGenericSet(topicName string, value any) *GenericSet {
	return &GenericSet{base: newBase(topicName, ""), Value: value}
}

func (c *GenericSet) TopicType() string { return "generic" }
func (c *GenericSet) Kind() string      { return "set" }

func (c *GenericSet) Apply(old any) (any, error) {
	c.OldValue = old
	return c.Value, nil
}

func (c *GenericSet) Inverse() Change {
	return &GenericSet{base: newBase(c.topicName, ""), Value: c.OldValue, OldValue: c.Value}
}

func (c *GenericSet) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "generic", "type": "set",
		"id": c.id, "value": c.Value, "old_value": c.OldValue,
	}
}

func init() {
	register("generic", "set", func(f map[string]any) (Change, error) {
		return &GenericSet{base: newBase(str(f, "topic_name"), str(f, "id")), Value: f["value"], OldValue: f["old_value"]}, nil
	})
}
