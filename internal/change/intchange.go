package change

// IntSet and IntAdd are the change kinds for the "int" topic type.
type IntSet struct {
	base
	Value    int
	OldValue int
}

func NewIntSet(topicName string, value int) *IntSet {
	return &IntSet{base: newBase(topicName, ""), Value: value}
}

func (c *IntSet) TopicType() string { return "int" }
func (c *IntSet) Kind() string      { return "set" }

func (c *IntSet) Apply(old any) (any, error) {
	oldInt, _ := old.(int)
	c.OldValue = oldInt
	return c.Value, nil
}

func (c *IntSet) Inverse() Change {
	return &IntSet{base: newBase(c.topicName, ""), Value: c.OldValue, OldValue: c.Value}
}

func (c *IntSet) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "int", "type": "set",
		"id": c.id, "value": c.Value, "old_value": c.OldValue,
	}
}

type IntAdd struct {
	base
	Value int
}

func NewIntAdd(topicName string, value int) *IntAdd {
	return &IntAdd{base: newBase(topicName, ""), Value: value}
}

func (c *IntAdd) TopicType() string { return "int" }
func (c *IntAdd) Kind() string      { return "add" }

func (c *IntAdd) Apply(old any) (any, error) {
	oldInt, _ := old.(int)
	return oldInt + c.Value, nil
}

func (c *IntAdd) Inverse() Change {
	return &IntAdd{base: newBase(c.topicName, ""), Value: -c.Value}
}

func (c *IntAdd) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "int", "type": "add",
		"id": c.id, "value": c.Value,
	}
}

func init() {
	register("int", "set", func(f map[string]any) (Change, error) {
		return &IntSet{base: newBase(str(f, "topic_name"), str(f, "id")), Value: int(num(f, "value")), OldValue: int(num(f, "old_value"))}, nil
	})
	register("int", "add", func(f map[string]any) (Change, error) {
		return &IntAdd{base: newBase(str(f, "topic_name"), str(f, "id")), Value: int(num(f, "value"))}, nil
	})
}
