package change

// FloatSet and FloatAdd are the change kinds for the "float" topic type.
type FloatSet struct {
	base
	Value    float64
	OldValue float64
}

func NewFloatSet(topicName string, value float64) *FloatSet {
	return &FloatSet{base: newBase(topicName, ""), Value: value}
}

func (c *FloatSet) TopicType() string { return "float" }
func (c *FloatSet) Kind() string      { return "set" }

func (c *FloatSet) Apply(old any) (any, error) {
	oldF, _ := old.(float64)
	c.OldValue = oldF
	return c.Value, nil
}

func (c *FloatSet) Inverse() Change {
	return &FloatSet{base: newBase(c.topicName, ""), Value: c.OldValue, OldValue: c.Value}
}

func (c *FloatSet) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "float", "type": "set",
		"id": c.id, "value": c.Value, "old_value": c.OldValue,
	}
}

type FloatAdd struct {
	base
	Value float64
}

func NewFloatAdd(topicName string, value float64) *FloatAdd {
	return &FloatAdd{base: newBase(topicName, ""), Value: value}
}

func (c *FloatAdd) TopicType() string { return "float" }
func (c *FloatAdd) Kind() string      { return "add" }

func (c *FloatAdd) Apply(old any) (any, error) {
	oldF, _ := old.(float64)
	return oldF + c.Value, nil
}

func (c *FloatAdd) Inverse() Change {
	return &FloatAdd{base: newBase(c.topicName, ""), Value: -c.Value}
}

func (c *FloatAdd) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "float", "type": "add",
		"id": c.id, "value": c.Value,
	}
}

func init() {
	register("float", "set", func(f map[string]any) (Change, error) {
		return &FloatSet{base: newBase(str(f, "topic_name"), str(f, "id")), Value: num(f, "value"), OldValue: num(f, "old_value")}, nil
	})
	register("float", "add", func(f map[string]any) (Change, error) {
		return &FloatAdd{base: newBase(str(f, "topic_name"), str(f, "id")), Value: num(f, "value")}, nil
	})
}
