package change

// ListSet, ListInsert and ListPop are the change kinds for the "list" topic
// type — an ordered, possibly-duplicate-containing list.
type ListSet struct {
	base
	Value    []any
	OldValue []any
}

func NewListSet(topicName string, value []any) *ListSet {
	return &ListSet{base: newBase(topicName, ""), Value: value}
}

func (c *ListSet) TopicType() string { return "list" }
func (c *ListSet) Kind() string      { return "set" }

func (c *ListSet) Apply(old any) (any, error) {
	oldList, _ := old.([]any)
	if !DeepEqual(c.OldValue, oldList) {
		c.regenerateID()
	}
	c.OldValue = oldList
	return cloneAny(c.Value), nil
}

func (c *ListSet) Inverse() Change {
	return &ListSet{base: newBase(c.topicName, ""), Value: c.OldValue, OldValue: c.Value}
}

func (c *ListSet) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "list", "type": "set",
		"id": c.id, "value": c.Value, "old_value": c.OldValue,
	}
}

// ListInsert inserts Item at Pos; Pos == -1 means append.
type ListInsert struct {
	base
	Item any
	Pos  int
}

func NewListInsert(topicName string, item any, pos int) *ListInsert {
	return &ListInsert{base: newBase(topicName, ""), Item: item, Pos: pos}
}

func (c *ListInsert) TopicType() string { return "list" }
func (c *ListInsert) Kind() string      { return "insert" }

func (c *ListInsert) Apply(old any) (any, error) {
	oldList, _ := old.([]any)
	pos := c.Pos
	if pos == -1 {
		pos = len(oldList)
	}
	if pos < 0 || pos > len(oldList) {
		return nil, &InvalidChangeError{TopicName: c.topicName, Reason: "insert position out of range"}
	}
	out := make([]any, 0, len(oldList)+1)
	out = append(out, oldList[:pos]...)
	out = append(out, c.Item)
	out = append(out, oldList[pos:]...)
	return out, nil
}

func (c *ListInsert) Inverse() Change {
	return &ListPop{base: newBase(c.topicName, ""), Pos: c.Pos}
}

func (c *ListInsert) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "list", "type": "insert",
		"id": c.id, "item": c.Item, "pos": c.Pos,
	}
}

// ListPop removes the item at Pos (or the last item if Pos == -1), and
// records RemovedItem/RemovedAt on apply so Inverse can restore exact
// value and position.
type ListPop struct {
	base
	Pos         int
	RemovedItem any
	RemovedAt   int
}

func NewListPop(topicName string, pos int) *ListPop {
	return &ListPop{base: newBase(topicName, ""), Pos: pos}
}

func (c *ListPop) TopicType() string { return "list" }
func (c *ListPop) Kind() string      { return "pop" }

func (c *ListPop) Apply(old any) (any, error) {
	oldList, _ := old.([]any)
	pos := c.Pos
	if pos == -1 {
		pos = len(oldList) - 1
	}
	if pos < 0 || pos >= len(oldList) {
		return nil, &InvalidChangeError{TopicName: c.topicName, Reason: "pop position out of range"}
	}
	c.RemovedItem = oldList[pos]
	c.RemovedAt = pos
	out := make([]any, 0, len(oldList)-1)
	out = append(out, oldList[:pos]...)
	out = append(out, oldList[pos+1:]...)
	return out, nil
}

func (c *ListPop) Inverse() Change {
	return &ListInsert{base: newBase(c.topicName, ""), Item: c.RemovedItem, Pos: c.RemovedAt}
}

func (c *ListPop) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "list", "type": "pop",
		"id": c.id, "pos": c.Pos,
	}
}

func init() {
	register("list", "set", func(f map[string]any) (Change, error) {
		val, _ := f["value"].([]any)
		old, _ := f["old_value"].([]any)
		return &ListSet{base: newBase(str(f, "topic_name"), str(f, "id")), Value: val, OldValue: old}, nil
	})
	register("list", "insert", func(f map[string]any) (Change, error) {
		return &ListInsert{base: newBase(str(f, "topic_name"), str(f, "id")), Item: f["item"], Pos: int(num(f, "pos"))}, nil
	})
	register("list", "pop", func(f map[string]any) (Change, error) {
		return &ListPop{base: newBase(str(f, "topic_name"), str(f, "id")), Pos: int(num(f, "pos"))}, nil
	})
}
