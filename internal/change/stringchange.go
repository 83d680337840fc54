package change

import "strings"

// StringSet replaces the whole string, regenerating its id if the observed
// OldValue no longer matches — the drift rule the string, set, list and
// dict "set" kinds follow. The int, float, generic and binary "set" kinds
// do not regenerate their id.
type StringSet struct {
	base
	Value    string
	OldValue string
}

func NewStringSet(topicName, value string) *StringSet {
	return &StringSet{base: newBase(topicName, ""), Value: value}
}

func (c *StringSet) TopicType() string { return "string" }
func (c *StringSet) Kind() string      { return "set" }

func (c *StringSet) Apply(old any) (any, error) {
	oldStr, _ := old.(string)
	if c.OldValue != oldStr {
		c.regenerateID()
	}
	c.OldValue = oldStr
	return c.Value, nil
}

func (c *StringSet) Inverse() Change {
	return &StringSet{base: newBase(c.topicName, ""), Value: c.OldValue, OldValue: c.Value}
}

func (c *StringSet) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "string", "type": "set",
		"id": c.id, "value": c.Value, "old_value": c.OldValue,
	}
}

// StringInsert inserts Text at Pos, where Pos is relative to the string as
// of BaseVersion (the id of the last change the composing client had seen).
// If the topic has moved on since BaseVersion, Rewind must be called before
// Apply so Pos lands in the right place against the current value.
type StringInsert struct {
	base
	Pos         int
	Text        string
	BaseVersion string
	rewound     bool
}

func NewStringInsert(topicName string, pos int, text, baseVersion string) *StringInsert {
	return &StringInsert{base: newBase(topicName, ""), Pos: pos, Text: text, BaseVersion: baseVersion}
}

func (c *StringInsert) TopicType() string { return "string" }
func (c *StringInsert) Kind() string      { return "insert" }

// Rewind walks this insert's Pos forward through every change applied after
// BaseVersion, in order. Called by the string topic before Apply whenever
// BaseVersion doesn't match the topic's current version. If the insertion
// point was wiped out by an intervening delete straddling it, the insert
// degenerates to a no-op: Text is cleared so Apply becomes identity rather
// than corrupting the string.
func (c *StringInsert) Rewind(intervening []Change) {
	if c.rewound || len(intervening) == 0 {
		return
	}
	newPos, _, dropped := rewindThrough(c.Pos, "", false, intervening)
	c.Pos = newPos
	if dropped {
		c.Text = ""
	}
	c.rewound = true
	c.id = c.id + "_adjust"
}

func (c *StringInsert) Apply(old any) (any, error) {
	oldStr, _ := old.(string)
	return insertAt(oldStr, c.Pos, c.Text)
}

func (c *StringInsert) Inverse() Change {
	return &StringDelete{base: newBase(c.topicName, ""), Pos: c.Pos, Deletion: c.Text, BaseVersion: c.BaseVersion, rewound: true}
}

func (c *StringInsert) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "string", "type": "insert",
		"id": c.id, "pos": c.Pos, "text": c.Text, "base_version": c.BaseVersion,
	}
}

// StringDelete removes Deletion starting at Pos, Pos/Deletion again being
// relative to BaseVersion until Rewind has walked them forward.
type StringDelete struct {
	base
	Pos         int
	Deletion    string
	BaseVersion string
	rewound     bool
}

func NewStringDelete(topicName string, pos int, deletion, baseVersion string) *StringDelete {
	return &StringDelete{base: newBase(topicName, ""), Pos: pos, Deletion: deletion, BaseVersion: baseVersion}
}

func (c *StringDelete) TopicType() string { return "string" }
func (c *StringDelete) Kind() string      { return "delete" }

// Rewind walks this delete's (Pos, Deletion) forward through every change
// applied after BaseVersion. Overlapping intervening deletes shrink the
// surviving Deletion text rather than failing outright; intervening inserts
// that land inside the pending deletion range are folded into it so the
// delete still removes everything the user meant to remove.
func (c *StringDelete) Rewind(intervening []Change) {
	if c.rewound || len(intervening) == 0 {
		return
	}
	newPos, newDeletion, _ := rewindThrough(c.Pos, c.Deletion, true, intervening)
	c.Pos = newPos
	c.Deletion = newDeletion
	c.rewound = true
	c.id = c.id + "_adjust"
}

func (c *StringDelete) Apply(old any) (any, error) {
	oldStr, _ := old.(string)
	if c.Deletion == "" {
		return oldStr, nil
	}
	if !strings.HasPrefix(runeSlice(oldStr, c.Pos, c.Pos+runeLen(c.Deletion)), c.Deletion) {
		return nil, &InvalidChangeError{TopicName: c.topicName, Reason: "deleted text no longer matches string content"}
	}
	return deleteAt(oldStr, c.Pos, c.Deletion)
}

func (c *StringDelete) Inverse() Change {
	return &StringInsert{base: newBase(c.topicName, ""), Pos: c.Pos, Text: c.Deletion, BaseVersion: c.BaseVersion, rewound: true}
}

func (c *StringDelete) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "string", "type": "delete",
		"id": c.id, "pos": c.Pos, "deletion": c.Deletion, "base_version": c.BaseVersion,
	}
}

func init() {
	register("string", "set", func(f map[string]any) (Change, error) {
		return &StringSet{base: newBase(str(f, "topic_name"), str(f, "id")), Value: str(f, "value"), OldValue: str(f, "old_value")}, nil
	})
	register("string", "insert", func(f map[string]any) (Change, error) {
		return &StringInsert{
			base: newBase(str(f, "topic_name"), str(f, "id")),
			Pos:  int(num(f, "pos")), Text: str(f, "text"), BaseVersion: str(f, "base_version"),
		}, nil
	})
	register("string", "delete", func(f map[string]any) (Change, error) {
		return &StringDelete{
			base: newBase(str(f, "topic_name"), str(f, "id")),
			Pos:  int(num(f, "pos")), Deletion: str(f, "deletion"), BaseVersion: str(f, "base_version"),
		}, nil
	})
}
