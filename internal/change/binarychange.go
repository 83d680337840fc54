package change

import "encoding/base64"

// BinarySet is the sole change kind for the "binary" topic type — raw bytes,
// base64-encoded on the wire.
type BinarySet struct {
	base
	Value    []byte
	OldValue []byte
}

func NewBinarySet(topicName string, value []byte) *BinarySet {
	return &BinarySet{base: newBase(topicName, ""), Value: value}
}

func (c *BinarySet) TopicType() string { return "binary" }
func (c *BinarySet) Kind() string      { return "set" }

func (c *BinarySet) Apply(old any) (any, error) {
	oldBytes, _ := old.([]byte)
	c.OldValue = oldBytes
	return c.Value, nil
}

func (c *BinarySet) Inverse() Change {
	return &BinarySet{base: newBase(c.topicName, ""), Value: c.OldValue, OldValue: c.Value}
}

func (c *BinarySet) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "binary", "type": "set",
		"id": c.id,
		"value":      base64.StdEncoding.EncodeToString(c.Value),
		"old_value":  base64.StdEncoding.EncodeToString(c.OldValue),
	}
}

func init() {
	register("binary", "set", func(f map[string]any) (Change, error) {
		val, _ := base64.StdEncoding.DecodeString(str(f, "value"))
		old, _ := base64.StdEncoding.DecodeString(str(f, "old_value"))
		return &BinarySet{base: newBase(str(f, "topic_name"), str(f, "id")), Value: val, OldValue: old}, nil
	})
}
