package wire

import (
	"testing"

	"github.com/erauner12/topicsync/internal/change"
)

func TestEncodeDecodeChangesRoundTrip(t *testing.T) {
	changes := []change.Change{
		change.NewIntSet("counter", 5),
		change.NewStringInsert("doc", 0, "hi", "v0"),
	}

	encoded := EncodeChanges(changes)
	if len(encoded) != 2 {
		t.Fatalf("encoded len = %d, want 2", len(encoded))
	}

	decoded, err := DecodeChanges(encoded)
	if err != nil {
		t.Fatalf("DecodeChanges: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded len = %d, want 2", len(decoded))
	}
	for i, c := range changes {
		if decoded[i].ID() != c.ID() || decoded[i].Kind() != c.Kind() {
			t.Fatalf("decoded[%d] = %s/%s, want %s/%s", i, decoded[i].TopicType(), decoded[i].Kind(), c.TopicType(), c.Kind())
		}
	}
}

// DecodeChanges must also accept []any containing the raw map[string]any
// shape JSON unmarshaling produces, not just the []any produced by
// EncodeChanges from concrete Change values.
func TestDecodeChangesAcceptsJSONDecodedShape(t *testing.T) {
	raw := []any{
		map[string]any{
			"topic_type": "int",
			"type":       "set",
			"topic_name": "counter",
			"value":      3.0,
			"old_value":  0.0,
			"id":         "abc",
		},
	}
	decoded, err := DecodeChanges(raw)
	if err != nil {
		t.Fatalf("DecodeChanges: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded len = %d, want 1", len(decoded))
	}
	if decoded[0].TopicName() != "counter" {
		t.Fatalf("TopicName() = %q, want counter", decoded[0].TopicName())
	}
}

func TestDecodeChangesRejectsNonList(t *testing.T) {
	if _, err := DecodeChanges("not a list"); err == nil {
		t.Fatalf("expected an error when raw isn't a []any")
	}
}

func TestDecodeChangesRejectsNonDictItem(t *testing.T) {
	if _, err := DecodeChanges([]any{"not a dict"}); err == nil {
		t.Fatalf("expected an error when an item isn't a map[string]any")
	}
}

func TestDecodeChangesPropagatesPerItemError(t *testing.T) {
	raw := []any{
		map[string]any{"topic_type": "nonexistent", "type": "set"},
	}
	if _, err := DecodeChanges(raw); err == nil {
		t.Fatalf("expected an error for an unknown topic type embedded in the list")
	}
}

func TestEncodeChangesEmptyInputYieldsEmptySlice(t *testing.T) {
	out := EncodeChanges(nil)
	if len(out) != 0 {
		t.Fatalf("EncodeChanges(nil) len = %d, want 0", len(out))
	}
}
