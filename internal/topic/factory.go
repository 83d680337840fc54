package topic

import "fmt"

// New builds a topic of the given type, mirroring the original factory's
// name->constructor dispatch.
func New(name, topicType string, sm Submitter, stateful bool) (Topic, error) {
	switch topicType {
	case "generic":
		return NewGeneric(name, sm, stateful), nil
	case "string":
		return NewString(name, sm, stateful), nil
	case "int":
		return NewInt(name, sm, stateful), nil
	case "float":
		return NewFloat(name, sm, stateful), nil
	case "set":
		return NewSet(name, sm, stateful), nil
	case "list":
		return NewList(name, sm, stateful), nil
	case "dict":
		return NewDict(name, sm, stateful), nil
	case "event":
		return NewEvent(name, sm, stateful), nil
	case "binary":
		return NewBinary(name, sm, stateful), nil
	default:
		return nil, fmt.Errorf("unknown topic type %q", topicType)
	}
}
