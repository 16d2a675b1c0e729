package constant

import (
	"encoding/json"
	"fmt"
)

// ValueKind selects the publish policy of a channel.
type ValueKind int8

const (
	// Discrete values (relay state, enumerated mode, integer level) publish on any change.
	Discrete ValueKind = iota
	// Continuous values (temperature, rpm) publish when they move past a threshold.
	Continuous
)

var ValueKindToString = map[ValueKind]string{
	Discrete:   "discrete",
	Continuous: "continuous",
}

var StringToValueKind = map[string]ValueKind{
	"discrete":   Discrete,
	"continuous": Continuous,
}

func (vk ValueKind) String() string {
	return ValueKindToString[vk]
}

func (vk ValueKind) MarshalJSON() ([]byte, error) {
	if s, ok := ValueKindToString[vk]; ok {
		return json.Marshal(s)
	}
	return nil, fmt.Errorf("unknown value kind %d", vk)
}

func (vk *ValueKind) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}

	v, ok := StringToValueKind[s]
	if !ok {
		return fmt.Errorf("unknown value kind %s", s)
	}
	*vk = v
	return nil
}
