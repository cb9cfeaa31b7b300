// Package deepdiff computes the change-set that would turn value [left] into value [right].
//
// Values are the Go types produced by decoding JSON: map[string]any, []any,
// string, numbers, bool and nil. The sentinel [Undefined] stands for a value
// that is absent, which is different from an explicit null.
//
// A change-set is itself such a value. It contains only the paths that differ
// and is shaped like [right] at those paths. An empty change-set is an empty
// map, so callers can test `if !deepdiff.Changed(d) { ... }` before issuing a
// remote write.
//
// How arrays and objects are compared at a given path is controlled by a
// [Config] tree, see [Policy] and [Fields].
package deepdiff

import (
	"encoding/json"
	"fmt"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// MarshalJSON encodes an absent value as null, JSON has nothing better.
func (undefined) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Undefined marks an absent value. In a change-set it reports a removal.
var Undefined any = undefined{}

// Kind is the variant of a value as seen by the engine.
type Kind uint8

const (
	Absent Kind = iota
	Null
	Boolean
	Number
	String
	Array
	Object
	// Other is anything that is not JSON shaped; it is compared with reflection.
	Other
)

var kindNames = [...]string{
	Absent:  "absent",
	Null:    "null",
	Boolean: "boolean",
	Number:  "number",
	String:  "string",
	Array:   "array",
	Object:  "object",
	Other:   "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// KindOf classifies [v].
func KindOf(v any) Kind {
	switch v.(type) {
	case undefined:
		return Absent
	case nil:
		return Null
	case bool:
		return Boolean
	case string:
		return String
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return Number
	case []any:
		return Array
	case map[string]any:
		return Object
	}
	return Other
}

// Changed reports whether [diff] (as returned by [Diff]) carries any change.
func Changed(diff any) bool {
	if m, ok := diff.(map[string]any); ok {
		return len(m) > 0
	}
	return true
}
