package util

import (
	"slices"
	"strings"
)

// RecordEnv is the environment of a record filter expression.
// Remote is nil for records that do not exist remotely yet, Desired is nil
// for records that only exist remotely.
type RecordEnv struct {
	Kind    string
	ID      string
	Remote  map[string]any
	Desired map[string]any
}

func (e RecordEnv) All() bool {
	return true
}

func (e RecordEnv) None() bool {
	return false
}

// IDs passes the records named by [vals]; no values passes everything.
func (e RecordEnv) IDs(vals ...string) bool {
	if len(vals) == 0 {
		return true
	}
	return slices.Contains(vals, e.ID)
}

// Prefix passes records whose ID starts with any of [prefixes].
func (e RecordEnv) Prefix(prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(e.ID, prefix) {
			return true
		}
	}
	return false
}

// HasField passes records whose desired (or, failing that, remote) state
// carries every one of [keys].
func (e RecordEnv) HasField(keys ...string) bool {
	record := e.Desired
	if record == nil {
		record = e.Remote
	}
	if record == nil {
		return false
	}
	for _, key := range keys {
		if _, exists := record[key]; !exists {
			return false
		}
	}
	return true
}

// Field returns the string form of a top-level field of the desired (or remote)
// state, or "" when it is absent.
func (e RecordEnv) Field(key string) string {
	record := e.Desired
	if record == nil {
		record = e.Remote
	}
	value, _ := ExtractString(record, key)
	return value
}

// Exists passes records that exist remotely.
func (e RecordEnv) Exists() bool {
	return e.Remote != nil
}
