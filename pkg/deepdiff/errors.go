package deepdiff

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfig is matched by every configuration error, see [ConfigError].
var ErrConfig = errors.New("invalid comparison configuration")

var (
	ErrMissingIdentity       = errors.New("unique_by field missing")
	ErrNotObject             = errors.New("element is not an object")
	ErrDuplicateIdentity     = errors.New("duplicate unique_by value")
	ErrNonComparableIdentity = errors.New("unique_by value is not a scalar")
)

// Side tells which input an error was found in.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ConfigError is returned when a keyed array cannot be matched up, because an
// element is not an object or its unique_by value is missing or unusable.
type ConfigError struct {
	// Path of the array in the document.
	Path []string
	// Side is the input the offending element belongs to.
	Side Side
	// Index of the offending element.
	Index int
	// UniqueBy is the configured identity field.
	UniqueBy string
	// Value is the identity value, if there was one.
	Value any
	// Err is one of the Err* sentinels of this package.
	Err error
}

func (e *ConfigError) Error() string {
	path := strings.Join(e.Path, ".")
	if path == "" {
		path = "(root)"
	}
	msg := fmt.Sprintf("%s: %s array %q element %d (unique_by %q)", ErrConfig, e.Side, path, e.Index, e.UniqueBy)
	if e.Value != nil {
		msg += fmt.Sprintf(" value %v", e.Value)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfig, e.Err}
}
