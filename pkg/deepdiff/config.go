package deepdiff

import "k8s.io/apimachinery/pkg/util/sets"

// Config describes how values are compared at one path of the tree.
// It is either [Fields] (descend into named fields) or a [*Policy] (leaf options).
// A nil Config selects the defaults everywhere below it.
type Config interface {
	child(key string) Config
	policy() *Policy
}

// Fields maps a field name to the Config used for that field.
type Fields map[string]Config

func (f Fields) child(key string) Config {
	if c, ok := f[key]; ok {
		return c
	}
	return nil
}

func (Fields) policy() *Policy { return nil }

// Policy holds the comparison options for the value at its path.
//
// On an array path the options apply to the array and to each of its elements;
// on an object path they apply to the object's keys. Fields configures the
// children (the object's keys, or the keys of each array element).
type Policy struct {
	// UniqueBy compares the array as a set of records keyed by this field
	// instead of position by position.
	UniqueBy string `json:"unique_by,omitempty" mapstructure:"unique_by"`

	// PreserveOrder keeps the positions of a keyed array in the change-set:
	// unchanged elements become Undefined slots instead of being dropped.
	PreserveOrder bool `json:"preserve_order,omitempty" mapstructure:"preserve_order"`

	// IgnoreUndefined skips fields whose right value is Undefined instead of
	// reporting them as removed.
	IgnoreUndefined bool `json:"ignore_undefined,omitempty" mapstructure:"ignore_undefined"`

	// IgnoreKeys are left out of the comparison entirely.
	IgnoreKeys []string `json:"ignore_keys,omitempty" mapstructure:"ignore_keys"`

	// OmitUnchangedKeys drops unchanged keys of a changed object.
	// Defaults to true for objects and to false for keyed array elements, which
	// are then reported as the full right record. When set on a keyed array,
	// changed elements carry the identity field plus the changed fields only.
	OmitUnchangedKeys *bool `json:"omit_unchanged_keys,omitempty" mapstructure:"omit_unchanged_keys"`

	// OmitUnchangedElements drops unchanged elements of a changed keyed array.
	// Defaults to true. Positional arrays always keep every slot.
	OmitUnchangedElements *bool `json:"omit_unchanged_elements,omitempty" mapstructure:"omit_unchanged_elements"`

	// Fields configures the children of the value at this path.
	Fields Fields `json:"fields,omitempty" mapstructure:"-"`
}

func (p *Policy) child(key string) Config {
	if p == nil || p.Fields == nil {
		return nil
	}
	return p.Fields.child(key)
}

func (p *Policy) policy() *Policy { return p }

// Bool returns a pointer to b, for the tri-state options of [Policy].
func Bool(b bool) *bool {
	return &b
}

func childOf(cfg Config, key string) Config {
	if cfg == nil {
		return nil
	}
	return cfg.child(key)
}

func policyOf(cfg Config) *Policy {
	if cfg == nil {
		return nil
	}
	return cfg.policy()
}

// elementConfig is the Config applied to each element of an array at [cfg].
func elementConfig(cfg Config) Config {
	p := policyOf(cfg)
	if p == nil {
		return cfg
	}
	return &Policy{
		IgnoreUndefined: p.IgnoreUndefined,
		IgnoreKeys:      p.IgnoreKeys,
		Fields:          p.Fields,
	}
}

func (p *Policy) ignored() sets.Set[string] {
	if p == nil || len(p.IgnoreKeys) == 0 {
		return nil
	}
	return sets.New(p.IgnoreKeys...)
}

func (p *Policy) omitUnchangedKeys(def bool) bool {
	if p == nil || p.OmitUnchangedKeys == nil {
		return def
	}
	return *p.OmitUnchangedKeys
}

func (p *Policy) omitUnchangedElements() bool {
	if p == nil || p.OmitUnchangedElements == nil {
		return true
	}
	return *p.OmitUnchangedElements
}

func (p *Policy) keyed() bool {
	return p != nil && p.UniqueBy != ""
}
