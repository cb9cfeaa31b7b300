// Package policy reads comparison configurations from YAML or JSON files and
// holds the built-in ones of the catalog kinds.
//
// A policy file is a tree of field names. A mapping that carries any of the
// option keys (unique_by, preserve_order, ignore_undefined, ignore_keys,
// omit_unchanged_keys, omit_unchanged_elements) is a leaf policy; its other
// keys configure the children of that path. Any other mapping just descends:
//
//	meta_data:
//	  unique_by: key
//	images:
//	  unique_by: id
//	  ignore_keys: [date_created, date_modified]
//	dimensions:
//	  width:
//	    ignore_undefined: true
package policy

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

var ErrInvalidPolicy = errors.New("invalid policy")

const fieldsKey = "fields"

var optionKeys = sets.New(
	"unique_by",
	"preserve_order",
	"ignore_undefined",
	"ignore_keys",
	"omit_unchanged_keys",
	"omit_unchanged_elements",
)

// Load reads the policy file at [path].
func Load(path string) (deepdiff.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML (or JSON) policy document. An empty document yields a
// nil Config.
func Parse(data []byte) (deepdiff.Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if raw == nil {
		return nil, nil
	}
	return FromMap(raw)
}

// FromMap converts a decoded policy tree into a Config.
func FromMap(raw map[string]any) (deepdiff.Config, error) {
	return build(nil, raw)
}

func build(path []string, node map[string]any) (deepdiff.Config, error) {
	fail := func(format string, args ...any) error {
		where := "(root)"
		if len(path) > 0 {
			where = fmt.Sprint(path)
		}
		return fmt.Errorf("%w: %s: %s", ErrInvalidPolicy, where, fmt.Sprintf(format, args...))
	}

	options := make(map[string]any)
	children := make(map[string]any)
	for key, value := range node {
		switch {
		case optionKeys.Has(key):
			options[key] = value
		case key == fieldsKey:
			nested, ok := value.(map[string]any)
			if !ok {
				return nil, fail("%q must be a mapping", fieldsKey)
			}
			maps.Copy(children, nested)
		default:
			children[key] = value
		}
	}

	fields := make(deepdiff.Fields, len(children))
	for _, key := range slices.Sorted(maps.Keys(children)) {
		child, ok := children[key].(map[string]any)
		if !ok {
			return nil, fail("field %q must be a mapping, got %T", key, children[key])
		}
		cfg, err := build(append(slices.Clone(path), key), child)
		if err != nil {
			return nil, err
		}
		fields[key] = cfg
	}

	if len(options) == 0 {
		return fields, nil
	}

	p := &deepdiff.Policy{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      p,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fail("%v", err)
	}
	if len(fields) > 0 {
		p.Fields = fields
	}
	return p, nil
}

// ToMap is the inverse of [FromMap], for printing a Config.
func ToMap(cfg deepdiff.Config) map[string]any {
	switch c := cfg.(type) {
	case deepdiff.Fields:
		out := make(map[string]any, len(c))
		for key, child := range c {
			out[key] = ToMap(child)
		}
		return out
	case *deepdiff.Policy:
		if c == nil {
			return nil
		}
		out := ToMap(c.Fields)
		if out == nil {
			out = make(map[string]any)
		}
		if c.UniqueBy != "" {
			out["unique_by"] = c.UniqueBy
		}
		if c.PreserveOrder {
			out["preserve_order"] = true
		}
		if c.IgnoreUndefined {
			out["ignore_undefined"] = true
		}
		if len(c.IgnoreKeys) > 0 {
			out["ignore_keys"] = slices.Clone(c.IgnoreKeys)
		}
		if c.OmitUnchangedKeys != nil {
			out["omit_unchanged_keys"] = *c.OmitUnchangedKeys
		}
		if c.OmitUnchangedElements != nil {
			out["omit_unchanged_elements"] = *c.OmitUnchangedElements
		}
		return out
	}
	return nil
}
