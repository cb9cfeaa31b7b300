package deepdiff

import (
	"slices"
	"strconv"
)

// Apply returns [left] with the change-set [chg] merged onto it, so that
//
//	left := map[string]any{"a": 1, "b": map[string]any{"c": false}}
//	chg := map[string]any{"b": map[string]any{"c": true}}
//	deepdiff.Apply(left, chg, nil) // {"a":1,"b":{"c":true}}
//
// Objects are merged key by key and an Undefined value deletes the key.
// Positional arrays of equal length are merged slot by slot (Undefined keeps
// the left element), otherwise replaced. Keyed arrays (per [cfg]) merge
// elements with the same identity and append new ones.
// [left] is never modified.
func Apply(left, chg any, cfg Config) (any, error) {
	if !Changed(chg) {
		return Clone(left), nil
	}
	d := &differ{}
	return d.apply(left, chg, cfg)
}

func (d *differ) apply(left, chg any, cfg Config) (any, error) {
	switch KindOf(chg) {
	case Object:
		return d.applyObject(left, chg.(map[string]any), cfg)
	case Array:
		return d.applyArray(left, chg.([]any), cfg)
	}
	return chg, nil
}

func (d *differ) applyObject(left any, chg map[string]any, cfg Config) (any, error) {
	leftObj, ok := left.(map[string]any)
	if !ok {
		return withoutUndefined(chg), nil
	}

	out := make(map[string]any, len(leftObj)+len(chg))
	for key, value := range leftObj {
		out[key] = Clone(value)
	}
	for key, value := range chg {
		if value == Undefined { // deletion
			delete(out, key)
			continue
		}
		base, found := leftObj[key]
		if !found {
			base = Undefined
		}
		d.push(key)
		merged, err := d.apply(base, value, childOf(cfg, key))
		d.pop()
		if err != nil {
			return nil, err
		}
		out[key] = merged
	}
	return out, nil
}

func (d *differ) applyArray(left any, chg []any, cfg Config) (any, error) {
	leftArr, ok := left.([]any)
	if !ok {
		return withoutUndefined(chg), nil
	}
	if p := policyOf(cfg); p.keyed() {
		return d.applyKeyed(leftArr, chg, p)
	}
	if len(leftArr) != len(chg) {
		return withoutUndefined(chg), nil
	}

	elemCfg := elementConfig(cfg)
	out := make([]any, len(chg))
	for i, value := range chg {
		if value == Undefined {
			out[i] = Clone(leftArr[i])
			continue
		}
		d.push(strconv.Itoa(i))
		merged, err := d.apply(leftArr[i], value, elemCfg)
		d.pop()
		if err != nil {
			return nil, err
		}
		out[i] = merged
	}
	return out, nil
}

func (d *differ) applyKeyed(left, chg []any, p *Policy) (any, error) {
	byID, err := d.index(left, p.UniqueBy, SideLeft)
	if err != nil {
		return nil, err
	}
	position := make(map[any]int, len(left))
	for i, element := range left {
		id, _ := identityOf(element.(map[string]any)[p.UniqueBy])
		position[id] = i
	}

	elemCfg := elementConfig(p)
	out := Clone(left).([]any)
	for i, element := range chg {
		if element == Undefined { // unchanged slot of an order preserving diff
			continue
		}
		obj, ok := element.(map[string]any)
		if !ok {
			return nil, &ConfigError{Path: slices.Clone(d.path), Side: SideRight, Index: i, UniqueBy: p.UniqueBy, Err: ErrNotObject}
		}
		raw, found := obj[p.UniqueBy]
		id, ok := identityOf(raw)
		if !found || !ok {
			return nil, &ConfigError{Path: slices.Clone(d.path), Side: SideRight, Index: i, UniqueBy: p.UniqueBy, Err: ErrMissingIdentity}
		}
		base, found := byID[id]
		if !found {
			out = append(out, withoutUndefined(obj))
			continue
		}
		d.push(strconv.Itoa(i))
		merged, err := d.applyObject(base, obj, elemCfg)
		d.pop()
		if err != nil {
			return nil, err
		}
		out[position[id]] = merged
	}
	return out, nil
}

// withoutUndefined clones [v] dropping every Undefined it contains.
func withoutUndefined(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, sub := range value {
			if sub == Undefined {
				continue
			}
			out[key] = withoutUndefined(sub)
		}
		return out
	case []any:
		out := make([]any, 0, len(value))
		for _, sub := range value {
			if sub == Undefined {
				continue
			}
			out = append(out, withoutUndefined(sub))
		}
		return out
	}
	return v
}
