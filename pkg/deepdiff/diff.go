package deepdiff

import (
	"maps"
	"slices"
	"strconv"
)

// Diff returns the minimal change-set required to transform [left] into [right]
// under [cfg]. If nothing differs it returns an empty map (never nil).
//
//	left := map[string]any{"a": 1, "b": map[string]any{"c": false}}
//	right := map[string]any{"a": 1, "b": map[string]any{"c": true}}
//	deepdiff.Diff(left, right, nil) // {"b": {"c": true}}
//
// Diff is right-driven: keys only present on the left are not reported unless
// [right] sets them to [Undefined] (see [MarkRemovals]). Neither input is
// modified and the change-set shares no maps or slices with [left].
//
// The only error is a [*ConfigError] for keyed arrays that cannot be matched up.
func Diff(left, right any, cfg Config) (any, error) {
	d := &differ{}
	out, changed, err := d.diff(left, right, cfg)
	if err != nil {
		return nil, err
	}
	if !changed {
		return map[string]any{}, nil
	}
	return out, nil
}

// differ tracks the current path for error reporting. One differ per call.
type differ struct {
	path []string
}

func (d *differ) push(segment string) {
	d.path = append(d.path, segment)
}

func (d *differ) pop() {
	d.path = d.path[:len(d.path)-1]
}

// diff dispatches on the kind of [right]. The boolean is false when nothing
// differs; a change may legitimately be nil (null) or Undefined (removal).
func (d *differ) diff(left, right any, cfg Config) (any, bool, error) {
	switch KindOf(right) {
	case Array:
		return d.diffArray(left, right.([]any), cfg)
	case Object:
		return d.diffObject(left, right.(map[string]any), cfg, true)
	}
	if Equal(left, right) {
		return nil, false, nil
	}
	return right, true, nil
}

func (d *differ) diffObject(left any, right map[string]any, cfg Config, omitUnchangedDefault bool) (any, bool, error) {
	leftObj, ok := left.(map[string]any)
	if !ok {
		return Clone(right), true, nil
	}

	p := policyOf(cfg)
	ignored := p.ignored()
	skipUndefined := p != nil && p.IgnoreUndefined

	out := make(map[string]any)
	// sorted so that the first configuration error is always the same one
	for _, key := range slices.Sorted(maps.Keys(right)) {
		if ignored.Has(key) {
			continue
		}
		rightValue := right[key]
		if skipUndefined && rightValue == Undefined {
			continue
		}
		leftValue, found := leftObj[key]
		if !found {
			leftValue = Undefined
		}

		d.push(key)
		sub, changed, err := d.diff(leftValue, rightValue, childOf(cfg, key))
		d.pop()
		if err != nil {
			return nil, false, err
		}
		if changed && !isEmptyObject(sub) {
			out[key] = sub
		}
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	if !p.omitUnchangedKeys(omitUnchangedDefault) {
		return Clone(right), true, nil
	}
	return out, true, nil
}

func (d *differ) diffArray(left any, right []any, cfg Config) (any, bool, error) {
	leftArr, ok := left.([]any)
	if !ok {
		return Clone(right), true, nil
	}
	if p := policyOf(cfg); p.keyed() {
		return d.diffKeyed(leftArr, right, p)
	}

	if len(leftArr) != len(right) {
		return Clone(right), true, nil
	}
	elemCfg := elementConfig(cfg)
	out := make([]any, len(right))
	anyChanged := false
	for i := range right {
		d.push(strconv.Itoa(i))
		sub, changed, err := d.diff(leftArr[i], right[i], elemCfg)
		d.pop()
		if err != nil {
			return nil, false, err
		}
		if changed {
			out[i] = sub
			anyChanged = true
		} else {
			out[i] = Undefined
		}
	}
	if !anyChanged {
		return nil, false, nil
	}
	return out, true, nil
}

// diffKeyed matches elements by their UniqueBy value. It reports changed and
// new elements in right's order; elements that only exist on the left are not
// reported.
func (d *differ) diffKeyed(left, right []any, p *Policy) (any, bool, error) {
	byID, err := d.index(left, p.UniqueBy, SideLeft)
	if err != nil {
		return nil, false, err
	}
	if _, err := d.index(right, p.UniqueBy, SideRight); err != nil {
		return nil, false, err
	}

	elemCfg := elementConfig(p)
	omitKeys := p.omitUnchangedKeys(false)
	omitElements := p.omitUnchangedElements()

	out := make([]any, 0, len(right))
	anyChanged := false
	for i, element := range right {
		rightObj := element.(map[string]any)
		id, _ := identityOf(rightObj[p.UniqueBy])
		leftObj, found := byID[id]
		if !found {
			out = append(out, Clone(rightObj))
			anyChanged = true
			continue
		}

		d.push(strconv.Itoa(i))
		sub, changed, err := d.diffObject(leftObj, rightObj, elemCfg, true)
		d.pop()
		if err != nil {
			return nil, false, err
		}

		switch {
		case changed && omitKeys:
			sparse := sub.(map[string]any)
			sparse[p.UniqueBy] = Clone(rightObj[p.UniqueBy])
			out = append(out, sparse)
			anyChanged = true
		case changed:
			out = append(out, Clone(rightObj))
			anyChanged = true
		case !omitElements:
			out = append(out, Clone(rightObj))
		case p.PreserveOrder:
			out = append(out, Undefined)
		}
	}
	if !anyChanged {
		return nil, false, nil
	}
	return out, true, nil
}

// index maps the identity of every element of [arr] to the element. It fails
// on anything that would make the correspondence between both sides ambiguous.
func (d *differ) index(arr []any, uniqueBy string, side Side) (map[any]map[string]any, error) {
	byID := make(map[any]map[string]any, len(arr))
	for i, element := range arr {
		fail := func(value any, err error) error {
			return &ConfigError{
				Path:     slices.Clone(d.path),
				Side:     side,
				Index:    i,
				UniqueBy: uniqueBy,
				Value:    value,
				Err:      err,
			}
		}

		obj, ok := element.(map[string]any)
		if !ok {
			return nil, fail(nil, ErrNotObject)
		}
		raw, found := obj[uniqueBy]
		if !found || raw == Undefined {
			return nil, fail(nil, ErrMissingIdentity)
		}
		id, ok := identityOf(raw)
		if !ok {
			return nil, fail(raw, ErrNonComparableIdentity)
		}
		if _, dup := byID[id]; dup {
			return nil, fail(raw, ErrDuplicateIdentity)
		}
		byID[id] = obj
	}
	return byID, nil
}

// identityOf turns an identity value into a map key. Numbers are normalised so
// that 7, int64(7) and 7.0 name the same record, while distinct large integers
// stay distinct.
func identityOf(v any) (any, bool) {
	switch KindOf(v) {
	case Null, Boolean, String:
		return v, true
	case Number:
		return normalizeNumber(v)
	}
	return nil, false
}

func isEmptyObject(v any) bool {
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}
