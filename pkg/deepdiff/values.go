package deepdiff

// Clone returns a deep copy of [v]. Only maps and slices are copied, scalars
// and non-JSON values are shared.
func Clone(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, sub := range value {
			out[key] = Clone(sub)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, sub := range value {
			out[i] = Clone(sub)
		}
		return out
	}
	return v
}

// MarkRemovals returns a copy of [right] in which every object key that
// exists in [left] but not in [right] is set to [Undefined], so that a
// following [Diff] reports the removal. Arrays of equal length are walked
// position by position.
func MarkRemovals(left, right any) any {
	switch rightValue := right.(type) {
	case map[string]any:
		leftObj, ok := left.(map[string]any)
		if !ok {
			return Clone(right)
		}
		out := make(map[string]any, len(rightValue))
		for key, sub := range rightValue {
			if leftSub, found := leftObj[key]; found {
				out[key] = MarkRemovals(leftSub, sub)
			} else {
				out[key] = Clone(sub)
			}
		}
		for key := range leftObj {
			if _, found := rightValue[key]; !found {
				out[key] = Undefined
			}
		}
		return out
	case []any:
		leftArr, ok := left.([]any)
		if !ok || len(leftArr) != len(rightValue) {
			return Clone(right)
		}
		out := make([]any, len(rightValue))
		for i := range rightValue {
			out[i] = MarkRemovals(leftArr[i], rightValue[i])
		}
		return out
	}
	return right
}

// Export replaces every [Undefined] in [v] with nil, for encoders that do not
// know about it (YAML, msgpack).
func Export(v any) any {
	switch value := v.(type) {
	case undefined:
		return nil
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, sub := range value {
			out[key] = Export(sub)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, sub := range value {
			out[i] = Export(sub)
		}
		return out
	}
	return v
}
