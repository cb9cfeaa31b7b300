package deepdiff

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"

	"github.com/spf13/cast"
)

// Equal reports whether [a] and [b] are structurally equal.
// Numbers are equal when their numeric values are, whatever their Go type.
func Equal(a, b any) bool {
	// tight paths for the common scalar cases, no reflection involved
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case float64:
		if vb, ok := b.(float64); ok {
			return va == vb
		}
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	case nil:
		return b == nil
	}

	kindA, kindB := KindOf(a), KindOf(b)
	if kindA != kindB {
		return false
	}
	switch kindA {
	case Absent:
		return true
	case Number:
		return numbersEqual(a, b)
	case Array:
		arrA, arrB := a.([]any), b.([]any)
		if len(arrA) != len(arrB) {
			return false
		}
		for i := range arrA {
			if !Equal(arrA[i], arrB[i]) {
				return false
			}
		}
		return true
	case Object:
		mapA, mapB := a.(map[string]any), b.(map[string]any)
		if len(mapA) != len(mapB) {
			return false
		}
		for key, valueA := range mapA {
			valueB, ok := mapB[key]
			if !ok || !Equal(valueA, valueB) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func numbersEqual(a, b any) bool {
	if a == b {
		return true
	}
	na, okA := normalizeNumber(a)
	nb, okB := normalizeNumber(b)
	return okA && okB && na == nb
}

// normalizeNumber maps a number to a comparable canonical form: int64 when the
// value is an integer that fits, uint64 for larger positive integers, float64
// otherwise. Integers are never routed through float64.
func normalizeNumber(v any) (any, bool) {
	switch n := v.(type) {
	case int, int8, int16, int32, int64:
		i, err := cast.ToInt64E(n)
		return i, err == nil
	case uint, uint8, uint16, uint32, uint64:
		u, err := cast.ToUint64E(n)
		if err != nil {
			return nil, false
		}
		return normalizeUint(u), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return normalizeUint(u), true
		}
		f, err := n.Float64()
		if err != nil {
			return nil, false
		}
		return normalizeFloat(f), true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, false
	}
	return normalizeFloat(f), true
}

func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

// normalizeFloat folds integral floats onto the integer forms so that 7.0
// equals int64(7).
func normalizeFloat(f float64) any {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return f
	}
	switch {
	case f >= -(1<<63) && f < 1<<63:
		return int64(f)
	case f >= 0 && f < 1<<64:
		return uint64(f)
	}
	return f
}
