package util

import (
	"strings"

	"github.com/spf13/cast"
)

// ExtractString follows the dotted [path] through nested objects of [obj] and
// returns the value found there as a string. Numbers and booleans are
// converted, anything else (or a missing field) reports false.
func ExtractString(obj map[string]any, path string) (string, bool) {
	var current any = obj
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = m[segment]
		if !ok {
			return "", false
		}
	}
	switch current.(type) {
	case nil, map[string]any, []any:
		return "", false
	}
	s, err := cast.ToStringE(current)
	if err != nil {
		return "", false
	}
	return s, true
}
