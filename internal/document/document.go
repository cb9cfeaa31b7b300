// Package document reads and writes the JSON-shaped records the diff engine
// works on. JSON, JSON5 and YAML are supported.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"

	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNotRecords        = errors.New("document does not hold records")
)

type Format string

const (
	JSON  Format = "json"
	JSON5 Format = "json5"
	YAML  Format = "yaml"
)

// FormatOf guesses the format from the file extension of [path].
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".json5":
		return JSON5, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}

// Load reads and decodes the file at [path]; "-" reads JSON from stdin.
func Load(path string) (any, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		return Decode(data, JSON)
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Decode decodes [data] into engine values: map[string]any, []any, string,
// float64 (int for YAML integers), bool and nil.
func Decode(data []byte, format Format) (any, error) {
	var v any
	switch format {
	case JSON:
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case JSON5:
		if err := json5.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case YAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return normalizeYAML(v), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// normalizeYAML turns the map[any]any produced for non-string keys into
// map[string]any so the engine sees an object.
func normalizeYAML(v any) any {
	switch value := v.(type) {
	case map[string]any:
		for key, sub := range value {
			value[key] = normalizeYAML(sub)
		}
		return value
	case map[any]any:
		out := make(map[string]any, len(value))
		for key, sub := range value {
			out[fmt.Sprint(key)] = normalizeYAML(sub)
		}
		return out
	case []any:
		for i, sub := range value {
			value[i] = normalizeYAML(sub)
		}
		return value
	}
	return v
}

// Encode writes [v] to [w]. Undefined values are written as null.
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case JSON, JSON5:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(deepdiff.Export(v)); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Records returns the objects of a decoded document: the elements of a
// top-level array, or the document itself when it is a single object.
func Records(v any) ([]map[string]any, error) {
	switch value := v.(type) {
	case map[string]any:
		return []map[string]any{value}, nil
	case []any:
		out := make([]map[string]any, 0, len(value))
		for i, element := range value {
			record, ok := element.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %s", ErrNotRecords, i, deepdiff.KindOf(element))
			}
			out = append(out, record)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: top level is %s", ErrNotRecords, deepdiff.KindOf(v))
}

// LoadRecords is [Load] followed by [Records].
func LoadRecords(path string) ([]map[string]any, error) {
	v, err := Load(path)
	if err != nil {
		return nil, err
	}
	records, err := Records(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// WriteFile encodes [v] into [path], choosing the format from its extension.
func WriteFile(path string, v any) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, v, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
