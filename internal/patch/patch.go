// Package patch translates change-sets into RFC 6902 JSON Patch operations.
package patch

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"

	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

// Diff returns a list of operations describing the changes needed to transform [oldObj] into [newObj]
func Diff(oldObj, newObj map[string]any) ([]jsondiff.Operation, error) {
	return jsondiff.Compare(oldObj, newObj)
}

// Operations returns the JSON Patch that turns [remote] into [remote] with the
// change-set [chg] merged onto it (see [deepdiff.Apply]). [cfg] must be the
// Config [chg] was computed with so that keyed arrays are merged by identity.
func Operations(remote map[string]any, chg any, cfg deepdiff.Config) ([]jsondiff.Operation, error) {
	if !deepdiff.Changed(chg) {
		return nil, nil
	}
	merged, err := deepdiff.Apply(remote, chg, cfg)
	if err != nil {
		return nil, err
	}
	target, ok := merged.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("change-set turns the record into %s, not an object", deepdiff.KindOf(merged))
	}
	return Diff(remote, target)
}

// ApplyOperations applies [ops] to the given [base] map and returns the result.
// [base] is not modified.
// TODO: make this more efficient, currently we're juggling between marshaling and unmarshalling
func ApplyOperations(base map[string]any, ops []jsondiff.Operation) (map[string]any, error) {
	baseBytes, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	patchBytes, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	p, err := jsonpatch.DecodePatch(patchBytes)
	if err != nil {
		return nil, fmt.Errorf("cannot decode patch: %w", err)
	}
	patched, err := p.Apply(baseBytes)
	if err != nil {
		return nil, fmt.Errorf("cannot apply patch: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(patched, &out); err != nil {
		return nil, err
	}
	return out, nil
}
