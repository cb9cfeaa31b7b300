package policy

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

var ErrUnknownKind = errors.New("unknown record kind")

// Kind is a kind of catalog record.
type Kind string

const (
	Product  Kind = "product"
	Category Kind = "category"
	Tag      Kind = "tag"
)

var kinds = []Kind{Product, Category, Tag}

// Kinds lists the known record kinds.
func Kinds() []Kind {
	return slices.Clone(kinds)
}

// ParseKind validates [s] as a [Kind].
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !slices.Contains(kinds, k) {
		return "", fmt.Errorf("%w: %q (expected one of %v)", ErrUnknownKind, s, kinds)
	}
	return k, nil
}

func (k Kind) String() string { return string(k) }

// Identity is the field that names a record of this kind on both sides.
func (k Kind) Identity() string {
	if k == Product {
		return "sku"
	}
	return "slug"
}

var mediaTimestamps = []string{"date_created", "date_created_gmt", "date_modified", "date_modified_gmt"}

// Policy returns a fresh copy of the built-in comparison policy of the kind.
func (k Kind) Policy() deepdiff.Config {
	switch k {
	case Product:
		return deepdiff.Fields{
			"meta_data":  &deepdiff.Policy{UniqueBy: "key"},
			"images":     &deepdiff.Policy{UniqueBy: "id"},
			"tags":       &deepdiff.Policy{UniqueBy: "id"},
			"categories": &deepdiff.Policy{UniqueBy: "id"},
		}
	case Category:
		return deepdiff.Fields{
			"image": &deepdiff.Policy{IgnoreKeys: slices.Clone(mediaTimestamps)},
		}
	}
	return nil
}

// CreateDefaults are merged under the desired fields of a record that does not
// exist remotely yet.
func (k Kind) CreateDefaults() map[string]any {
	if k != Product {
		return nil
	}
	return map[string]any{
		"type":              "simple",
		"status":            "private",
		"virtual":           true,
		"sold_individually": true,
	}
}
