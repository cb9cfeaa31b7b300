package diffpreview

import (
	"maps"
	"slices"
	"strconv"

	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

// ChangeType indicates the kind of change at a node
type ChangeType int

const (
	Unchanged ChangeType = iota
	Added
	Removed
	Modified
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	}
	return "unchanged"
}

// AnnotatedNode represents a node in the annotated tree
type AnnotatedNode struct {
	Value    any
	Change   ChangeType
	Children map[string]*AnnotatedNode
	// Index is set on the children of an array node and orders them.
	Index int
	list  bool
}

// IsList reports whether the children of the node are array slots.
func (n *AnnotatedNode) IsList() bool {
	return n.list
}

// Options controls which nodes [Diff] puts in the tree.
type Options struct {
	// MarkRemovals reports object keys that exist on the left but not on the
	// right as removed (see deepdiff.MarkRemovals).
	MarkRemovals bool
	// Unchanged keeps the unchanged keys of the left value in the tree.
	Unchanged bool
}

// Diff compares two values under [cfg] and builds an annotated tree of the
// change-set.
func Diff(left, right any, cfg deepdiff.Config, opts Options) (*AnnotatedNode, error) {
	if opts.MarkRemovals {
		right = deepdiff.MarkRemovals(left, right)
	}
	changeset, err := deepdiff.Diff(left, right, cfg)
	if err != nil {
		return nil, err
	}
	return Annotate(left, changeset, cfg, opts.Unchanged), nil
}

// Annotate builds the annotated tree of a change-set [chg] of [left], as
// returned by deepdiff.Diff under [cfg]. With [unchanged] set the unchanged
// keys of [left] are kept in the tree.
func Annotate(left, chg any, cfg deepdiff.Config, unchanged bool) *AnnotatedNode {
	b := builder{unchanged: unchanged}
	return b.build(left, chg, cfg)
}

type builder struct {
	unchanged bool
}

// build recursively builds a node tree based on the change-set [chg] of [left].
func (b builder) build(left, chg any, cfg deepdiff.Config) *AnnotatedNode {
	if !deepdiff.Changed(chg) {
		return b.unchangedNode(left)
	}

	switch change := chg.(type) {
	case map[string]any:
		leftMap, ok := left.(map[string]any)
		if !ok {
			return &AnnotatedNode{Value: change, Change: changeOf(left)}
		}
		node := &AnnotatedNode{Children: make(map[string]*AnnotatedNode)}
		if b.unchanged {
			for key, value := range leftMap {
				node.Children[key] = b.unchangedNode(value)
			}
		}
		for key, sub := range change {
			subLeft, found := leftMap[key]
			switch {
			case sub == deepdiff.Undefined:
				node.Children[key] = &AnnotatedNode{Value: subLeft, Change: Removed}
			case !found:
				node.Children[key] = &AnnotatedNode{Value: sub, Change: Added}
			default:
				node.Children[key] = b.build(subLeft, sub, childConfig(cfg, key))
			}
		}
		return node

	case []any:
		leftArr, ok := left.([]any)
		if !ok {
			return &AnnotatedNode{Value: change, Change: changeOf(left)}
		}
		if p, isPolicy := cfg.(*deepdiff.Policy); (isPolicy && p != nil && p.UniqueBy != "") || len(leftArr) != len(change) {
			// keyed or resized arrays are shown whole, as they will be
			merged, err := deepdiff.Apply(leftArr, change, cfg)
			if err != nil {
				merged = change
			}
			return &AnnotatedNode{Value: merged, Change: Modified}
		}
		node := &AnnotatedNode{Children: make(map[string]*AnnotatedNode), list: true}
		elemCfg := elementConfig(cfg)
		for i, sub := range change {
			key := strconv.Itoa(i)
			var child *AnnotatedNode
			if sub == deepdiff.Undefined {
				if !b.unchanged {
					continue
				}
				child = b.unchangedNode(leftArr[i])
			} else {
				child = b.build(leftArr[i], sub, elemCfg)
			}
			child.Index = i
			node.Children[key] = child
		}
		return node
	}

	// Scalar change
	return &AnnotatedNode{Value: chg, Change: changeOf(left)}
}

func changeOf(left any) ChangeType {
	if left == deepdiff.Undefined {
		return Added
	}
	return Modified
}

func (b builder) unchangedNode(val any) *AnnotatedNode {
	if !b.unchanged {
		return &AnnotatedNode{Children: map[string]*AnnotatedNode{}}
	}
	switch v := val.(type) {
	case map[string]any:
		node := &AnnotatedNode{Children: make(map[string]*AnnotatedNode)}
		for k, sub := range v {
			node.Children[k] = b.unchangedNode(sub)
		}
		return node
	default:
		// lists are shown atomic when unchanged
		return &AnnotatedNode{Value: v, Change: Unchanged}
	}
}

// Changes counts the changed leaves of the tree per change type.
func (n *AnnotatedNode) Changes() map[ChangeType]int {
	counts := make(map[ChangeType]int)
	var walk func(*AnnotatedNode)
	walk = func(node *AnnotatedNode) {
		if node.Children == nil {
			if node.Change != Unchanged {
				counts[node.Change]++
			}
			return
		}
		for _, key := range slices.Collect(maps.Keys(node.Children)) {
			walk(node.Children[key])
		}
	}
	walk(n)
	return counts
}

// childConfig and elementConfig mirror how the engine descends a Config.
func childConfig(cfg deepdiff.Config, key string) deepdiff.Config {
	switch c := cfg.(type) {
	case deepdiff.Fields:
		return c[key]
	case *deepdiff.Policy:
		if c != nil && c.Fields != nil {
			return c.Fields[key]
		}
	}
	return nil
}

func elementConfig(cfg deepdiff.Config) deepdiff.Config {
	p, ok := cfg.(*deepdiff.Policy)
	if !ok || p == nil {
		return cfg
	}
	return &deepdiff.Policy{
		IgnoreUndefined: p.IgnoreUndefined,
		IgnoreKeys:      p.IgnoreKeys,
		Fields:          p.Fields,
	}
}
