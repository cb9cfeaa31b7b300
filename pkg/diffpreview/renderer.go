package diffpreview

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type RenderOptions struct {
	Options

	IndentSize                int
	EnableBackgroundHighlight bool
	// Markers prefixes each line with +, - or ~ for output without color.
	Markers bool
}

var DefaultRenderOptions = RenderOptions{
	Options:                   Options{MarkRemovals: true},
	IndentSize:                2,
	EnableBackgroundHighlight: true,
}

func RenderYAML(node *AnnotatedNode, theme Theme, opts RenderOptions) string {
	var sb strings.Builder
	renderNode(&sb, node, theme, opts, 0)
	return sb.String()
}

func renderNode(sb *strings.Builder, node *AnnotatedNode, theme Theme, opts RenderOptions, indent int) {
	space := strings.Repeat(" ", indent*opts.IndentSize)

	if node.Children != nil {
		for _, key := range sortKeys(node) {
			child := node.Children[key]

			label := key
			if node.list {
				label = fmt.Sprintf("[%d]", child.Index)
			}
			keyStr := theme.SyntaxHighlight("key", label) + ":"
			if opts.EnableBackgroundHighlight {
				keyStr = theme.BackgroundHighlight(child.Change, keyStr)
			}

			mark := marker(child.Change, opts)
			sb.WriteString(mark + space + keyStr)

			if child.Children == nil {
				sb.WriteString(" ")
				renderValue(sb, child, theme, opts, indent+1, mark)
			} else {
				sb.WriteString("\n")
				renderNode(sb, child, theme, opts, indent+1)
			}
		}
	} else {
		renderValue(sb, node, theme, opts, indent+1, marker(node.Change, opts))
	}
}

func renderValue(sb *strings.Builder, node *AnnotatedNode, theme Theme, opts RenderOptions, indent int, mark string) {
	switch v := node.Value.(type) {
	case map[string]any:
		sb.WriteString("\n")
		renderInlineMap(sb, v, theme, opts, indent, mark)
	case []any:
		sb.WriteString("\n")
		renderInlineList(sb, v, theme, opts, indent, mark)
	default:
		content := scalar(v, theme)
		content = maybeHighlightBackground(content, node.Change, theme, opts)
		sb.WriteString(content + "\n")
	}
}

func renderInlineMap(sb *strings.Builder, m map[string]any, theme Theme, opts RenderOptions, indent int, mark string) {
	space := strings.Repeat(" ", indent*opts.IndentSize)

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sb.WriteString(mark + space + theme.SyntaxHighlight("key", k) + ":")
		renderInline(sb, m[k], theme, opts, indent, mark)
	}
}

func renderInlineList(sb *strings.Builder, list []any, theme Theme, opts RenderOptions, indent int, mark string) {
	space := strings.Repeat(" ", indent*opts.IndentSize)
	for _, item := range list {
		sb.WriteString(mark + space + "-")
		renderInline(sb, item, theme, opts, indent, mark)
	}
}

func renderInline(sb *strings.Builder, val any, theme Theme, opts RenderOptions, indent int, mark string) {
	switch v := val.(type) {
	case map[string]any:
		sb.WriteString("\n")
		renderInlineMap(sb, v, theme, opts, indent+1, mark)
	case []any:
		sb.WriteString("\n")
		renderInlineList(sb, v, theme, opts, indent+1, mark)
	default:
		sb.WriteString(" " + scalar(v, theme) + "\n")
	}
}

func scalar(v any, theme Theme) string {
	switch v := v.(type) {
	case string:
		return theme.SyntaxHighlight("string", fmt.Sprintf("%q", v))
	case bool:
		return theme.SyntaxHighlight("bool", fmt.Sprintf("%v", v))
	case json.Number, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return theme.SyntaxHighlight("number", fmt.Sprintf("%v", v))
	case nil:
		return theme.SyntaxHighlight("null", "null")
	default:
		// Undefined and non-JSON values
		return fmt.Sprintf("%v", v)
	}
}

func marker(change ChangeType, opts RenderOptions) string {
	if !opts.Markers {
		return ""
	}
	return change.Marker() + " "
}

func maybeHighlightBackground(content string, change ChangeType, theme Theme, opts RenderOptions) string {
	if opts.EnableBackgroundHighlight {
		return theme.BackgroundHighlight(change, content)
	}
	return content
}

func sortKeys(node *AnnotatedNode) []string {
	keys := make([]string, 0, len(node.Children))
	for k := range node.Children {
		keys = append(keys, k)
	}
	if node.list {
		sort.Slice(keys, func(i, j int) bool {
			return node.Children[keys[i]].Index < node.Children[keys[j]].Index
		})
	} else {
		sort.Strings(keys)
	}
	return keys
}
