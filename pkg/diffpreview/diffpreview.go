// Package diffpreview renders the change-set between two values as a
// colored, YAML-like tree.
package diffpreview

import "github.com/mwoo-bridge/mwoo/pkg/deepdiff"

// Render renders a YAML-like diff view between a and b
func Render(a, b any, cfg deepdiff.Config, theme Theme) (string, error) {
	return RenderWithOptions(a, b, cfg, theme, DefaultRenderOptions)
}

// RenderWithOptions renders a YAML-like diff view with custom options
func RenderWithOptions(a, b any, cfg deepdiff.Config, theme Theme, opts RenderOptions) (string, error) {
	node, err := Diff(a, b, cfg, opts.Options)
	if err != nil {
		return "", err
	}
	return RenderYAML(node, theme, opts), nil
}
