package htmldoc

import (
	"strings"

	"golang.org/x/net/html"

	"mledit/internal/layout"
)

const defaultFontSize = 16

// parseStyle splits an inline style attribute into lower-cased properties.
func parseStyle(style string) map[string]string {
	props := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		props[name] = strings.TrimSpace(value)
	}
	return props
}

func styleOf(n *html.Node) map[string]string {
	return parseStyle(attr(n, "style"))
}

// inherited returns the first declaration of prop on n or its ancestors.
func inherited(n *html.Node, prop string) (string, bool) {
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if v, ok := styleOf(n)[prop]; ok && !strings.EqualFold(v, "inherit") {
			return v, true
		}
	}
	return "", false
}

// measure derives the rendered metrics of n from inline styles. The rendered
// height must be declared on n itself.
func measure(n *html.Node) (layout.Metrics, bool) {
	h, ok := styleOf(n)["height"]
	if !ok {
		return layout.Metrics{}, false
	}
	height := layout.ParseLength(h)

	fontSize := float64(defaultFontSize)
	if v, ok := inherited(n, "font-size"); ok {
		if fs := layout.ParseLength(v); fs > 0 {
			fontSize = fs
		}
	}

	lineHeight := layout.Normal()
	if v, ok := inherited(n, "line-height"); ok {
		lineHeight = layout.ParseLineHeight(v, fontSize)
	}

	return layout.Metrics{
		RenderedHeight: height,
		LineHeight:     lineHeight,
		FontSize:       fontSize,
	}, true
}
