package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"mledit/internal/document"
	"mledit/internal/layout"
)

type element struct {
	doc  *Document
	node *html.Node
	key  string
}

func (e element) Key() string {
	return e.key
}

func (e element) Marked() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return hasAttr(e.node, e.doc.rules.marker)
}

func (e element) Mark() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setAttr(e.node, e.doc.rules.marker, "true")
}

func (e element) Attached() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.doc.attachedLocked(e.node)
}

// Field is a text input of the page.
type Field struct {
	element
}

var _ document.Field = (*Field)(nil)

// Value returns the input's value attribute.
func (f *Field) Value() string {
	f.doc.mu.RLock()
	defer f.doc.mu.RUnlock()
	return attr(f.node, "value")
}

// Cell is a table cell of the page.
type Cell struct {
	element
	content *html.Node
}

var _ document.Cell = (*Cell)(nil)

// Text returns the cell's value attribute, or the text of its content
// element when the attribute is missing or empty.
func (c *Cell) Text() string {
	c.doc.mu.RLock()
	defer c.doc.mu.RUnlock()
	if name := c.doc.rules.cellValueAttr; name != "" {
		if v := attr(c.node, name); v != "" {
			return v
		}
	}
	if c.content == nil {
		return ""
	}
	return textContent(c.content)
}

// Metrics returns the inline-style measurements of the content element.
func (c *Cell) Metrics() (layout.Metrics, bool) {
	if c.content == nil {
		return layout.Metrics{}, false
	}
	c.doc.mu.RLock()
	defer c.doc.mu.RUnlock()
	return measure(c.content)
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

type strippedAttr struct {
	node  *html.Node
	attrs []html.Attribute
}

// stripAttr removes name from every element under root and returns what is
// needed to put it back.
func stripAttr(root *html.Node, name string) []strippedAttr {
	var out []strippedAttr
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasAttr(n, name) {
			out = append(out, strippedAttr{node: n, attrs: n.Attr})
			kept := make([]html.Attribute, 0, len(n.Attr)-1)
			for _, a := range n.Attr {
				if a.Namespace != "" || a.Key != name {
					kept = append(kept, a)
				}
			}
			n.Attr = kept
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func restoreAttrs(stripped []strippedAttr) {
	for _, s := range stripped {
		s.node.Attr = s.attrs
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// nodeKey names n by id when it has one, and by its element path otherwise.
// Same-tag siblings are told apart with a 1-based index.
func nodeKey(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return n.Data + "#" + id
	}
	var parts []string
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if p.Data == "html" {
			break
		}
		if id := attr(p, "id"); id != "" && p != n {
			parts = append(parts, p.Data+"#"+id)
			break
		}
		parts = append(parts, p.Data+siblingIndex(p))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ">")
}

func siblingIndex(n *html.Node) string {
	if n.Parent == nil {
		return ""
	}
	index, count := 0, 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != n.Data {
			continue
		}
		count++
		if c == n {
			index = count
		}
	}
	if count < 2 {
		return ""
	}
	return fmt.Sprintf("[%d]", index)
}
