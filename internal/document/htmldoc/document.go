// Package htmldoc implements the document view over an HTML file. The file
// stands in for the host application's rendered page: reloading it replaces
// the tree the way a host re-render replaces its nodes.
package htmldoc

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mledit/internal/document"
	"mledit/internal/logging"
)

// Document is an HTML page parsed into a mutable tree.
type Document struct {
	mu        sync.RWMutex
	path      string
	rules     *Rules
	root      *html.Node
	hash      [32]byte
	listeners []document.ChangeFunc
	logger    *slog.Logger
}

var _ document.Document = (*Document)(nil)

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger used for reload and commit events.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		d.logger = l
	}
}

func newDocument(rules *Rules, opts []Option) *Document {
	if rules == nil {
		rules = DefaultRules()
	}
	d := &Document{rules: rules}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.Default().WithComponent("htmldoc").Logger
	}
	return d
}

// Parse reads a document from r. The result has no backing file.
func Parse(r io.Reader, rules *Rules, opts ...Option) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	d := newDocument(rules, opts)
	if err := d.replace(data); err != nil {
		return nil, err
	}
	return d, nil
}

// Open parses the HTML file at path.
func Open(path string, rules *Rules, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	d := newDocument(rules, opts)
	d.path = path
	if err := d.replace(data); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the backing file, or "" for parsed documents.
func (d *Document) Path() string {
	return d.path
}

func (d *Document) replace(data []byte) error {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	d.mu.Lock()
	d.root = root
	d.hash = sha256.Sum256(data)
	d.mu.Unlock()
	return nil
}

// Reload re-reads the backing file. Every element obtained before a reload
// that changed the content is detached afterwards. Reload reports whether the
// content changed.
func (d *Document) Reload() (bool, error) {
	if d.path == "" {
		return false, nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return false, fmt.Errorf("reload document: %w", err)
	}

	d.mu.RLock()
	unchanged := sha256.Sum256(data) == d.hash
	d.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	if err := d.replace(data); err != nil {
		return false, err
	}
	d.logger.Debug("document reloaded", "path", d.path, "bytes", len(data))
	return true, nil
}

// WriteTo renders the document. Augmentation markers are not written.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf bytes.Buffer
	if err := d.render(&buf); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

func (d *Document) render(buf *bytes.Buffer) error {
	stripped := stripAttr(d.root, d.rules.marker)
	defer restoreAttrs(stripped)
	if err := html.Render(buf, d.root); err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	return nil
}

// Save writes the document back to its file through a temporary file in the
// same directory.
func (d *Document) Save() error {
	if d.path == "" {
		return fmt.Errorf("save document: no backing file")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var buf bytes.Buffer
	if err := d.render(&buf); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".mledit-*.html")
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("save document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("save document: %w", err)
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("save document: %w", err)
	}

	d.hash = sha256.Sum256(buf.Bytes())
	return nil
}

// OnChange registers a listener notified after every commit.
func (d *Document) OnChange(fn document.ChangeFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Commit writes value into the field's input and notifies change listeners.
func (d *Document) Commit(field document.Field, value string) error {
	f, ok := field.(*Field)
	if !ok || f.doc != d {
		return document.ErrForeignElement
	}

	d.mu.Lock()
	if !d.attachedLocked(f.node) {
		d.mu.Unlock()
		return document.ErrDetached
	}
	old := attr(f.node, "value")
	setAttr(f.node, "value", value)
	listeners := append([]document.ChangeFunc(nil), d.listeners...)
	d.mu.Unlock()

	d.logger.Debug("value committed", "field", f.key, "bytes", len(value))

	ev := document.ChangeEvent{Key: f.key, OldValue: old, NewValue: value}
	for _, fn := range listeners {
		fn(ev)
	}
	return nil
}

// Fields returns the inputs matched by label text or aria-label, in that
// order, without duplicates.
func (d *Document) Fields() []document.Field {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var fields []document.Field
	seen := make(map[*html.Node]bool)
	add := func(n *html.Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		fields = append(fields, &Field{element: d.element(n)})
	}

	r := d.rules
	if r.labelText != "" {
		for _, label := range r.label.MatchAll(d.root) {
			if d.labelText(label) != r.labelText {
				continue
			}
			fc := closest(label, r.formControl.Match)
			if fc == nil {
				continue
			}
			add(r.input.MatchFirst(fc))
		}
	}
	if r.ariaLabel != "" {
		for _, n := range r.input.MatchAll(d.root) {
			if attr(n, "aria-label") == r.ariaLabel {
				add(n)
			}
		}
	}
	return fields
}

// labelText returns the text of the label's first text selector match, or
// the label's own text when that is empty.
func (d *Document) labelText(label *html.Node) string {
	if sel := d.rules.labelTextSel; sel != nil {
		if n := sel.MatchFirst(label); n != nil && n != label {
			if t := strings.TrimSpace(textContent(n)); t != "" {
				return t
			}
		}
	}
	return strings.TrimSpace(textContent(label))
}

// Cells returns the configured cell of every matched row.
func (d *Document) Cells() []document.Cell {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var cells []document.Cell
	for _, row := range d.rules.row.MatchAll(d.root) {
		cell := nthCell(row, d.rules.cellIndex)
		if cell == nil {
			continue
		}
		var content *html.Node
		if n := d.rules.cellContent.MatchFirst(cell); n != nil && n != cell {
			content = n
		}
		cells = append(cells, &Cell{element: d.element(cell), content: content})
	}
	return cells
}

func (d *Document) element(n *html.Node) element {
	return element{doc: d, node: n, key: nodeKey(n)}
}

func (d *Document) attachedLocked(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

func nthCell(row *html.Node, index int) *html.Node {
	i := 0
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		if i == index {
			return c
		}
		i++
	}
	return nil
}

func closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && match(n) {
			return n
		}
	}
	return nil
}
