// Package document defines the view of the host application's page that the
// scanner and editor session work against. The host owns every element; this
// module only reads values, marks elements it has augmented, and writes values
// back through a commit primitive.
package document

import (
	"errors"

	"mledit/internal/layout"
)

// Errors returned by document backends.
var (
	// ErrDetached is returned when an element is no longer part of the
	// document, typically because the host re-rendered it.
	ErrDetached = errors.New("document: element detached")

	// ErrForeignElement is returned when an element from another document is
	// passed to a backend.
	ErrForeignElement = errors.New("document: element belongs to another document")
)

// Element is a candidate node in the host document.
type Element interface {
	// Key is a human-readable identity for logs and listings. It is stable
	// for the lifetime of the element.
	Key() string

	// Marked reports whether an affordance has already been attached.
	Marked() bool

	// Mark sets the augmentation marker.
	Mark()

	// Attached reports whether the element is still part of the document.
	Attached() bool
}

// Field is a write-capable text input owned by the host application.
type Field interface {
	Element

	// Value returns the live raw value.
	Value() string
}

// Cell is a read-only tabular cell.
type Cell interface {
	Element

	// Text returns the cell's raw value.
	Text() string

	// Metrics returns the rendered measurements of the cell's content. The
	// second result is false when the cell has no measurable content.
	Metrics() (layout.Metrics, bool)
}

// Document yields the elements currently matched by the configured rules.
// Implementations must tolerate concurrent mutation of the underlying page.
type Document interface {
	Fields() []Field
	Cells() []Cell
}

// ChangeEvent describes a value committed into a field.
type ChangeEvent struct {
	Key      string
	OldValue string
	NewValue string
}

// ChangeFunc is notified after a value has been committed, the way a host
// application observes an input event.
type ChangeFunc func(ChangeEvent)
