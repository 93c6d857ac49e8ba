// Package session implements the single overlay editing context. A session is
// opened on a live field (editable) or on a captured snapshot (read-only),
// presents the classified display form of the value, and on save commits the
// re-serialized text back through a Committer.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"mledit/internal/content"
	"mledit/internal/document"
	"mledit/internal/logging"
	"mledit/internal/metrics"
)

// Errors returned by Session.
var (
	// ErrReadOnly is returned by Save and SetText on a read-only session.
	ErrReadOnly = errors.New("session: read-only")

	// ErrInvalidRequest is returned when a request names both or neither of
	// a field and a snapshot.
	ErrInvalidRequest = errors.New("session: request needs exactly one of field and snapshot")

	// ErrSaving is returned by Save while an earlier save is committing.
	ErrSaving = errors.New("session: save in progress")
)

// Labels shown by surfaces.
const (
	TitleEdit   = "Multiline Editor"
	TitleView   = "View Content"
	LabelSave   = "Save & Close"
	LabelCancel = "Cancel"
	LabelClose  = "Close"
)

// DefaultTabWidth is the number of spaces a tab key press inserts.
const DefaultTabWidth = 4

// Committer writes a value into a host field and signals the change to the
// host application.
type Committer interface {
	Commit(field document.Field, value string) error
}

// CommitterFunc adapts a function to the Committer interface.
type CommitterFunc func(field document.Field, value string) error

// Commit calls f(field, value).
func (f CommitterFunc) Commit(field document.Field, value string) error {
	return f(field, value)
}

// Request describes what to open. Exactly one of Field and Snapshot must be
// set. Snapshots are always read-only.
type Request struct {
	Field    document.Field
	Content  string
	Snapshot bool
	ReadOnly bool
}

// Result describes a completed save.
type Result struct {
	// Committed is false when Save was a no-op.
	Committed bool

	// FieldKey names the field written.
	FieldKey string

	// Value is the text committed.
	Value string

	// Fallback reports that a structured value no longer parsed and was
	// committed verbatim.
	Fallback bool
}

// View is what a surface renders.
type View struct {
	Visible     bool
	Title       string
	Text        string
	ReadOnly    bool
	Kind        content.Kind
	SaveLabel   string
	CancelLabel string
	ShowSave    bool
	Warnings    []string
	FieldKey    string
}

// Session is the single editing context. All methods are safe for concurrent
// use. Committers run without the session lock held and may read the session.
// Listeners are called outside the lock.
type Session struct {
	mu sync.Mutex

	committer  Committer
	classifier content.Classifier
	schema     *content.Schema
	tabWidth   int
	logger     *slog.Logger
	metrics    *metrics.EditorMetrics
	listeners  []func(View)

	open       bool
	field      document.Field
	readOnly   bool
	classified content.Classified
	text       string
	warnings   []string

	gen    uint64 // bumped on every open and close
	saving bool
}

// Option configures a Session.
type Option func(*Session)

// WithClassifier replaces the default classifier.
func WithClassifier(c content.Classifier) Option {
	return func(s *Session) {
		s.classifier = c
	}
}

// WithSchema checks structured values against schema when opened.
// Violations become warnings; they never block saving.
func WithSchema(schema *content.Schema) Option {
	return func(s *Session) {
		s.schema = schema
	}
}

// WithTabWidth sets the number of spaces inserted by InsertTab.
func WithTabWidth(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.tabWidth = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithMetrics sets the metrics the session records to.
func WithMetrics(m *metrics.EditorMetrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// New creates a closed session that commits through committer.
func New(committer Committer, opts ...Option) *Session {
	s := &Session{
		committer:  committer,
		classifier: content.Default,
		tabWidth:   DefaultTabWidth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Default().WithComponent("session").Logger
	}
	if s.metrics == nil {
		s.metrics = metrics.GetMetrics()
	}
	return s
}

// OnChange registers a listener called with the new view after every state
// transition.
func (s *Session) OnChange(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// OpenField opens an editable session on field's live value.
func (s *Session) OpenField(field document.Field) error {
	return s.Open(Request{Field: field})
}

// OpenSnapshot opens a read-only session on text.
func (s *Session) OpenSnapshot(text string) error {
	return s.Open(Request{Content: text, Snapshot: true, ReadOnly: true})
}

// Open populates the session from req and makes it visible. An already open
// session is replaced without saving.
func (s *Session) Open(req Request) error {
	if (req.Field == nil) == !req.Snapshot {
		return ErrInvalidRequest
	}

	raw := req.Content
	readOnly := req.ReadOnly || req.Snapshot
	key := ""
	if req.Field != nil {
		raw = req.Field.Value()
		key = req.Field.Key()
	}

	c := s.classifier.Classify(raw)

	var warnings []string
	if c.Warning != "" {
		warnings = append(warnings, c.Warning)
	}
	if err := s.schema.Check(c); err != nil {
		warnings = append(warnings, fmt.Sprintf("schema %s: %v", s.schema.Path(), err))
	}

	s.mu.Lock()
	if s.open {
		s.metrics.SessionCancelled()
	}
	s.gen++
	s.open = true
	s.field = req.Field
	s.readOnly = readOnly
	s.classified = c
	s.text = c.Display
	s.warnings = warnings
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	s.metrics.SessionOpened()
	if !c.Valid {
		s.logger.Debug("structured value fell back to plain text", "field", key, "warning", c.Warning)
	}
	s.logger.Debug("session opened", "field", key, "kind", c.Kind.String(), "read_only", readOnly)
	notify(listeners, view)
	return nil
}

// SetText replaces the edited text. It is ignored when no session is open.
func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	if s.readOnly {
		return ErrReadOnly
	}
	s.text = text
	return nil
}

// Text returns the current edited text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Indent returns the text a tab key press inserts.
func (s *Session) Indent() string {
	return strings.Repeat(" ", s.tabWidth)
}

// InsertTab replaces the runes in [start, end) with the indent and returns the
// caret position after it. Out of range positions are clamped.
func (s *Session) InsertTab(start, end int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, nil
	}
	if s.readOnly {
		return start, ErrReadOnly
	}
	text, caret := ExpandTab(s.text, start, end, s.tabWidth)
	s.text = text
	return caret, nil
}

// ExpandTab replaces the runes of text in [start, end) with width spaces and
// returns the new text and caret.
func ExpandTab(text string, start, end, width int) (string, int) {
	runes := []rune(text)
	clamp := func(i int) int {
		if i < 0 {
			return 0
		}
		if i > len(runes) {
			return len(runes)
		}
		return i
	}
	start, end = clamp(start), clamp(end)
	if end < start {
		start, end = end, start
	}
	var b strings.Builder
	b.WriteString(string(runes[:start]))
	b.WriteString(strings.Repeat(" ", width))
	b.WriteString(string(runes[end:]))
	return b.String(), start + width
}

// IsOpen reports whether a session is open.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// View returns the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	if !s.open {
		return View{}
	}
	v := View{
		Visible:     true,
		Title:       TitleEdit,
		Text:        s.text,
		ReadOnly:    s.readOnly,
		Kind:        s.classified.Kind,
		SaveLabel:   LabelSave,
		CancelLabel: LabelCancel,
		ShowSave:    !s.readOnly,
		Warnings:    append([]string(nil), s.warnings...),
	}
	if s.field != nil {
		v.FieldKey = s.field.Key()
	}
	if s.readOnly {
		v.Title = TitleView
		v.SaveLabel = ""
		v.CancelLabel = LabelClose
	}
	return v
}

func (s *Session) listenersLocked() []func(View) {
	return append([]func(View){}, s.listeners...)
}

// Cancel discards the edits and closes the session. The field is untouched.
// It is a no-op when no session is open.
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	s.closeLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.metrics.SessionCancelled()
	notify(listeners, View{})
}

// Save commits the edited text and closes the session. Structured values are
// re-serialized; text that no longer parses is committed verbatim. Save is a
// no-op when no session is open. If the commit fails the session stays open.
//
// The commit runs without the session lock. If the session is cancelled or
// replaced meanwhile, the value is still committed but the newer state is
// left alone.
func (s *Session) Save() (Result, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return Result{}, nil
	}
	if s.readOnly || s.field == nil {
		s.mu.Unlock()
		return Result{}, ErrReadOnly
	}
	if s.saving {
		s.mu.Unlock()
		return Result{}, ErrSaving
	}
	s.saving = true
	field, kind, text, gen := s.field, s.classified.Kind, s.text, s.gen
	s.mu.Unlock()

	value, err := content.Serialize(kind, text)
	fallback := errors.Is(err, content.ErrMalformed)
	commitErr := s.committer.Commit(field, value)

	s.mu.Lock()
	s.saving = false
	if commitErr != nil {
		s.mu.Unlock()
		s.metrics.CommitFailed()
		s.logger.Warn("commit failed", "field", field.Key(), "error", commitErr)
		return Result{}, fmt.Errorf("commit %s: %w", field.Key(), commitErr)
	}
	current := s.open && s.gen == gen
	var listeners []func(View)
	if current {
		s.closeLocked()
		listeners = s.listenersLocked()
	}
	s.mu.Unlock()

	if current {
		s.metrics.SessionSaved(fallback)
	} else {
		s.metrics.ValueSaved(fallback)
		s.logger.Debug("session changed during commit", "field", field.Key())
	}
	if fallback {
		s.logger.Warn("edited value is no longer valid JSON; saved as plain text",
			"field", field.Key(), "kind", kind.String())
	}
	s.logger.Info("value saved", "field", field.Key(), "bytes", len(value))
	if current {
		notify(listeners, View{})
	}

	return Result{
		Committed: true,
		FieldKey:  field.Key(),
		Value:     value,
		Fallback:  fallback,
	}, nil
}

func (s *Session) closeLocked() {
	s.gen++
	s.open = false
	s.field = nil
	s.readOnly = false
	s.classified = content.Classified{}
	s.text = ""
	s.warnings = nil
}

func notify(listeners []func(View), v View) {
	for _, fn := range listeners {
		fn(v)
	}
}
