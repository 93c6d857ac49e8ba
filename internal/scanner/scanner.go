// Package scanner discovers candidate elements in a changing document and
// attaches Edit and View affordances to them exactly once per element.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"mledit/internal/config"
	"mledit/internal/document"
	"mledit/internal/logging"
	"mledit/internal/metrics"
)

// DefaultInterval is the sweep period used by Run when none is given.
const DefaultInterval = time.Second

// Kind is the kind of affordance.
type Kind int

const (
	// KindEdit opens an editable session on a field.
	KindEdit Kind = iota
	// KindView opens a read-only session on a cell snapshot.
	KindView
)

// String returns the affordance label.
func (k Kind) String() string {
	switch k {
	case KindEdit:
		return "Edit"
	case KindView:
		return "View"
	default:
		return "unknown"
	}
}

// Opener opens editor sessions. *session.Session implements it.
type Opener interface {
	OpenField(field document.Field) error
	OpenSnapshot(text string) error
}

// Affordance is an action attached to one element.
type Affordance struct {
	ID    int
	Kind  Kind
	Lines int

	element  document.Element
	field    document.Field
	snapshot string
	opener   Opener
}

// Key returns the key of the element the affordance is attached to.
func (a *Affordance) Key() string {
	return a.element.Key()
}

// Attached reports whether the element is still in the document.
func (a *Affordance) Attached() bool {
	return a.element.Attached()
}

// Text returns the live field value for Edit affordances and the captured
// snapshot for View affordances.
func (a *Affordance) Text() string {
	if a.field != nil {
		return a.field.Value()
	}
	return a.snapshot
}

// Field returns the target field of an Edit affordance, or nil.
func (a *Affordance) Field() document.Field {
	return a.field
}

// Open opens the session the affordance is bound to.
func (a *Affordance) Open() error {
	if a.Kind == KindEdit {
		return a.opener.OpenField(a.field)
	}
	return a.opener.OpenSnapshot(a.snapshot)
}

// Options tune a Scanner.
type Options struct {
	// MinCellTextLength is the shortest cell text, in characters, considered
	// for a View affordance.
	MinCellTextLength int

	// MinLineCount is the estimated line count at which a cell gets a View
	// affordance.
	MinLineCount int

	Logger  *slog.Logger
	Metrics *metrics.EditorMetrics
}

// OptionsFromConfig returns options for the [scan] configuration section.
func OptionsFromConfig(sc config.ScanConfig) Options {
	return Options{
		MinCellTextLength: sc.MinCellTextLength,
		MinLineCount:      sc.MinLineCount,
	}
}

// DefaultOptions returns the default thresholds.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig().Scan)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Edits   int
	Views   int
	Pruned  int
	Skipped int
}

// Scanner attaches affordances to the elements of a document. Sweeps are
// serialized; Sweep and Run may be called from any goroutine.
type Scanner struct {
	mu          sync.Mutex
	doc         document.Document
	opener      Opener
	opts        Options
	affordances []*Affordance
	nextID      int
	onAttach    []func(*Affordance)
	logger      *slog.Logger
	metrics     *metrics.EditorMetrics
}

// New creates a scanner over doc whose affordances open sessions with opener.
func New(doc document.Document, opener Opener, opts Options) *Scanner {
	defaults := DefaultOptions()
	if opts.MinCellTextLength <= 0 {
		opts.MinCellTextLength = defaults.MinCellTextLength
	}
	if opts.MinLineCount <= 0 {
		opts.MinLineCount = defaults.MinLineCount
	}
	s := &Scanner{
		doc:     doc,
		opener:  opener,
		opts:    opts,
		nextID:  1,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if s.logger == nil {
		s.logger = logging.Default().WithComponent("scanner").Logger
	}
	if s.metrics == nil {
		s.metrics = metrics.GetMetrics()
	}
	return s
}

// OnAttach registers a callback invoked for every new affordance, during the
// sweep that attaches it.
func (s *Scanner) OnAttach(fn func(*Affordance)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAttach = append(s.onAttach, fn)
}

// Sweep attaches affordances to every unmarked element that qualifies.
// Marked elements are skipped entirely, so repeated sweeps only do work for
// elements that are new since the last one.
func (s *Scanner) Sweep() SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := s.metrics.SweepTimer()
	var res SweepResult

	res.Pruned = s.pruneLocked()

	for _, f := range s.doc.Fields() {
		if f.Marked() {
			continue
		}
		s.attachLocked(&Affordance{Kind: KindEdit, element: f, field: f})
		f.Mark()
		res.Edits++
	}

	for _, c := range s.doc.Cells() {
		if c.Marked() {
			continue
		}
		lines, ok := s.qualifies(c)
		if !ok {
			// Left unmarked: the cell may grow after a re-render.
			res.Skipped++
			continue
		}
		s.attachLocked(&Affordance{Kind: KindView, Lines: lines, element: c, snapshot: c.Text()})
		c.Mark()
		res.Views++
	}

	elapsed := timer.Stop()
	s.metrics.RecordSweep(res.Edits, res.Views, len(s.affordances))
	if res.Edits+res.Views+res.Pruned > 0 {
		s.logger.Debug("sweep", "edits", res.Edits, "views", res.Views,
			"pruned", res.Pruned, "active", len(s.affordances), "elapsed", elapsed)
	}
	return res
}

// qualifies reports whether a cell is long enough to get a View affordance.
func (s *Scanner) qualifies(c document.Cell) (int, bool) {
	if utf8.RuneCountInString(c.Text()) < s.opts.MinCellTextLength {
		return 0, false
	}
	m, ok := c.Metrics()
	if !ok {
		return 0, false
	}
	lines, ok := m.LineCount()
	if !ok || lines < s.opts.MinLineCount {
		return 0, false
	}
	return lines, true
}

func (s *Scanner) attachLocked(a *Affordance) {
	a.ID = s.nextID
	a.opener = s.opener
	s.nextID++
	s.affordances = append(s.affordances, a)
	for _, fn := range s.onAttach {
		fn(a)
	}
}

// pruneLocked drops affordances whose element has left the document.
func (s *Scanner) pruneLocked() int {
	kept := s.affordances[:0]
	for _, a := range s.affordances {
		if a.Attached() {
			kept = append(kept, a)
		}
	}
	pruned := len(s.affordances) - len(kept)
	for i := len(kept); i < len(s.affordances); i++ {
		s.affordances[i] = nil
	}
	s.affordances = kept
	return pruned
}

// Run sweeps immediately and then every interval until ctx is done.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Sweep()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Affordances returns the affordances attached so far, oldest first.
func (s *Scanner) Affordances() []*Affordance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Affordance(nil), s.affordances...)
}

// Affordance returns the affordance with the given id.
func (s *Scanner) Affordance(id int) (*Affordance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.affordances {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}
