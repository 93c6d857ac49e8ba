package metrics

import "sync"

// EditorMetrics holds the metrics recorded by the scanner and editor sessions.
type EditorMetrics struct {
	registry *Registry

	SweepsTotal             *Counter
	EditAffordancesTotal    *Counter
	ViewAffordancesTotal    *Counter
	SessionsOpenedTotal     *Counter
	SavesTotal              *Counter
	CancelsTotal            *Counter
	StructuralFallbackTotal *Counter
	CommitErrorsTotal       *Counter

	ActiveAffordances *Gauge
	OpenSessions      *Gauge

	SweepDuration *Histogram
}

// NewEditorMetrics creates and registers the editor metrics on registry.
// A nil registry uses the default one.
func NewEditorMetrics(registry *Registry) *EditorMetrics {
	if registry == nil {
		registry = Default()
	}

	const affordances = "affordances_total"
	const affordancesHelp = "Total number of affordances attached"

	return &EditorMetrics{
		registry: registry,

		SweepsTotal: registry.RegisterCounter(
			"sweeps_total",
			"Total number of document sweeps",
			nil,
		),
		EditAffordancesTotal: registry.RegisterCounter(
			affordances, affordancesHelp, Labels{"kind": "edit"},
		),
		ViewAffordancesTotal: registry.RegisterCounter(
			affordances, affordancesHelp, Labels{"kind": "view"},
		),
		SessionsOpenedTotal: registry.RegisterCounter(
			"sessions_opened_total",
			"Total number of editor sessions opened",
			nil,
		),
		SavesTotal: registry.RegisterCounter(
			"saves_total",
			"Total number of values committed back to the document",
			nil,
		),
		CancelsTotal: registry.RegisterCounter(
			"cancels_total",
			"Total number of sessions closed without saving",
			nil,
		),
		StructuralFallbackTotal: registry.RegisterCounter(
			"structural_fallbacks_total",
			"Total number of structured values saved verbatim because they no longer parse",
			nil,
		),
		CommitErrorsTotal: registry.RegisterCounter(
			"commit_errors_total",
			"Total number of failed commits",
			nil,
		),

		ActiveAffordances: registry.RegisterGauge(
			"active_affordances",
			"Number of affordances attached to live elements",
			nil,
		),
		OpenSessions: registry.RegisterGauge(
			"open_sessions",
			"Number of editor sessions currently open",
			nil,
		),

		SweepDuration: registry.RegisterHistogram(
			"sweep_duration_seconds",
			"Duration of document sweeps in seconds",
			nil,
			DurationBuckets,
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *EditorMetrics) Registry() *Registry {
	return m.registry
}

// SweepTimer starts timing a sweep. Stopping it records the duration.
func (m *EditorMetrics) SweepTimer() *HistogramTimer {
	return m.SweepDuration.Timer()
}

// RecordSweep records a completed sweep.
func (m *EditorMetrics) RecordSweep(edits, views, active int) {
	m.SweepsTotal.Inc()
	m.EditAffordancesTotal.Add(uint64(edits))
	m.ViewAffordancesTotal.Add(uint64(views))
	m.ActiveAffordances.Set(int64(active))
}

// SessionOpened records a session opening.
func (m *EditorMetrics) SessionOpened() {
	m.SessionsOpenedTotal.Inc()
	m.OpenSessions.Inc()
}

// ValueSaved records a committed value. fallback reports that a structured
// value was committed verbatim.
func (m *EditorMetrics) ValueSaved(fallback bool) {
	m.SavesTotal.Inc()
	if fallback {
		m.StructuralFallbackTotal.Inc()
	}
}

// SessionSaved records a save that closed the session.
func (m *EditorMetrics) SessionSaved(fallback bool) {
	m.ValueSaved(fallback)
	m.OpenSessions.Dec()
}

// SessionCancelled records a session closed without saving.
func (m *EditorMetrics) SessionCancelled() {
	m.CancelsTotal.Inc()
	m.OpenSessions.Dec()
}

// CommitFailed records a failed commit.
func (m *EditorMetrics) CommitFailed() {
	m.CommitErrorsTotal.Inc()
}

// Snapshot returns a snapshot of key metrics.
func (m *EditorMetrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"sweeps_total":               m.SweepsTotal.Value(),
		"edit_affordances_total":     m.EditAffordancesTotal.Value(),
		"view_affordances_total":     m.ViewAffordancesTotal.Value(),
		"sessions_opened_total":      m.SessionsOpenedTotal.Value(),
		"saves_total":                m.SavesTotal.Value(),
		"cancels_total":              m.CancelsTotal.Value(),
		"structural_fallbacks_total": m.StructuralFallbackTotal.Value(),
		"commit_errors_total":        m.CommitErrorsTotal.Value(),
		"active_affordances":         m.ActiveAffordances.Value(),
		"open_sessions":              m.OpenSessions.Value(),
		"sweep_avg_seconds":          m.SweepDuration.Mean(),
	}
}

var (
	defaultEditorMetrics *EditorMetrics
	editorMetricsOnce    sync.Once
)

// GetMetrics returns the global editor metrics instance.
func GetMetrics() *EditorMetrics {
	editorMetricsOnce.Do(func() {
		defaultEditorMetrics = NewEditorMetrics(Default())
	})
	return defaultEditorMetrics
}
