package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mledit/internal/content"
	"mledit/internal/document"
	"mledit/internal/metrics"
)

type fakeField struct {
	key    string
	value  string
	marked bool
}

func (f *fakeField) Key() string    { return f.key }
func (f *fakeField) Marked() bool   { return f.marked }
func (f *fakeField) Mark()          { f.marked = true }
func (f *fakeField) Attached() bool { return true }
func (f *fakeField) Value() string  { return f.value }

type recorder struct {
	commits []string
	err     error
}

func (r *recorder) Commit(field document.Field, value string) error {
	if r.err != nil {
		return r.err
	}
	r.commits = append(r.commits, value)
	field.(*fakeField).value = value
	return nil
}

func newSession(t *testing.T, opts ...Option) (*Session, *recorder, *metrics.EditorMetrics) {
	t.Helper()
	rec := &recorder{}
	m := metrics.NewEditorMetrics(metrics.NewRegistry("test", ""))
	opts = append([]Option{WithMetrics(m)}, opts...)
	return New(rec, opts...), rec, m
}

func TestDelimitedRoundTrip(t *testing.T) {
	s, rec, _ := newSession(t)
	field := &fakeField{key: "input#default", value: `{{{"a":1}}}`}

	require.NoError(t, s.OpenField(field))
	v := s.View()
	assert.True(t, v.Visible)
	assert.Equal(t, content.KindDelimitedJSON, v.Kind)
	assert.Equal(t, "{{\n{\n    \"a\": 1\n}\n}}", v.Text)
	assert.Equal(t, "input#default", v.FieldKey)

	require.NoError(t, s.SetText("{{\n{\n    \"a\": 2\n}\n}}"))
	res, err := s.Save()
	require.NoError(t, err)
	assert.True(t, res.Committed)
	assert.False(t, res.Fallback)
	assert.Equal(t, `{{{"a":2}}}`, res.Value)
	assert.Equal(t, []string{`{{{"a":2}}}`}, rec.commits)
	assert.False(t, s.IsOpen())
}

func TestUneditedSaveIsCanonical(t *testing.T) {
	s, rec, _ := newSession(t)
	field := &fakeField{key: "f", value: ` { "b" : [1, 2.50, "xé"] } `}

	require.NoError(t, s.OpenField(field))
	_, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, []string{`{"b":[1,2.50,"xé"]}`}, rec.commits)
}

func TestMalformedEditSavedVerbatim(t *testing.T) {
	s, rec, m := newSession(t)
	field := &fakeField{key: "f", value: `{"a":1}`}

	require.NoError(t, s.OpenField(field))
	require.NoError(t, s.SetText(`{"a":1,`))
	res, err := s.Save()
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, []string{`{"a":1,`}, rec.commits)
	assert.Equal(t, uint64(1), m.StructuralFallbackTotal.Value())
}

func TestStructuredToWrapped(t *testing.T) {
	s, rec, _ := newSession(t)
	field := &fakeField{key: "f", value: `{"a":1}`}

	require.NoError(t, s.OpenField(field))
	require.NoError(t, s.SetText("  {{ { \"a\": 1 } }}\n"))
	_, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, []string{`{{{"a":1}}}`}, rec.commits)
}

func TestPlainTextVerbatim(t *testing.T) {
	s, rec, _ := newSession(t)
	field := &fakeField{key: "f", value: "{{not json}}"}

	require.NoError(t, s.OpenField(field))
	v := s.View()
	assert.Equal(t, content.KindPlainText, v.Kind)
	assert.Equal(t, "{{not json}}", v.Text)
	require.Len(t, v.Warnings, 1)

	require.NoError(t, s.SetText("  {\"looks\": \"like json\"}  "))
	_, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, []string{"  {\"looks\": \"like json\"}  "}, rec.commits)
}

func TestCancel(t *testing.T) {
	s, rec, m := newSession(t)
	field := &fakeField{key: "f", value: "original"}

	require.NoError(t, s.OpenField(field))
	require.NoError(t, s.SetText("changed"))
	s.Cancel()

	assert.False(t, s.IsOpen())
	assert.Equal(t, View{}, s.View())
	assert.Empty(t, rec.commits)
	assert.Equal(t, "original", field.value)
	assert.Equal(t, uint64(1), m.CancelsTotal.Value())
}

func TestClosedSessionNoOps(t *testing.T) {
	s, rec, m := newSession(t)

	s.Cancel()
	s.Cancel()
	res, err := s.Save()
	require.NoError(t, err)
	assert.False(t, res.Committed)
	assert.NoError(t, s.SetText("ignored"))
	assert.Equal(t, "", s.Text())
	assert.Empty(t, rec.commits)
	assert.Equal(t, uint64(0), m.CancelsTotal.Value())
}

func TestSnapshotReadOnly(t *testing.T) {
	s, rec, _ := newSession(t)

	require.NoError(t, s.OpenSnapshot(`[1,2,3]`))
	v := s.View()
	assert.True(t, v.ReadOnly)
	assert.Equal(t, TitleView, v.Title)
	assert.Equal(t, LabelClose, v.CancelLabel)
	assert.False(t, v.ShowSave)
	assert.Equal(t, "[\n    1,\n    2,\n    3\n]", v.Text)

	assert.ErrorIs(t, s.SetText("x"), ErrReadOnly)
	_, err := s.Save()
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.True(t, s.IsOpen(), "read-only save leaves the session open")
	assert.Empty(t, rec.commits)

	s.Cancel()
	assert.False(t, s.IsOpen())
}

func TestReadOnlyField(t *testing.T) {
	s, _, _ := newSession(t)
	field := &fakeField{key: "f", value: "x"}

	require.NoError(t, s.Open(Request{Field: field, ReadOnly: true}))
	_, err := s.Save()
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestEditLabels(t *testing.T) {
	s, _, _ := newSession(t)
	require.NoError(t, s.OpenField(&fakeField{key: "f", value: "x"}))

	v := s.View()
	assert.Equal(t, TitleEdit, v.Title)
	assert.Equal(t, LabelSave, v.SaveLabel)
	assert.Equal(t, LabelCancel, v.CancelLabel)
	assert.True(t, v.ShowSave)
}

func TestInvalidRequest(t *testing.T) {
	s, _, _ := newSession(t)

	assert.ErrorIs(t, s.Open(Request{}), ErrInvalidRequest)
	assert.ErrorIs(t, s.Open(Request{Field: &fakeField{}, Snapshot: true}), ErrInvalidRequest)
	assert.False(t, s.IsOpen())
}

func TestCommitFailureKeepsSession(t *testing.T) {
	s, rec, m := newSession(t)
	rec.err = document.ErrDetached
	field := &fakeField{key: "f", value: "x"}

	require.NoError(t, s.OpenField(field))
	require.NoError(t, s.SetText("edited"))
	_, err := s.Save()
	require.Error(t, err)
	assert.True(t, errors.Is(err, document.ErrDetached))
	assert.True(t, s.IsOpen())
	assert.Equal(t, "edited", s.Text())
	assert.Equal(t, uint64(1), m.CommitErrorsTotal.Value())
}

func TestReopenReplaces(t *testing.T) {
	s, rec, m := newSession(t)
	a := &fakeField{key: "a", value: "first"}
	b := &fakeField{key: "b", value: "second"}

	require.NoError(t, s.OpenField(a))
	require.NoError(t, s.OpenField(b))
	assert.Equal(t, "second", s.Text())
	assert.Equal(t, int64(1), m.OpenSessions.Value())

	_, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, rec.commits)
	assert.Equal(t, "first", a.value)
}

func TestCommitterReadsSession(t *testing.T) {
	var (
		s         *Session
		seen      View
		nestedErr error
	)
	s = New(CommitterFunc(func(field document.Field, value string) error {
		seen = s.View()
		_, nestedErr = s.Save()
		return nil
	}), WithMetrics(metrics.NewEditorMetrics(metrics.NewRegistry("test", ""))))

	require.NoError(t, s.OpenField(&fakeField{key: "f", value: "x"}))
	require.NoError(t, s.SetText("y"))

	done := make(chan error, 1)
	go func() {
		_, err := s.Save()
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Save blocked while the committer read the session")
	}

	assert.True(t, seen.Visible, "session still open during commit")
	assert.Equal(t, "y", seen.Text)
	assert.ErrorIs(t, nestedErr, ErrSaving)
	assert.False(t, s.IsOpen())
}

func TestReplacedDuringCommit(t *testing.T) {
	m := metrics.NewEditorMetrics(metrics.NewRegistry("test", ""))
	next := &fakeField{key: "next", value: "other"}
	var s *Session
	s = New(CommitterFunc(func(field document.Field, value string) error {
		return s.OpenField(next)
	}), WithMetrics(m))

	require.NoError(t, s.OpenField(&fakeField{key: "f", value: "x"}))
	res, err := s.Save()
	require.NoError(t, err)
	assert.True(t, res.Committed)

	assert.True(t, s.IsOpen(), "the replacing session stays open")
	assert.Equal(t, "next", s.View().FieldKey)
	assert.Equal(t, uint64(1), m.SavesTotal.Value())
	assert.Equal(t, int64(1), m.OpenSessions.Value())
}

func TestInsertTab(t *testing.T) {
	s, _, _ := newSession(t, WithTabWidth(2))
	require.NoError(t, s.OpenField(&fakeField{key: "f", value: "ab€cd"}))

	caret, err := s.InsertTab(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, caret)
	assert.Equal(t, "ab  cd", s.Text())
	assert.Equal(t, "  ", s.Indent())
}

func TestExpandTab(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end int
		want       string
		caret      int
	}{
		{"insert", "ab", 1, 1, "a    b", 5},
		{"replace selection", "abcd", 1, 3, "a    d", 5},
		{"reversed selection", "abcd", 3, 1, "a    d", 5},
		{"clamped", "ab", -1, 10, "    ", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, caret := ExpandTab(tt.text, tt.start, tt.end, 4)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.caret, caret)
		})
	}
}

func TestOnChange(t *testing.T) {
	s, _, _ := newSession(t)
	var views []View
	s.OnChange(func(v View) { views = append(views, v) })

	require.NoError(t, s.OpenSnapshot("hello"))
	s.Cancel()

	require.Len(t, views, 2)
	assert.True(t, views[0].Visible)
	assert.Equal(t, "hello", views[0].Text)
	assert.False(t, views[1].Visible)
}

const objectSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name"]
}`

func TestSchemaWarnings(t *testing.T) {
	schema := loadTestSchema(t, objectSchema)
	s, rec, _ := newSession(t, WithSchema(schema))

	require.NoError(t, s.OpenField(&fakeField{key: "f", value: `{"other":1}`}))
	v := s.View()
	require.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "schema")

	_, err := s.Save()
	require.NoError(t, err, "schema violations do not block saving")
	assert.Len(t, rec.commits, 1)

	require.NoError(t, s.OpenField(&fakeField{key: "g", value: `{"name":"ok"}`}))
	assert.Empty(t, s.View().Warnings)
}

func TestCachedClassifier(t *testing.T) {
	cached, err := content.NewCachedClassifier(content.Default, 4)
	require.NoError(t, err)
	s, _, _ := newSession(t, WithClassifier(cached))

	require.NoError(t, s.OpenSnapshot(`{"a":1}`))
	require.NoError(t, s.OpenSnapshot(`{"a":1}`))
	assert.Equal(t, 1, cached.Len())
}

func loadTestSchema(t *testing.T, doc string) *content.Schema {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))
	schema, err := content.LoadSchema(path)
	require.NoError(t, err)
	return schema
}
