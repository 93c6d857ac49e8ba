package scanner_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mledit/internal/document"
	"mledit/internal/document/htmldoc"
	"mledit/internal/metrics"
	"mledit/internal/scanner"
	"mledit/internal/session"
)

func openPage(t *testing.T) *htmldoc.Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "document", "htmldoc", "testdata", "page.html"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, data, 0600))

	doc, err := htmldoc.Open(path, htmldoc.DefaultRules())
	require.NoError(t, err)
	return doc
}

func TestScanPage(t *testing.T) {
	doc := openPage(t)
	m := metrics.NewEditorMetrics(metrics.NewRegistry("test", ""))
	sess := session.New(doc, session.WithMetrics(m))
	s := scanner.New(doc, sess, scanner.Options{Metrics: m})

	res := s.Sweep()
	assert.Equal(t, 4, res.Edits)
	assert.Equal(t, 2, res.Views)

	res = s.Sweep()
	assert.Equal(t, 0, res.Edits+res.Views)

	var views []string
	for _, a := range s.Affordances() {
		if a.Kind == scanner.KindView {
			views = append(views, a.Key())
		}
	}
	assert.Equal(t, []string{
		"body>table>tbody>tr[1]>td[2]",
		"body>table>tbody>tr[3]>td[2]",
	}, views)
}

func TestEditThroughAffordance(t *testing.T) {
	doc := openPage(t)
	m := metrics.NewEditorMetrics(metrics.NewRegistry("test", ""))
	sess := session.New(doc, session.WithMetrics(m))
	s := scanner.New(doc, sess, scanner.Options{Metrics: m})
	s.Sweep()

	edit, ok := s.Affordance(1)
	require.True(t, ok)
	require.Equal(t, "input#default", edit.Key())
	require.NoError(t, edit.Open())
	assert.Equal(t, "{{\n{\n    \"a\": 1\n}\n}}", sess.Text())

	require.NoError(t, sess.SetText("{{\n{\n    \"a\": 42\n}\n}}"))
	_, err := sess.Save()
	require.NoError(t, err)
	assert.Equal(t, `{{{"a":42}}}`, edit.Text())
	require.NoError(t, doc.Save())

	reopened, err := htmldoc.Open(doc.Path(), htmldoc.DefaultRules())
	require.NoError(t, err)
	fields := reopened.Fields()
	require.NotEmpty(t, fields)
	assert.Equal(t, `{{{"a":42}}}`, fields[0].Value())
	assert.False(t, fields[0].Marked(), "markers are not persisted")
}

func TestReloadReattaches(t *testing.T) {
	doc := openPage(t)
	m := metrics.NewEditorMetrics(metrics.NewRegistry("test", ""))
	s := scanner.New(doc, session.New(doc, session.WithMetrics(m)), scanner.Options{Metrics: m})
	s.Sweep()

	data, err := os.ReadFile(doc.Path())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(doc.Path(), append(data, []byte("<!-- re-render -->")...), 0600))
	changed, err := doc.Reload()
	require.NoError(t, err)
	require.True(t, changed)

	res := s.Sweep()
	assert.Equal(t, 6, res.Pruned)
	assert.Equal(t, 4, res.Edits)
	assert.Equal(t, 2, res.Views)
	assert.Len(t, s.Affordances(), 6)
}

func TestChangeListenerReadsSession(t *testing.T) {
	doc := openPage(t)
	m := metrics.NewEditorMetrics(metrics.NewRegistry("test", ""))
	sess := session.New(doc, session.WithMetrics(m))
	s := scanner.New(doc, sess, scanner.Options{Metrics: m})
	s.Sweep()

	var during session.View
	doc.OnChange(func(ev document.ChangeEvent) {
		during = sess.View()
	})

	aff, ok := s.Affordance(1)
	require.True(t, ok)
	require.NoError(t, aff.Open())

	done := make(chan error, 1)
	go func() {
		_, err := sess.Save()
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Save deadlocked in the document change listener")
	}
	assert.True(t, during.Visible)
	assert.False(t, sess.IsOpen())
}
