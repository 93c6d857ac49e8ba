package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mledit/internal/config"
	"mledit/internal/document"
)

type emptyDoc struct{}

func (emptyDoc) Fields() []document.Field { return nil }
func (emptyDoc) Cells() []document.Cell   { return nil }

func TestOverallStatus(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("ok", true, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})
	c.RegisterFunc("optional", false, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy}
	})

	assert.Equal(t, StatusUnknown, c.OverallStatus(), "unchecked critical component")

	results := c.Check(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, StatusDegraded, c.OverallStatus())
	assert.Equal(t, []string{"ok", "optional"}, c.Names())

	c.RegisterFunc("critical", true, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy}
	})
	c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, c.OverallStatus())
}

func TestCheckPanicAndTimeout(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("panics", false, func(ctx context.Context) CheckResult {
		panic("boom")
	})
	c.Register(&Component{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Check: func(ctx context.Context) CheckResult {
			time.Sleep(time.Second)
			return CheckResult{Status: StatusHealthy}
		},
	})

	results := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, results["panics"].Status)
	assert.Equal(t, "boom", results["panics"].Error)
	assert.Equal(t, "check timed out", results["slow"].Message)
}

func TestConfigCheck(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, StatusHealthy, ConfigCheck(cfg)(context.Background()).Status)

	cfg.Scan.IntervalMs = 1
	r := ConfigCheck(cfg)(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Contains(t, r.Error, "scan.interval_ms")
}

func TestDocumentCheck(t *testing.T) {
	r := DocumentCheck(func() (document.Document, error) {
		return nil, errors.New("no such file")
	})(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)

	r = DocumentCheck(func() (document.Document, error) {
		return emptyDoc{}, nil
	})(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, 0, r.Details["fields"])
}

func TestSchemaCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"type":"object"}`), 0600))
	assert.Equal(t, StatusHealthy, SchemaCheck(good)(context.Background()).Status)

	assert.Equal(t, StatusDegraded, SchemaCheck(filepath.Join(dir, "missing.json"))(context.Background()).Status)
}

func TestDirWritableCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	assert.Equal(t, StatusHealthy, DirWritableCheck(dir)(context.Background()).Status)
	assert.DirExists(t, dir)
}

func TestCommandCheck(t *testing.T) {
	assert.Equal(t, StatusDegraded, CommandCheck("")(context.Background()).Status)
	assert.Equal(t, StatusDegraded, CommandCheck("definitely-not-an-editor-xyz")(context.Background()).Status)
}
