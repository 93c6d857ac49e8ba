package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDoc(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
	return path
}

func TestHashFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := writeDoc(t, tmpDir, "<p>test content for hashing</p>")

	hash1, size1, err := HashFile(testFile)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if size1 != int64(len("<p>test content for hashing</p>")) {
		t.Errorf("unexpected size %d", size1)
	}

	hash2, _, err := HashFile(testFile)
	if err != nil {
		t.Fatalf("second HashFile failed: %v", err)
	}
	if hash1 != hash2 {
		t.Error("same file should produce same hash")
	}

	writeDoc(t, tmpDir, "<p>different</p>")
	hash3, _, err := HashFile(testFile)
	if err != nil {
		t.Fatalf("third HashFile failed: %v", err)
	}
	if hash1 == hash3 {
		t.Error("different content should produce different hash")
	}
}

func TestHashFileNotFound(t *testing.T) {
	if _, _, err := HashFile("/nonexistent/page.html"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestWatcherStartMissingFile(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "missing.html")}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.fsWatcher.Close()

	if err := w.Start(); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestWatcherEvents(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeDoc(t, tmpDir, "<p>v0</p>")

	w, err := New([]string{path}, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(tmpDir, "other.html"), []byte("x"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	writeDoc(t, tmpDir, "<p>v1 changed</p>")

	select {
	case event := <-w.Events():
		if event.Path != path {
			t.Errorf("expected path %s, got %s", path, event.Path)
		}
		if event.Size != int64(len("<p>v1 changed</p>")) {
			t.Errorf("unexpected size %d", event.Size)
		}
	case <-time.After(3 * time.Second):
		t.Error("timeout waiting for event")
	}
}

func TestWatcherIgnoresUnchangedContent(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeDoc(t, tmpDir, "<p>same</p>")

	w, err := New([]string{path}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	writeDoc(t, tmpDir, "<p>same</p>")

	select {
	case ev := <-w.Events():
		t.Errorf("unexpected event for unchanged content: %+v", ev)
	case <-time.After(700 * time.Millisecond):
	}
}

func TestWatcherAcknowledge(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeDoc(t, tmpDir, "<p>v0</p>")

	w, err := New([]string{path}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	writeDoc(t, tmpDir, "<p>own write</p>")
	if err := w.Acknowledge(path); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}

	select {
	case ev := <-w.Events():
		t.Errorf("unexpected event for acknowledged write: %+v", ev)
	case <-time.After(700 * time.Millisecond):
	}
}

func TestWatcherDebounce(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeDoc(t, tmpDir, "<p>start</p>")

	w, err := New([]string{path}, time.Second)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		writeDoc(t, tmpDir, "<p>v"+string(rune('0'+i))+"</p>")
		time.Sleep(150 * time.Millisecond)
	}

	eventCount := 0
	timeout := time.After(4 * time.Second)
	for {
		select {
		case <-w.Events():
			eventCount++
			if eventCount > 1 {
				t.Error("expected only one event due to debouncing")
				return
			}
		case <-timeout:
			if eventCount != 1 {
				t.Errorf("expected 1 event, got %d", eventCount)
			}
			return
		}
	}
}
