// Package watcher monitors document files and reports content changes once a
// file has been stable for the debounce interval.
package watcher

import (
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event reports a document file whose content changed.
type Event struct {
	Path      string
	Hash      [32]byte
	Size      int64
	Timestamp time.Time
}

// Watcher monitors document files for changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     []string
	debounce  time.Duration

	// pending: path -> last modification seen; hashes: path -> last reported content
	pending map[string]time.Time
	hashes  map[string][32]byte
	stateMu sync.RWMutex

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for the given document files.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		abs = append(abs, a)
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		paths:     abs,
		debounce:  debounce,
		pending:   make(map[string]time.Time),
		hashes:    make(map[string][32]byte),
		events:    make(chan Event, 16),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start records the current content of every file and begins watching.
func (w *Watcher) Start() error {
	dirs := make(map[string]bool)
	for _, path := range w.paths {
		hash, _, err := HashFile(path)
		if err != nil {
			return err
		}
		w.stateMu.Lock()
		w.hashes[path] = hash
		w.stateMu.Unlock()

		// Editors and atomic saves replace the file, so watch its directory.
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
		dirs[dir] = true
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()

	return nil
}

// Stop gracefully shuts down the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) watched(path string) bool {
	for _, p := range w.paths {
		if p == path {
			return true
		}
	}
	return false
}

// eventLoop handles fsnotify events.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path, err := filepath.Abs(event.Name)
			if err != nil || !w.watched(path) {
				continue
			}

			w.stateMu.Lock()
			w.pending[path] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// debounceLoop checks for stable files and reports changed ones.
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.debounce / 2
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.checkStableFiles(now)
		}
	}
}

type stableFile struct {
	path    string
	lastMod time.Time
}

// checkStableFiles hashes files that have not changed for the debounce
// interval. The lock is released during file I/O.
func (w *Watcher) checkStableFiles(now time.Time) {
	threshold := now.Add(-w.debounce)

	var stable []stableFile
	w.stateMu.RLock()
	for path, lastMod := range w.pending {
		if !lastMod.After(threshold) {
			stable = append(stable, stableFile{path: path, lastMod: lastMod})
		}
	}
	w.stateMu.RUnlock()

	for _, sf := range stable {
		hash, size, err := HashFile(sf.path)

		w.stateMu.Lock()
		if w.pending[sf.path] != sf.lastMod {
			// Modified while hashing; let it stabilize again.
			w.stateMu.Unlock()
			continue
		}
		if err != nil {
			delete(w.pending, sf.path)
			w.stateMu.Unlock()
			if !os.IsNotExist(err) {
				w.reportError(err)
			}
			continue
		}
		if hash == w.hashes[sf.path] {
			delete(w.pending, sf.path)
			w.stateMu.Unlock()
			continue
		}

		event := Event{Path: sf.path, Hash: hash, Size: size, Timestamp: now}
		select {
		case w.events <- event:
			delete(w.pending, sf.path)
			w.hashes[sf.path] = hash
		default:
			// Event channel full, try again later
		}
		w.stateMu.Unlock()
	}
}

// Acknowledge records hash as the known content of path, so a write made by
// the caller itself is not reported back.
func (w *Watcher) Acknowledge(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	hash, _, err := HashFile(abs)
	if err != nil {
		return err
	}
	w.stateMu.Lock()
	w.hashes[abs] = hash
	w.stateMu.Unlock()
	return nil
}

// HashFile computes SHA-256 hash of a file using streaming.
func HashFile(path string) ([32]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return [32]byte{}, 0, err
	}

	var hash [32]byte
	copy(hash[:], h.Sum(nil))
	return hash, size, nil
}

// WatchedPaths returns the list of paths being watched.
func (w *Watcher) WatchedPaths() []string {
	return w.paths
}

// PendingFiles returns the number of files waiting to stabilize.
func (w *Watcher) PendingFiles() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return len(w.pending)
}
