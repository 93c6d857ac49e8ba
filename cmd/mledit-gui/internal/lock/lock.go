// Package lock keeps a single overlay per document with a lock file next to
// the document.
package lock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Suffix is appended to the document path to form the lock file path.
const Suffix = ".mledit.lock"

// ErrLocked is returned when another overlay holds the document.
var ErrLocked = errors.New("lock: document is already open in another overlay")

// Lock is a held document lock.
type Lock struct {
	path string
}

// Path returns the lock file path for document.
func Path(document string) string {
	return document + Suffix
}

// Acquire creates the lock file for document. A lock left behind by a process
// that no longer exists is taken over.
func Acquire(document string) (*Lock, error) {
	path := Path(document)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("write lock file: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if !stale(path) {
			return nil, ErrLocked
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}
	return nil, ErrLocked
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

func stale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return true
	}
	return !processExists(pid)
}
