//go:build !windows

package lock

import (
	"os"
	"syscall"
)

func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Unix; signal 0 checks that the pid exists.
	return process.Signal(syscall.Signal(0)) == nil
}
