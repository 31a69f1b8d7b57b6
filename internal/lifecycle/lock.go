package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Lock is a held singleton PID-file lock.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the singleton lock for the daemon. The PID file holds a
// single decimal PID. If the file exists and that process is still alive,
// acquisition fails with an instructive error; a stale file left by a dead
// process is removed and retaken.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pid directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			if _, werr := fmt.Fprintf(file, "%d\n", os.Getpid()); werr != nil {
				file.Close()
				os.Remove(path)
				return nil, fmt.Errorf("write pid file: %w", werr)
			}
			return &Lock{path: path, file: file}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create pid file: %w", err)
		}

		pid, readErr := readPID(path)
		if readErr == nil && processAlive(pid) {
			return nil, fmt.Errorf("another instance is already running (pid %d); stop it or remove %s", pid, path)
		}

		// Stale or unreadable pid file from a dead process.
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("remove stale pid file: %w", rmErr)
		}
	}
	return nil, fmt.Errorf("could not acquire pid file %s", path)
}

// Release removes the PID file. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	err := os.Remove(l.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file contents")
	}
	return pid, nil
}

// processAlive probes a PID with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
