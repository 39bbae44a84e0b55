// Package lock serializes integrity runs that share a baseline with an
// exclusive advisory file lock.
//
// The operating system releases the lock when the holding process exits, so
// a crashed run never leaves a stale lock behind. The holder's PID is written
// into the lock file for diagnostics only.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("baseline is locked by another run")

// Suffix is appended to a baseline path to form its lock path.
const Suffix = ".lock"

// PathFor returns the lock file path guarding baseline.
func PathFor(baseline string) string {
	return baseline + Suffix
}

// Lock is a held exclusive lock.
type Lock struct {
	path string
	f    *os.File
}

// Acquire takes the exclusive lock at path without blocking.
// It fails with ErrLocked when another process holds it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLocked) {
			if pid, perr := HolderPID(path); perr == nil {
				return nil, fmt.Errorf("%w (pid %d): %s", ErrLocked, pid, path)
			}
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	if err := writePID(f); err != nil {
		_ = unlockFile(f)
		_ = f.Close()
		return nil, fmt.Errorf("failed to write lock owner: %w", err)
	}

	return &Lock{path: path, f: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. The lock file itself is left in place; removing it
// would race with a process that already opened it.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = l.f.Truncate(0)
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

// HolderPID reads the PID recorded by the current or last holder.
func HolderPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid lock file contents: %w", err)
	}
	return pid, nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return err
	}
	return f.Sync()
}
