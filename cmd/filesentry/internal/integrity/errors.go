package integrity

import (
	"errors"
	"fmt"
)

var (
	// ErrRootNotFound is returned when the scan root does not exist.
	ErrRootNotFound = errors.New("scan root not found")

	// ErrNotADirectory is returned when the scan root is not a directory.
	ErrNotADirectory = errors.New("scan root is not a directory")

	// ErrUnsupportedAlgorithm is returned for unknown digest algorithm names.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// ErrFileUnreadable marks per-file failures. They are recorded, never fatal.
	ErrFileUnreadable = errors.New("file unreadable")

	// ErrInvalidPattern is returned for malformed exclude patterns.
	ErrInvalidPattern = errors.New("invalid exclude pattern")

	// ErrCorruptBaseline is returned by codecs for content they cannot parse.
	ErrCorruptBaseline = errors.New("baseline is corrupt")

	// ErrUnsupportedVersion is returned for baselines written by a newer format version.
	ErrUnsupportedVersion = errors.New("unsupported baseline version")
)

// FileError records a failure to stat, open or read a single file.
// It matches ErrFileUnreadable with errors.Is.
type FileError struct {
	Op   string // "walk", "stat", "open" or "read"
	Path string // root-relative, forward slashes
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFileUnreadable.
func (e *FileError) Is(target error) bool {
	return target == ErrFileUnreadable
}
