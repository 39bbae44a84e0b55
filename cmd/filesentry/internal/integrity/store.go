package integrity

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/albertocavalcante/filesentry/internal/log"
)

// LoadStatus describes what Load found at the baseline location.
type LoadStatus int

const (
	// StatusLoaded means a valid baseline was read.
	StatusLoaded LoadStatus = iota
	// StatusMissing means no baseline file exists.
	StatusMissing
	// StatusEmpty means the baseline file is empty or blank.
	StatusEmpty
	// StatusCorrupt means the baseline file could not be parsed.
	StatusCorrupt
	// StatusAlgorithmMismatch means the baseline was captured with another
	// algorithm and cannot be compared. Set by the Tracker, not by stores.
	StatusAlgorithmMismatch
)

func (s LoadStatus) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusMissing:
		return "missing"
	case StatusEmpty:
		return "empty"
	case StatusCorrupt:
		return "corrupt"
	case StatusAlgorithmMismatch:
		return "algorithm_mismatch"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// FirstRun reports whether the status calls for first-capture semantics.
func (s LoadStatus) FirstRun() bool {
	return s != StatusLoaded
}

// Store defines the interface for baseline persistence.
//
// Load never fails for a missing, blank or unparseable baseline: it returns
// an empty snapshot and the matching status. Save replaces the whole baseline.
// Stores do not serialize load-then-save sequences; callers that may run
// concurrently must hold a lock around them.
type Store interface {
	Load() (*Snapshot, LoadStatus, error)
	Save(s *Snapshot) error
	Exists() bool
	Clear() error
	Path() string
}

// FileStore implements Store with a single file and a Codec.
type FileStore struct {
	path  string
	codec Codec
}

// NewFileStore creates a store for the baseline at path.
func NewFileStore(path string, codec Codec) *FileStore {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &FileStore{path: path, codec: codec}
}

// Path returns the baseline file path.
func (s *FileStore) Path() string {
	return s.path
}

// TempPath returns the staging file used by Save.
func (s *FileStore) TempPath() string {
	return s.path + ".tmp"
}

// Load reads the baseline from disk.
func (s *FileStore) Load() (*Snapshot, LoadStatus, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSnapshot(""), StatusMissing, nil
	}
	if err != nil {
		return nil, StatusMissing, fmt.Errorf("failed to read baseline: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		log.Warn("baseline file is empty", "path", s.path)
		return NewSnapshot(""), StatusEmpty, nil
	}

	snap, err := s.codec.Decode(data)
	if errors.Is(err, ErrUnsupportedVersion) {
		return nil, StatusCorrupt, err
	}
	if err != nil {
		log.Warn("baseline file is corrupt", "path", s.path, "format", s.codec.Name(), "error", err)
		return NewSnapshot(""), StatusCorrupt, nil
	}

	log.Debug("loaded baseline", "path", s.path, "files", snap.Len(), "algorithm", snap.Algorithm)
	return snap, StatusLoaded, nil
}

// Save writes the snapshot atomically: it is staged in a temporary file in
// the same directory, synced, then renamed over the previous baseline.
func (s *FileStore) Save(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot save nil snapshot")
	}

	data, err := s.codec.Encode(snap)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}

	tmpPath := s.TempPath()
	if err := writeSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp baseline: %w", err)
	}

	// Rename temp file to actual file (atomic on POSIX)
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up temp file
		return fmt.Errorf("failed to replace baseline: %w", err)
	}

	log.Debug("saved baseline", "path", s.path, "files", snap.Len())
	return nil
}

// Exists returns true if the baseline file exists.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Clear removes the baseline file.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// writeSynced writes data to path and flushes it to stable storage.
func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
