// Package integrity captures path-keyed content fingerprints of a directory
// tree, persists them as a baseline and classifies changes between runs.
package integrity

import (
	"maps"
	"time"

	"github.com/albertocavalcante/filesentry/pkg/util"
)

// SnapshotVersion is the current version of the baseline document format.
const SnapshotVersion = 1

// Snapshot maps root-relative paths to content digests.
// A snapshot is built once per run and not modified afterwards.
type Snapshot struct {
	Version   int               `json:"version" yaml:"version"`
	Algorithm string            `json:"algorithm" yaml:"algorithm"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	Files     map[string]string `json:"files" yaml:"files"`
}

// NewSnapshot creates an empty snapshot for the given algorithm.
func NewSnapshot(algorithm string) *Snapshot {
	return &Snapshot{
		Version:   SnapshotVersion,
		Algorithm: algorithm,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Files:     make(map[string]string),
	}
}

// add records a digest; only the builder populates snapshots.
func (s *Snapshot) add(path, digest string) {
	if s.Files == nil {
		s.Files = make(map[string]string)
	}
	s.Files[path] = digest
}

// Get retrieves the digest recorded for path.
func (s *Snapshot) Get(path string) (string, bool) {
	if s == nil || s.Files == nil {
		return "", false
	}
	d, ok := s.Files[path]
	return d, ok
}

// Len returns the number of files in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Files)
}

// Paths returns the snapshot's paths in sorted order.
func (s *Snapshot) Paths() []string {
	if s == nil {
		return nil
	}
	return util.SortedKeys(s.Files)
}

// Equal reports whether both snapshots hold the same algorithm, creation time
// and path→digest mapping. Nil and empty snapshots are not equal.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Version == other.Version &&
		s.Algorithm == other.Algorithm &&
		s.CreatedAt.Equal(other.CreatedAt) &&
		len(s.Files) == len(other.Files) &&
		maps.Equal(s.Files, other.Files)
}

// Entry is a hashed file as seen by one scan.
type Entry struct {
	Path     string `json:"path"`
	Digest   string `json:"digest"`
	Size     int64  `json:"size"`
	Position int    `json:"position"` // display aid, never identity
}

// ScanResult is the outcome of one snapshot build.
type ScanResult struct {
	Root     string
	Snapshot *Snapshot
	Entries  []Entry      // sorted by path
	Failures []*FileError // sorted by path
	Bytes    int64
	Duration time.Duration
}
