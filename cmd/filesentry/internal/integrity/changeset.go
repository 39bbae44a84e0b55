package integrity

import (
	"path"
	"slices"

	"github.com/albertocavalcante/filesentry/pkg/util"
)

// ChangeSet represents the differences between a baseline and a new snapshot.
type ChangeSet struct {
	New       []string `json:"new"`
	Changed   []string `json:"changed"`
	Deleted   []string `json:"deleted"`
	Unchanged []string `json:"-"`

	// Initial is set when there was no baseline to compare against.
	// Every path is then in New and the run is a first capture, not a diff.
	Initial bool `json:"initial"`
}

// NewChangeSet creates an empty ChangeSet.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		New:       []string{},
		Changed:   []string{},
		Deleted:   []string{},
		Unchanged: []string{},
	}
}

// Diff classifies every path of old and new in O(len(old)+len(new)).
//
// An old snapshot with no files, nil included, means there is nothing to
// compare against: every path is New and Initial is set.
func Diff(old, new *Snapshot) *ChangeSet {
	cs := NewChangeSet()
	cs.Initial = old.Len() == 0

	var oldFiles, newFiles map[string]string
	if old != nil {
		oldFiles = old.Files
	}
	if new != nil {
		newFiles = new.Files
	}

	// Check for new and changed files
	for p, digest := range newFiles {
		oldDigest, exists := oldFiles[p]
		switch {
		case !exists:
			cs.New = append(cs.New, p)
		case oldDigest != digest:
			cs.Changed = append(cs.Changed, p)
		default:
			cs.Unchanged = append(cs.Unchanged, p)
		}
	}

	// Check for deleted files
	for p := range oldFiles {
		if _, exists := newFiles[p]; !exists {
			cs.Deleted = append(cs.Deleted, p)
		}
	}

	cs.sort()
	return cs
}

// IsEmpty returns true if there are no changes.
func (cs *ChangeSet) IsEmpty() bool {
	if cs == nil {
		return true
	}
	return len(cs.New) == 0 && len(cs.Changed) == 0 && len(cs.Deleted) == 0
}

// TotalChanges returns the total number of changed files.
func (cs *ChangeSet) TotalChanges() int {
	if cs == nil {
		return 0
	}
	return len(cs.New) + len(cs.Changed) + len(cs.Deleted)
}

// AffectedDirs returns sorted unique directories containing changes.
func (cs *ChangeSet) AffectedDirs() []string {
	if cs == nil {
		return nil
	}

	var dirs []string
	for _, list := range [][]string{cs.New, cs.Changed, cs.Deleted} {
		for _, p := range list {
			dirs = append(dirs, path.Dir(p))
		}
	}
	return util.Dedupe(dirs)
}

// sort sorts all slices for deterministic output.
func (cs *ChangeSet) sort() {
	slices.Sort(cs.New)
	slices.Sort(cs.Changed)
	slices.Sort(cs.Deleted)
	slices.Sort(cs.Unchanged)
}
