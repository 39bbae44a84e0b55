package integrity

import (
	"slices"
	"testing"
)

func snapshotOf(files map[string]string) *Snapshot {
	s := NewSnapshot("md5")
	for p, d := range files {
		s.add(p, d)
	}
	return s
}

func TestDiff(t *testing.T) {
	old := snapshotOf(map[string]string{
		"unchanged.txt": "aaa",
		"modified.txt":  "bbb",
		"deleted.txt":   "ccc",
	})
	cur := snapshotOf(map[string]string{
		"unchanged.txt": "aaa",
		"modified.txt":  "bbb-changed",
		"added.txt":     "ddd",
	})

	cs := Diff(old, cur)

	if cs.Initial {
		t.Error("Initial should be false when a baseline exists")
	}
	if !slices.Equal(cs.New, []string{"added.txt"}) {
		t.Errorf("New = %v, want [added.txt]", cs.New)
	}
	if !slices.Equal(cs.Changed, []string{"modified.txt"}) {
		t.Errorf("Changed = %v, want [modified.txt]", cs.Changed)
	}
	if !slices.Equal(cs.Deleted, []string{"deleted.txt"}) {
		t.Errorf("Deleted = %v, want [deleted.txt]", cs.Deleted)
	}
	if !slices.Equal(cs.Unchanged, []string{"unchanged.txt"}) {
		t.Errorf("Unchanged = %v, want [unchanged.txt]", cs.Unchanged)
	}
}

func TestDiffExample(t *testing.T) {
	old := snapshotOf(map[string]string{"a.txt": "h1", "b.txt": "h2"})
	cur := snapshotOf(map[string]string{"a.txt": "h1", "b.txt": "h3", "c.txt": "h4"})

	cs := Diff(old, cur)
	if !slices.Equal(cs.New, []string{"c.txt"}) ||
		!slices.Equal(cs.Changed, []string{"b.txt"}) ||
		len(cs.Deleted) != 0 {
		t.Errorf("Diff() = %+v, want new [c.txt] changed [b.txt]", cs)
	}

	// Deleting a.txt afterwards
	next := snapshotOf(map[string]string{"b.txt": "h3", "c.txt": "h4"})
	cs = Diff(cur, next)
	if !slices.Equal(cs.Deleted, []string{"a.txt"}) || len(cs.New) != 0 || len(cs.Changed) != 0 {
		t.Errorf("Diff() = %+v, want deleted [a.txt]", cs)
	}
}

func TestDiffIdempotent(t *testing.T) {
	s := snapshotOf(map[string]string{"a": "1", "dir/b": "2"})
	cs := Diff(s, s)
	if !cs.IsEmpty() {
		t.Errorf("Diff(s, s) = %+v, want empty", cs)
	}
	if len(cs.Unchanged) != 2 {
		t.Errorf("Unchanged = %v, want 2 paths", cs.Unchanged)
	}
}

func TestDiffFirstRun(t *testing.T) {
	cur := snapshotOf(map[string]string{"b": "2", "a": "1"})

	cs := Diff(nil, cur)
	if !cs.Initial {
		t.Error("Initial should be true without a baseline")
	}
	if !slices.Equal(cs.New, []string{"a", "b"}) {
		t.Errorf("New = %v, want [a b]", cs.New)
	}
	if len(cs.Changed) != 0 || len(cs.Deleted) != 0 {
		t.Errorf("first run reported changes: %+v", cs)
	}
}

func TestDiffEmptyBaseline(t *testing.T) {
	cs := Diff(NewSnapshot("md5"), snapshotOf(map[string]string{"a": "1"}))
	if !cs.Initial {
		t.Error("a baseline without files should count as a first capture")
	}
	if !slices.Equal(cs.New, []string{"a"}) {
		t.Errorf("New = %v, want [a]", cs.New)
	}
}

func TestDiffEmptyBaselineNoFiles(t *testing.T) {
	cs := Diff(NewSnapshot("md5"), NewSnapshot("md5"))
	if !cs.Initial || !cs.IsEmpty() {
		t.Errorf("empty against empty = %+v, want initial with no changes", cs)
	}
}

func TestChangeSetIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		cs   *ChangeSet
		want bool
	}{
		{"nil", nil, true},
		{"empty", NewChangeSet(), true},
		{"only unchanged", &ChangeSet{Unchanged: []string{"a"}}, true},
		{"has new", &ChangeSet{New: []string{"a"}}, false},
		{"has changed", &ChangeSet{Changed: []string{"a"}}, false},
		{"has deleted", &ChangeSet{Deleted: []string{"a"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cs.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChangeSetTotalChanges(t *testing.T) {
	cs := &ChangeSet{
		New:       []string{"a", "b"},
		Changed:   []string{"c"},
		Deleted:   []string{"d", "e", "f"},
		Unchanged: []string{"g"},
	}
	if got := cs.TotalChanges(); got != 6 {
		t.Errorf("TotalChanges() = %d, want 6", got)
	}

	var nilCS *ChangeSet
	if got := nilCS.TotalChanges(); got != 0 {
		t.Errorf("nil TotalChanges() = %d, want 0", got)
	}
}

func TestChangeSetAffectedDirs(t *testing.T) {
	cs := &ChangeSet{
		New:     []string{"src/a.go", "top.txt"},
		Changed: []string{"src/b.go", "pkg/util/c.go"},
		Deleted: []string{"docs/old.md"},
	}

	want := []string{".", "docs", "pkg/util", "src"}
	if got := cs.AffectedDirs(); !slices.Equal(got, want) {
		t.Errorf("AffectedDirs() = %v, want %v", got, want)
	}
}
