package integrity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newTestTracker(t *testing.T, root, algorithm string) *Tracker {
	t.Helper()
	tr, err := NewTracker(TrackerConfig{
		Root:      root,
		Algorithm: algorithm,
		Baseline:  DefaultBaselinePath(root),
		Workers:   2,
	})
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	return tr
}

func TestTrackerFirstRun(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello", "b.txt": "abc"})

	tr := newTestTracker(t, root, "md5")
	if tr.HasState() {
		t.Error("HasState() should be false before the first run")
	}

	run, err := tr.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if run.LoadStatus != StatusMissing || !run.Changes.Initial {
		t.Errorf("first run = %v initial=%v, want missing initial", run.LoadStatus, run.Changes.Initial)
	}
	if !slices.Equal(run.Changes.New, []string{"a.txt", "b.txt"}) {
		t.Errorf("New = %v, want [a.txt b.txt]", run.Changes.New)
	}
	if !run.Saved || !tr.HasState() {
		t.Error("first run should save the baseline")
	}
	if got := tr.TrackedFileCount(); got != 2 {
		t.Errorf("TrackedFileCount() = %d, want 2", got)
	}
}

func TestTrackerDetectsChanges(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "1", "b.txt": "2"})

	tr := newTestTracker(t, root, "sha256")
	if _, err := tr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	writeTree(t, root, map[string]string{"b.txt": "changed", "c.txt": "3"})
	if err := os.Remove(filepath.Join(root, "a.txt")); err != nil {
		t.Fatal(err)
	}

	run, err := tr.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	cs := run.Changes
	if cs.Initial || run.LoadStatus != StatusLoaded {
		t.Errorf("Status() = %v initial=%v, want loaded comparison", run.LoadStatus, cs.Initial)
	}
	if !slices.Equal(cs.New, []string{"c.txt"}) ||
		!slices.Equal(cs.Changed, []string{"b.txt"}) ||
		!slices.Equal(cs.Deleted, []string{"a.txt"}) {
		t.Errorf("changes = %+v", cs)
	}
	if run.Saved {
		t.Error("Status() must not save")
	}

	// Status leaves the baseline untouched, so Check sees the same diff
	run, err = tr.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Changes.TotalChanges() != 3 {
		t.Errorf("Check() TotalChanges = %d, want 3", run.Changes.TotalChanges())
	}

	run, err = tr.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !run.Changes.IsEmpty() {
		t.Errorf("second Check() = %+v, want no changes", run.Changes)
	}
}

func TestTrackerIgnoresOwnState(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})

	baseline := filepath.Join(root, "baseline.json")
	tr, err := NewTracker(TrackerConfig{Root: root, Algorithm: "md5", Baseline: baseline})
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		run, err := tr.Check(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := run.Scan.Snapshot.Get("baseline.json"); ok {
			t.Fatal("baseline file was scanned")
		}
	}
}

func TestTrackerAlgorithmMismatch(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})

	if _, err := newTestTracker(t, root, "md5").Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	run, err := newTestTracker(t, root, "xxh64").Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.LoadStatus != StatusAlgorithmMismatch {
		t.Errorf("LoadStatus = %v, want algorithm_mismatch", run.LoadStatus)
	}
	if !run.Changes.Initial || len(run.Changes.Changed) != 0 {
		t.Errorf("mismatch should be a first capture, got %+v", run.Changes)
	}
	if run.Baseline != nil {
		t.Error("mismatched baseline should be discarded")
	}
}

func TestTrackerLegacyBaseline(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello", "b.txt": "abc"})

	baseline := DefaultBaselinePath(root)
	writeTree(t, root, map[string]string{
		".filesentry/baseline.json": `{"a.txt": "5d41402abc4b2a76b9719d911017c592", "b.txt": "00000000000000000000000000000000"}`,
	})

	tr, err := NewTracker(TrackerConfig{Root: root, Algorithm: "md5", Baseline: baseline})
	if err != nil {
		t.Fatal(err)
	}
	run, err := tr.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.LoadStatus != StatusLoaded {
		t.Fatalf("LoadStatus = %v, want loaded", run.LoadStatus)
	}
	if !slices.Equal(run.Changes.Changed, []string{"b.txt"}) || len(run.Changes.New) != 0 {
		t.Errorf("changes = %+v, want changed [b.txt]", run.Changes)
	}

	// Digest width rules out sha256
	tr, err = NewTracker(TrackerConfig{Root: root, Algorithm: "sha256", Baseline: baseline})
	if err != nil {
		t.Fatal(err)
	}
	run, err = tr.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.LoadStatus != StatusAlgorithmMismatch {
		t.Errorf("LoadStatus = %v, want algorithm_mismatch", run.LoadStatus)
	}
}

func TestTrackerEmptyLegacyBaseline(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":                     "a",
		".filesentry/baseline.json": "{}",
	})

	run, err := newTestTracker(t, root, "md5").Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if run.LoadStatus != StatusLoaded || !run.Changes.Initial {
		t.Errorf("LoadStatus = %v initial=%v, want loaded first capture", run.LoadStatus, run.Changes.Initial)
	}
	if !slices.Equal(run.Changes.New, []string{"a.txt"}) {
		t.Errorf("New = %v, want [a.txt]", run.Changes.New)
	}
}

func TestTrackerRawBytePathStable(t *testing.T) {
	root := t.TempDir()
	name := "bad\xffname"
	if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
		t.Skipf("filesystem rejects non-UTF-8 names: %v", err)
	}

	tr := newTestTracker(t, root, "md5")
	if _, err := tr.Check(context.Background()); err != nil {
		t.Fatalf("first Check() error = %v", err)
	}

	run, err := tr.Check(context.Background())
	if err != nil {
		t.Fatalf("second Check() error = %v", err)
	}
	if !run.Changes.IsEmpty() {
		t.Errorf("second Check() = %+v, want no changes", run.Changes)
	}
	if _, ok := run.Baseline.Get(name); !ok {
		t.Errorf("baseline lost %q: %v", name, run.Baseline.Paths())
	}
}

func TestTrackerCorruptBaseline(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":                     "a",
		".filesentry/baseline.json": "{not json",
	})

	run, err := newTestTracker(t, root, "md5").Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if run.LoadStatus != StatusCorrupt || !run.Changes.Initial {
		t.Errorf("LoadStatus = %v initial=%v, want corrupt first run", run.LoadStatus, run.Changes.Initial)
	}
	if !run.Saved {
		t.Error("corrupt baseline should be replaced")
	}
}

func TestNewTrackerValidation(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name string
		cfg  TrackerConfig
		want error
	}{
		{
			name: "bad algorithm checked before root",
			cfg:  TrackerConfig{Root: filepath.Join(root, "missing"), Algorithm: "crc32", Baseline: "b.json"},
			want: ErrUnsupportedAlgorithm,
		},
		{
			name: "missing root",
			cfg:  TrackerConfig{Root: filepath.Join(root, "missing"), Algorithm: "md5", Baseline: "b.json"},
			want: ErrRootNotFound,
		},
		{
			name: "bad exclude",
			cfg:  TrackerConfig{Root: root, Algorithm: "md5", Baseline: "b.json", Exclude: []string{"[x"}},
			want: ErrInvalidPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTracker(tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewTracker() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := NewTracker(TrackerConfig{Root: root, Algorithm: "md5"}); err == nil {
		t.Error("NewTracker() without baseline should fail")
	}
}
