package integrity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func newTestBuilder(t *testing.T, root, algorithm string, workers int) *Builder {
	t.Helper()
	w, err := NewWalker(root, WalkOptions{})
	if err != nil {
		t.Fatal(err)
	}
	h, err := NewHasher(algorithm)
	if err != nil {
		t.Fatal(err)
	}
	return NewBuilder(w, h, BuildOptions{Workers: workers})
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "abc",
		"empty.txt": "",
	})

	result, err := newTestBuilder(t, root, "md5", 2).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := map[string]string{
		"a.txt":     "5d41402abc4b2a76b9719d911017c592",
		"sub/b.txt": "900150983cd24fb0d6963f7d28e17f72",
		"empty.txt": "d41d8cd98f00b204e9800998ecf8427e",
	}
	snap := result.Snapshot
	if snap.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", snap.Len(), len(want))
	}
	for path, digest := range want {
		if got, _ := snap.Get(path); got != digest {
			t.Errorf("Get(%q) = %q, want %q", path, got, digest)
		}
	}
	if snap.Algorithm != "md5" || snap.Version != SnapshotVersion {
		t.Errorf("snapshot header = %s/v%d", snap.Algorithm, snap.Version)
	}

	if result.Bytes != 8 {
		t.Errorf("Bytes = %d, want 8", result.Bytes)
	}
	if len(result.Failures) != 0 {
		t.Errorf("Failures = %v, want none", result.Failures)
	}
	if len(result.Entries) != 3 || result.Entries[0].Path != "a.txt" || result.Entries[2].Path != "sub/b.txt" {
		t.Errorf("Entries not sorted by path: %+v", result.Entries)
	}
}

func TestBuildCountsBytesRead(t *testing.T) {
	root := t.TempDir()
	big := strings.Repeat("0123456789", 10000)
	writeTree(t, root, map[string]string{
		"big.bin":   big,
		"small.txt": "xy",
	})

	w, err := NewWalker(root, WalkOptions{})
	if err != nil {
		t.Fatal(err)
	}
	h, err := NewHasher("xxh64", WithBufferSize(512))
	if err != nil {
		t.Fatal(err)
	}
	result, err := NewBuilder(w, h, BuildOptions{Workers: 1}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantSizes := map[string]int64{"big.bin": int64(len(big)), "small.txt": 2}
	for _, e := range result.Entries {
		if e.Size != wantSizes[e.Path] {
			t.Errorf("Entry %s Size = %d, want %d", e.Path, e.Size, wantSizes[e.Path])
		}
	}
	if want := int64(len(big) + 2); result.Bytes != want {
		t.Errorf("Bytes = %d, want %d", result.Bytes, want)
	}
}

func TestBuildEmptyRoot(t *testing.T) {
	result, err := newTestBuilder(t, t.TempDir(), "sha256", 0).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if result.Snapshot.Len() != 0 {
		t.Errorf("Len() = %d, want 0", result.Snapshot.Len())
	}
}

func TestBuildDeterministic(t *testing.T) {
	root := t.TempDir()
	files := make(map[string]string)
	for i := range 50 {
		files[fmt.Sprintf("dir%d/file%02d.txt", i%5, i)] = fmt.Sprintf("content %d", i)
	}
	writeTree(t, root, files)

	var first *Snapshot
	for _, workers := range []int{1, 4, 16} {
		result, err := newTestBuilder(t, root, "xxh64", workers).Build(context.Background())
		if err != nil {
			t.Fatalf("Build(workers=%d) error = %v", workers, err)
		}
		if first == nil {
			first = result.Snapshot
			continue
		}
		cs := Diff(first, result.Snapshot)
		if !cs.IsEmpty() || len(cs.Unchanged) != len(files) {
			t.Errorf("workers=%d: snapshot differs: %+v", workers, cs)
		}
	}
}

func TestBuildRecordsUnreadableFiles(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{"ok.txt": "ok", "secret.txt": "secret"})
	secret := filepath.Join(root, "secret.txt")
	if err := os.Chmod(secret, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(secret, 0o644) })

	result, err := newTestBuilder(t, root, "md5", 2).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, ok := result.Snapshot.Get("secret.txt"); ok {
		t.Error("unreadable file should not be in the snapshot")
	}
	if _, ok := result.Snapshot.Get("ok.txt"); !ok {
		t.Error("readable file missing from snapshot")
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %v, want 1", result.Failures)
	}
	fe := result.Failures[0]
	if fe.Path != "secret.txt" || fe.Op != "open" || !errors.Is(fe, ErrFileUnreadable) {
		t.Errorf("failure = %+v, want open secret.txt", fe)
	}
}

func TestBuildCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestBuilder(t, root, "md5", 1).Build(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
	if result != nil {
		t.Error("Build() returned a partial result after cancellation")
	}
}
