package integrity

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/albertocavalcante/filesentry/internal/log"
)

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	Root      string
	Algorithm string
	Baseline  string   // baseline file path; required unless Store is set
	Format    string   // baseline codec; empty infers from the Baseline extension
	Exclude   []string // doublestar patterns relative to Root
	Workers   int
	ReadRate  int64 // bytes per second per file; 0 disables throttling
	Store     Store // overrides Baseline and Format
}

// Run is the outcome of one Check or Status.
type Run struct {
	Scan       *ScanResult
	Changes    *ChangeSet
	LoadStatus LoadStatus
	Baseline   *Snapshot // previous snapshot; nil on first capture
	Saved      bool
}

// Tracker provides the end-to-end integrity run: build a snapshot, compare it
// with the stored baseline and persist it.
//
// Tracker does not serialize concurrent runs against the same baseline.
type Tracker struct {
	store   Store
	builder *Builder
	hasher  *Hasher
	root    string
}

// NewTracker validates cfg and wires the pipeline. The algorithm is checked
// before the root so a bad algorithm fails without touching the filesystem.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	var opts []HasherOption
	if cfg.ReadRate > 0 {
		opts = append(opts, WithReadRate(cfg.ReadRate))
	}
	hasher, err := NewHasher(cfg.Algorithm, opts...)
	if err != nil {
		return nil, err
	}

	store := cfg.Store
	if store == nil {
		if cfg.Baseline == "" {
			return nil, fmt.Errorf("baseline path is required")
		}
		codec, err := CodecFor(cfg.Format, cfg.Baseline)
		if err != nil {
			return nil, err
		}
		store = NewFileStore(cfg.Baseline, codec)
	}

	skip := []string{store.Path(), store.Path() + ".tmp", store.Path() + ".lock"}
	walker, err := NewWalker(cfg.Root, WalkOptions{Exclude: cfg.Exclude, Skip: skip})
	if err != nil {
		return nil, err
	}

	return &Tracker{
		store:   store,
		builder: NewBuilder(walker, hasher, BuildOptions{Workers: cfg.Workers}),
		hasher:  hasher,
		root:    walker.Root(),
	}, nil
}

// Root returns the resolved root directory.
func (t *Tracker) Root() string {
	return t.root
}

// Store returns the baseline store.
func (t *Tracker) Store() Store {
	return t.store
}

// Check runs the full pipeline and saves the new snapshot as the baseline.
func (t *Tracker) Check(ctx context.Context) (*Run, error) {
	run, err := t.Status(ctx)
	if err != nil {
		return nil, err
	}

	if err := t.store.Save(run.Scan.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to save baseline: %w", err)
	}
	run.Saved = true
	return run, nil
}

// Status compares the current tree with the baseline without modifying it.
func (t *Tracker) Status(ctx context.Context) (*Run, error) {
	scan, err := t.builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	old, status, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline: %w", err)
	}

	var baseline *Snapshot
	switch {
	case status != StatusLoaded:
		// first run: nothing to compare
	case !t.compatible(old):
		log.Warn("baseline algorithm differs, recapturing",
			"baseline", t.store.Path(),
			"stored", old.Algorithm,
			"configured", t.hasher.Algorithm())
		status = StatusAlgorithmMismatch
	default:
		baseline = old
	}

	return &Run{
		Scan:       scan,
		Changes:    Diff(baseline, scan.Snapshot),
		LoadStatus: status,
		Baseline:   baseline,
	}, nil
}

// Refresh captures the current tree as the new baseline unconditionally.
func (t *Tracker) Refresh(ctx context.Context) (*ScanResult, error) {
	scan, err := t.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.store.Save(scan.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to save baseline: %w", err)
	}
	return scan, nil
}

// HasState returns true if a previous baseline exists.
func (t *Tracker) HasState() bool {
	return t.store.Exists()
}

// TrackedFileCount returns the number of files in the stored baseline.
// Returns 0 if no baseline exists or on error.
func (t *Tracker) TrackedFileCount() int {
	snap, status, err := t.store.Load()
	if err != nil || status != StatusLoaded {
		return 0
	}
	return snap.Len()
}

// compatible reports whether old can be compared with snapshots produced by
// the configured hasher. Legacy baselines carry no algorithm; their digest
// width decides.
func (t *Tracker) compatible(old *Snapshot) bool {
	if old.Algorithm != "" {
		return old.Algorithm == t.hasher.Algorithm()
	}
	algo, err := LookupAlgorithm(t.hasher.Algorithm())
	if err != nil {
		return false
	}
	for _, d := range old.Files {
		if len(d) != algo.HexLen() {
			return false
		}
	}
	return true
}

// DefaultBaselinePath returns the baseline location used when none is configured.
func DefaultBaselinePath(root string) string {
	return filepath.Join(root, StateDir, "baseline.json")
}
