package integrity

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/albertocavalcante/filesentry/internal/log"
)

// BuildOptions configures the snapshot builder.
type BuildOptions struct {
	Workers int // concurrent hashing goroutines; <= 0 means runtime.NumCPU()
}

// Builder assembles a Snapshot by hashing every file the walker yields.
type Builder struct {
	walker  *Walker
	hasher  *Hasher
	workers int
}

// NewBuilder creates a builder.
func NewBuilder(walker *Walker, hasher *Hasher, opts BuildOptions) *Builder {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Builder{
		walker:  walker,
		hasher:  hasher,
		workers: workers,
	}
}

// Build walks the root and hashes every regular file.
//
// Files that cannot be read are recorded in ScanResult.Failures and left out
// of the snapshot. Build fails only when the root cannot be traversed or ctx
// is cancelled; in that case no partial result is returned.
func (b *Builder) Build(ctx context.Context) (*ScanResult, error) {
	logger := log.Component("builder")
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	var (
		mu       sync.Mutex
		entries  []Entry
		failures []*FileError
		total    int64
		walkErr  error
	)

	recordFailure := func(fe *FileError) {
		logger.Warnw("skipping unreadable file", "path", fe.Path, "op", fe.Op, "error", fe.Err)
		mu.Lock()
		failures = append(failures, fe)
		mu.Unlock()
	}

	for f, err := range b.walker.Files(gctx) {
		if err != nil {
			var fe *FileError
			if errors.As(err, &fe) {
				recordFailure(fe)
				continue
			}
			walkErr = err
			break
		}

		g.Go(func() error {
			digest, n, err := b.hasher.HashFile(gctx, f.Abs)
			if err != nil {
				var fe *FileError
				if errors.As(err, &fe) {
					recordFailure(&FileError{Op: fe.Op, Path: f.Rel, Err: fe.Err})
					return nil
				}
				return err
			}

			logger.Debugw("hashed file", "path", f.Rel, "digest", digest, "size", n)
			mu.Lock()
			entries = append(entries, Entry{
				Path:     f.Rel,
				Digest:   digest,
				Size:     n,
				Position: f.Position,
			})
			total += n
			mu.Unlock()
			return nil
		})
	}

	hashErr := g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hashErr != nil {
		return nil, hashErr
	}
	if walkErr != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", b.walker.Root(), walkErr)
	}

	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Path, b.Path) })
	slices.SortFunc(failures, func(a, b *FileError) int { return cmp.Compare(a.Path, b.Path) })

	snap := NewSnapshot(b.hasher.Algorithm())
	for _, e := range entries {
		snap.add(e.Path, e.Digest)
	}

	result := &ScanResult{
		Root:     b.walker.Root(),
		Snapshot: snap,
		Entries:  entries,
		Failures: failures,
		Bytes:    total,
		Duration: time.Since(start),
	}

	logger.Infow("scan complete",
		"root", result.Root,
		"files", len(entries),
		"failures", len(failures),
		"bytes", total,
		"duration", result.Duration)
	return result, nil
}
