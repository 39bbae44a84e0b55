package integrity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/albertocavalcante/filesentry/internal/log"
)

// StateDir is the directory holding filesentry state inside a scan root.
// It is never scanned.
const StateDir = ".filesentry"

// WalkOptions configures the walker.
type WalkOptions struct {
	// Exclude holds doublestar patterns matched against root-relative paths.
	// A matching directory is pruned with its whole subtree.
	Exclude []string

	// Skip holds paths (absolute or relative to the working directory) that
	// are never yielded, such as the baseline file when it lives under root.
	Skip []string
}

// File is a regular file found under the scan root.
type File struct {
	Abs      string // absolute path on disk
	Rel      string // root-relative, forward slashes
	Position int    // index among regular files of its directory, lexical order
	Size     int64
}

// Walker lists regular files under a root directory.
//
// Symlinks are never followed and never yielded, whether they point at files
// or directories. A symlinked root is resolved once up front.
type Walker struct {
	root    string
	exclude []string
	skip    map[string]struct{}
}

// errStopWalk ends the walk when the consumer stops iterating.
var errStopWalk = errors.New("walk stopped")

// NewWalker validates root and returns a walker for it.
func NewWalker(root string, opts WalkOptions) (*Walker, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, root)
	}

	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
	}

	w := &Walker{
		root:    resolved,
		exclude: opts.Exclude,
		skip:    map[string]struct{}{StateDir: {}},
	}
	for _, p := range opts.Skip {
		for _, rel := range relativeCandidates(abs, resolved, p) {
			w.skip[rel] = struct{}{}
		}
	}
	return w, nil
}

// Root returns the resolved absolute root directory.
func (w *Walker) Root() string {
	return w.root
}

// Files returns a lazy sequence of the regular files under the root.
//
// Errors paired with a zero File are either per-entry failures (*FileError,
// the walk continues) or fatal ones (root unreadable, context done) that end
// the sequence. Entries are visited in lexical order within each directory.
func (w *Walker) Files(ctx context.Context) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		positions := make(map[string]int)

		err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				if path == w.root {
					return err
				}
				fe := &FileError{Op: "walk", Path: w.rel(path), Err: err}
				if !yield(File{}, fe) {
					return errStopWalk
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if path == w.root {
				return nil
			}

			rel := w.rel(path)
			if w.skipped(rel) {
				log.Trace("skipping excluded path", "path", rel)
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			mode := d.Type()
			switch {
			case d.IsDir():
				return nil
			case mode&fs.ModeSymlink != 0:
				log.Trace("skipping symlink", "path", rel)
				return nil
			case !mode.IsRegular():
				log.Trace("skipping non-regular file", "path", rel, "mode", mode.String())
				return nil
			}

			info, err := d.Info()
			if err != nil {
				// Removed between listing and stat
				if !yield(File{}, &FileError{Op: "stat", Path: rel, Err: err}) {
					return errStopWalk
				}
				return nil
			}

			dir := filepath.Dir(path)
			pos := positions[dir]
			positions[dir] = pos + 1

			if !yield(File{Abs: path, Rel: rel, Position: pos, Size: info.Size()}, nil) {
				return errStopWalk
			}
			return nil
		})

		if err != nil && !errors.Is(err, errStopWalk) {
			yield(File{}, err)
		}
	}
}

// rel converts an absolute path under root to a slash-separated relative path.
func (w *Walker) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// skipped reports whether rel is a skipped path or matches an exclude pattern.
func (w *Walker) skipped(rel string) bool {
	if _, ok := w.skip[rel]; ok {
		return true
	}
	for _, pattern := range w.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// relativeCandidates returns the root-relative forms of p, trying both the
// root as given and its symlink-resolved form. Paths outside root yield none.
func relativeCandidates(absRoot, resolvedRoot, p string) []string {
	absP, err := filepath.Abs(p)
	if err != nil {
		return nil
	}

	var out []string
	add := func(root, target string) {
		rel, err := filepath.Rel(root, target)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return
		}
		out = append(out, filepath.ToSlash(rel))
	}

	add(absRoot, absP)
	add(resolvedRoot, absP)
	if dir, err := filepath.EvalSymlinks(filepath.Dir(absP)); err == nil {
		add(resolvedRoot, filepath.Join(dir, filepath.Base(absP)))
	}
	return out
}
