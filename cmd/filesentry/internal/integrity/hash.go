package integrity

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// DefaultBufferSize is the chunk size used for streaming reads.
const DefaultBufferSize = 64 * 1024

// Algorithm describes a supported digest algorithm.
type Algorithm struct {
	Name string
	Bits int
	New  func() hash.Hash
}

// HexLen returns the length of a hex digest produced by the algorithm.
func (a Algorithm) HexLen() int {
	return a.Bits / 4
}

var algorithms = map[string]Algorithm{
	"blake2b": {Name: "blake2b", Bits: 256, New: newBlake2b},
	"md5":     {Name: "md5", Bits: 128, New: md5.New},
	"sha256":  {Name: "sha256", Bits: 256, New: sha256.New},
	"xxh64":   {Name: "xxh64", Bits: 64, New: func() hash.Hash { return xxhash.New() }},
}

func newBlake2b() hash.Hash {
	h, _ := blake2b.New256(nil) // only fails for keys over 64 bytes
	return h
}

// LookupAlgorithm returns the algorithm registered under name (case-insensitive).
func LookupAlgorithm(name string) (Algorithm, error) {
	algo, ok := algorithms[strings.ToLower(name)]
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedAlgorithm, name, strings.Join(Algorithms(), ", "))
	}
	return algo, nil
}

// Algorithms returns the sorted names of all supported algorithms.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Hasher computes content digests with a fixed algorithm.
// A Hasher is safe for concurrent use; each call allocates its own state.
type Hasher struct {
	algo     Algorithm
	bufSize  int
	readRate int64
}

// HasherOption configures a Hasher.
type HasherOption func(*Hasher)

// WithReadRate caps read throughput per file in bytes per second.
// Zero or negative means unlimited.
func WithReadRate(bytesPerSecond int64) HasherOption {
	return func(h *Hasher) {
		h.readRate = bytesPerSecond
	}
}

// WithBufferSize sets the streaming chunk size.
func WithBufferSize(n int) HasherOption {
	return func(h *Hasher) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

// NewHasher creates a hasher for the named algorithm.
func NewHasher(algorithm string, opts ...HasherOption) (*Hasher, error) {
	algo, err := LookupAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}

	h := &Hasher{algo: algo, bufSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Algorithm returns the hasher's algorithm name.
func (h *Hasher) Algorithm() string {
	return h.algo.Name
}

// HashFile streams the file at path through the digest and returns the hex
// string with the number of bytes read. Open and read failures are returned
// as *FileError. A cancelled context stops the read between chunks and is
// returned as-is.
func (h *Hasher) HashFile(ctx context.Context, path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, &FileError{Op: "open", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = &contextReader{ctx: ctx, r: f}
	if h.readRate > 0 {
		r = newThrottledReader(ctx, r, h.readRate)
	}

	d := h.algo.New()
	buf := make([]byte, h.bufSize)
	n, err := io.CopyBuffer(d, r, buf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", 0, ctxErr
		}
		return "", 0, &FileError{Op: "read", Path: path, Err: err}
	}

	return hex.EncodeToString(d.Sum(nil)), n, nil
}

// HashBytes digests in-memory content, returns hex string.
func (h *Hasher) HashBytes(data []byte) string {
	d := h.algo.New()
	_, _ = d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}

// contextReader fails reads once its context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
