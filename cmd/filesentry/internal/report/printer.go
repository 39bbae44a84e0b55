// Package report renders integrity runs for humans or as JSON lines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/integrity"
)

// Mark is the one-character prefix of a reported path.
type Mark string

const (
	MarkNew        Mark = "+"
	MarkChanged    Mark = "~"
	MarkDeleted    Mark = "-"
	MarkUnreadable Mark = "!"
)

// Printer handles command output formatting.
type Printer struct {
	writer  io.Writer
	isTTY   bool
	verbose bool
	noColor bool
	jsonOut bool
}

// PrinterConfig configures the printer.
type PrinterConfig struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

// NewPrinter creates a new printer with the given configuration.
func NewPrinter(cfg PrinterConfig) *Printer {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Printer{
		writer:  writer,
		isTTY:   isTTY,
		verbose: cfg.Verbose,
		noColor: cfg.NoColor,
		jsonOut: cfg.JSON,
	}
}

type failureJSON struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

func failuresJSON(failures []*integrity.FileError) []failureJSON {
	out := make([]failureJSON, 0, len(failures))
	for _, f := range failures {
		out = append(out, failureJSON{Path: f.Path, Op: f.Op, Error: f.Err.Error()})
	}
	return out
}

// Run reports the outcome of a check or status run.
//
// A first capture is never presented as a diff: it states how many files
// were recorded and why no comparison was possible.
func (p *Printer) Run(run *integrity.Run) {
	scan, cs := run.Scan, run.Changes

	if p.jsonOut {
		p.writeJSON(map[string]any{
			"event":       "run",
			"root":        scan.Root,
			"algorithm":   scan.Snapshot.Algorithm,
			"baseline":    run.LoadStatus.String(),
			"initial":     cs.Initial,
			"files":       scan.Snapshot.Len(),
			"new":         cs.New,
			"changed":     cs.Changed,
			"deleted":     cs.Deleted,
			"failures":    failuresJSON(scan.Failures),
			"bytes":       scan.Bytes,
			"duration_ms": scan.Duration.Milliseconds(),
			"saved":       run.Saved,
		})
		return
	}

	switch {
	case cs.Initial && run.Saved:
		p.printf("filesentry: first capture of %d files in %s (baseline %s)\n",
			scan.Snapshot.Len(), scan.Root, describeStatus(run.LoadStatus))
		if p.verbose {
			p.paths(MarkNew, cs.New)
		}
	case cs.Initial:
		p.printf("filesentry: nothing to compare for %s, %d files (baseline %s)\n",
			scan.Root, scan.Snapshot.Len(), describeStatus(run.LoadStatus))
	case cs.IsEmpty():
		p.printf("filesentry: no changes in %s (%d files)\n", scan.Root, scan.Snapshot.Len())
	default:
		p.printf("filesentry: %d changes in %s (%d new, %d changed, %d deleted)\n",
			cs.TotalChanges(), scan.Root, len(cs.New), len(cs.Changed), len(cs.Deleted))
		p.paths(MarkNew, cs.New)
		p.paths(MarkChanged, cs.Changed)
		p.paths(MarkDeleted, cs.Deleted)
	}

	p.failures(scan.Failures)

	if p.verbose {
		p.printf("filesentry: hashed %d bytes in %s\n", scan.Bytes, scan.Duration.Round(time.Millisecond))
	}
	if !run.Saved && !cs.Initial && !cs.IsEmpty() {
		p.println("filesentry: baseline not updated")
	}
}

// Captured reports a baseline written by update.
func (p *Printer) Captured(scan *integrity.ScanResult, baseline string) {
	if p.jsonOut {
		p.writeJSON(map[string]any{
			"event":     "captured",
			"root":      scan.Root,
			"algorithm": scan.Snapshot.Algorithm,
			"files":     scan.Snapshot.Len(),
			"failures":  failuresJSON(scan.Failures),
			"baseline":  baseline,
		})
		return
	}

	checkmark := p.colorize("✓", MarkNew)
	p.printf("%s captured %d files from %s into %s\n", checkmark, scan.Snapshot.Len(), scan.Root, baseline)
	p.failures(scan.Failures)
}

// Digest reports one file digest in the two-space layout of md5sum.
func (p *Printer) Digest(path, algorithm, digest string) {
	if p.jsonOut {
		p.writeJSON(map[string]any{
			"event":     "digest",
			"path":      path,
			"algorithm": algorithm,
			"digest":    digest,
		})
		return
	}
	p.printf("%s  %s\n", digest, path)
}

// Error reports a failure.
func (p *Printer) Error(err error) {
	if p.jsonOut {
		p.writeJSON(map[string]any{
			"event": "error",
			"error": err.Error(),
		})
		return
	}

	xmark := p.colorize("✗", MarkDeleted)
	p.printf("%s error: %v\n", xmark, err)
}

func (p *Printer) paths(mark Mark, paths []string) {
	for _, path := range paths {
		p.printf("  %s %s\n", p.colorize(string(mark), mark), path)
	}
}

func (p *Printer) failures(failures []*integrity.FileError) {
	if len(failures) == 0 {
		return
	}
	p.printf("filesentry: %d files could not be read\n", len(failures))
	for _, f := range failures {
		p.printf("  %s %s: %v\n", p.colorize(string(MarkUnreadable), MarkUnreadable), f.Path, f.Err)
	}
}

func describeStatus(s integrity.LoadStatus) string {
	switch s {
	case integrity.StatusLoaded:
		return "had no files"
	case integrity.StatusEmpty:
		return "was empty"
	case integrity.StatusCorrupt:
		return "was unreadable"
	case integrity.StatusAlgorithmMismatch:
		return "used a different algorithm"
	default:
		return "not found"
	}
}

// colorize applies ANSI color codes based on the mark.
func (p *Printer) colorize(s string, mark Mark) string {
	if p.noColor || !p.isTTY {
		return s
	}

	var color string
	switch mark {
	case MarkNew:
		color = "\033[32m" // green
	case MarkChanged:
		color = "\033[33m" // yellow
	case MarkDeleted, MarkUnreadable:
		color = "\033[31m" // red
	default:
		return s
	}
	return color + s + "\033[0m"
}

// writeJSON writes a JSON object to the output.
func (p *Printer) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		// Write a minimal error event so tooling knows something went wrong
		p.println(`{"event":"internal_error","error":"json marshal failed"}`)
		return
	}
	p.println(string(data))
}

// printf writes a formatted string to the writer, ignoring errors.
func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.writer, format, args...)
}

// println writes a line to the writer, ignoring errors.
func (p *Printer) println(args ...any) {
	_, _ = fmt.Fprintln(p.writer, args...)
}
