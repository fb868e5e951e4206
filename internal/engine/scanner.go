// Package engine orchestrates conflict scanning and resolution over a VCS
// backend.
//
// The Scanner asks the backend for conflicted paths, reads each file, and
// parses it into a conflict.File aggregate. The Engine exposes the
// resolution operations: accept one side of a region, substitute arbitrary
// text, or resolve a whole file at once. Every mutation re-parses the new
// content before it is trusted; a file is only staged once a re-parse
// proves it conflict-free.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mendtool/mend/internal/conflict"
	"github.com/mendtool/mend/internal/vcs"
)

// ErrIO indicates a file read or write failure. Writes are retried once
// before this is returned.
var ErrIO = errors.New("file I/O failed")

// Scanner builds conflict.File aggregates for every conflicted path the
// backend reports.
type Scanner struct {
	backend     vcs.Backend
	root        string
	concurrency int
	log         *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithConcurrency bounds how many files are read and parsed in parallel.
func WithConcurrency(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithScanLogger sets the scanner's logger.
func WithScanLogger(log *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if log != nil {
			s.log = log
		}
	}
}

// NewScanner creates a Scanner over the given backend.
func NewScanner(backend vcs.Backend, opts ...ScannerOption) (*Scanner, error) {
	root, err := backend.RepoRoot()
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		backend:     backend,
		root:        root,
		concurrency: runtime.NumCPU(),
		log:         slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Scan returns one conflict.File per conflicted path.
//
// Files are processed concurrently; there is no shared mutable state
// across them. A file whose read or parse fails yields an aggregate with
// its Err set instead of aborting the batch, so one bad file never blocks
// reporting on the rest. Cancelling the context aborts remaining files.
func (s *Scanner) Scan(ctx context.Context) ([]*conflict.File, error) {
	paths, err := s.backend.ConflictedPaths(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Debug("scanning conflicted paths", "count", len(paths))

	files := make([]*conflict.File, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			files[i] = loadFile(s.root, path)
			if files[i].Err != nil {
				s.log.Warn("conflicted file unreadable or unparsable",
					"path", path, "error", files[i].Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return files, nil
}

// loadFile reads a repo-relative path and parses it into an aggregate.
// Failures are attached to the aggregate, never returned.
func loadFile(root, path string) *conflict.File {
	data, err := os.ReadFile(filepath.Join(root, path))
	if err != nil {
		return conflict.NewFailedFile(path, fmt.Errorf("%w: %v", ErrIO, err))
	}
	return conflict.NewFile(path, string(data))
}
