// Package vcs defines the version-control backend consumed by the conflict
// resolution engine.
//
// The engine decides what to write and which backend calls to issue; this
// package abstracts how those calls are executed. The design follows a
// registry pattern: implementations register a constructor and callers
// create backends by name, which keeps the engine testable against a fake.
//
// # Usage
//
//	b, err := vcs.New("git", repoPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := b.ConflictedPaths(ctx)
//
// # Implementations
//
//   - internal/vcs/git: exec-based git implementation
package vcs

import (
	"context"
)

// Stage identifies an index stage of a conflicted path.
type Stage int

const (
	// StageOurs is the current branch's blob (index stage 2)
	StageOurs Stage = 2

	// StageTheirs is the incoming branch's blob (index stage 3)
	StageTheirs Stage = 3
)

// Backend defines the version-control operations the engine consumes.
//
// All paths are relative to the repository root. Implementations carry a
// timeout per command and may retry transient failures once; callers never
// retry deterministic failures.
type Backend interface {
	// Name returns the backend name (e.g. "git")
	Name() string

	// RepoRoot returns the repository root directory path
	RepoRoot() (string, error)

	// ConflictedPaths returns the paths currently in a conflicted
	// (unmerged) state, in the backend's reporting order.
	ConflictedPaths(ctx context.Context) ([]string, error)

	// CheckoutOurs materializes the current branch's side of a conflicted
	// path into the working tree.
	CheckoutOurs(ctx context.Context, path string) error

	// CheckoutTheirs materializes the incoming branch's side of a
	// conflicted path into the working tree.
	CheckoutTheirs(ctx context.Context, path string) error

	// Add stages a resolved path in the index
	Add(ctx context.Context, path string) error

	// Show returns the blob content of one side of a conflicted path
	// directly from the index, bypassing marker parsing. Useful for
	// binary-safe retrieval or when working-tree markers are corrupted.
	Show(ctx context.Context, path string, stage Stage) ([]byte, error)
}

// unmergedCodes are the porcelain XY status codes that mark a path as
// conflicted.
var unmergedCodes = map[string]bool{
	"DD": true,
	"AU": true,
	"UD": true,
	"UA": true,
	"DU": true,
	"AA": true,
	"UU": true,
}

// IsUnmergedCode reports whether a two-letter porcelain status code marks
// a conflicted path.
func IsUnmergedCode(code string) bool {
	return unmergedCodes[code]
}
