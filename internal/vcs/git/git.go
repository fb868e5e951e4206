// Package git provides a Git implementation of the vcs.Backend interface.
//
// This package wraps the git binary to provide the operations the conflict
// resolution engine needs: discovering conflicted paths, materializing one
// side of a conflict, staging resolved paths, and retrieving index blobs.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mendtool/mend/internal/vcs"
)

func init() {
	vcs.Register("git", func(repoPath string) (vcs.Backend, error) {
		return New(repoPath)
	})
}

// Git implements vcs.Backend for git repositories.
type Git struct {
	// repoRoot is the repository root directory path
	repoRoot string

	// gitDir is the .git directory path (may differ for worktrees)
	gitDir string

	// timeout bounds each git invocation
	timeout time.Duration
}

// Option configures a Git backend.
type Option func(*Git)

// WithTimeout sets the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Git) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New creates a Git backend for the given path.
// The path should be somewhere within a git repository.
func New(path string, opts ...Option) (*Git, error) {
	g := &Git{timeout: vcs.DefaultTimeout}

	for _, opt := range opts {
		opt(g)
	}

	if err := g.detect(path); err != nil {
		return nil, err
	}

	return g, nil
}

// detect populates repository information via a single rev-parse call.
func (g *Git) detect(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	cmd := exec.Command("git", "rev-parse", "--git-dir", "--show-toplevel")
	cmd.Dir = absPath

	output, err := cmd.Output()
	if err != nil {
		return vcs.ErrNotInRepo
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) < 2 {
		return fmt.Errorf("unexpected git rev-parse output: got %d lines, expected 2", len(lines))
	}

	gitDir := strings.TrimSpace(lines[0])
	repoRoot := strings.TrimSpace(lines[1])

	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(absPath, gitDir)
	}

	g.gitDir = gitDir
	g.repoRoot = normalizeRepoRoot(repoRoot)

	return nil
}

// normalizeRepoRoot resolves symlinks and normalizes separators so the
// root compares equal across platforms.
func normalizeRepoRoot(path string) string {
	path = filepath.FromSlash(path)

	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	return path
}

// Name returns the backend name.
func (g *Git) Name() string {
	return "git"
}

// RepoRoot returns the repository root directory path.
func (g *Git) RepoRoot() (string, error) {
	if g.repoRoot == "" {
		return "", vcs.ErrNotInRepo
	}
	return g.repoRoot, nil
}

// ConflictedPaths returns the unmerged paths reported by git status.
func (g *Git) ConflictedPaths(ctx context.Context) ([]string, error) {
	output, err := vcs.ExecRetry(ctx, g.timeout, g.repoRoot, "git", "status", "--porcelain=v1")
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(string(output), "\n") {
		if len(line) < 4 {
			continue
		}

		if !vcs.IsUnmergedCode(line[:2]) {
			continue
		}

		paths = append(paths, vcs.UnquotePath(strings.TrimSpace(line[3:])))
	}

	return paths, nil
}

// CheckoutOurs materializes the current branch's side of path.
func (g *Git) CheckoutOurs(ctx context.Context, path string) error {
	_, err := vcs.ExecRetry(ctx, g.timeout, g.repoRoot, "git", "checkout", "--ours", "--", path)
	return err
}

// CheckoutTheirs materializes the incoming branch's side of path.
func (g *Git) CheckoutTheirs(ctx context.Context, path string) error {
	_, err := vcs.ExecRetry(ctx, g.timeout, g.repoRoot, "git", "checkout", "--theirs", "--", path)
	return err
}

// Add stages path in the index.
func (g *Git) Add(ctx context.Context, path string) error {
	_, err := vcs.ExecRetry(ctx, g.timeout, g.repoRoot, "git", "add", "--", path)
	return err
}

// Show returns one side's blob content for a conflicted path directly
// from the index (stage 2 = ours, stage 3 = theirs).
func (g *Git) Show(ctx context.Context, path string, stage vcs.Stage) ([]byte, error) {
	spec := fmt.Sprintf(":%d:%s", int(stage), path)
	return vcs.ExecRetry(ctx, g.timeout, g.repoRoot, "git", "show", spec)
}
