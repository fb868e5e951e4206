package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the per-command timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// ===================
// Command Execution Utilities
// ===================

// ExecContext executes a VCS command with timeout and context support.
// Stderr is captured and wrapped into the returned error so backend
// failures always surface their cause.
//
// Example:
//
//	output, err := ExecContext(ctx, 30*time.Second, repoRoot, "git", "status", "--porcelain")
func ExecContext(ctx context.Context, timeout time.Duration, workDir string, name string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, name, strings.Join(args, " "))
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, name)
		}
		if stderr.Len() > 0 {
			msg := strings.TrimSpace(stderr.String())
			// Lost the race for the index lock; another process holds
			// it briefly
			if strings.Contains(msg, "index.lock") {
				return nil, fmt.Errorf("%w: %s %s: %s",
					ErrLocked, name, strings.Join(args, " "), msg)
			}
			return nil, fmt.Errorf("%w: %s %s: %s",
				ErrBackend, name, strings.Join(args, " "), msg)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrBackend, name, strings.Join(args, " "), err)
	}

	return stdout.Bytes(), nil
}

// ExecRetry executes a command via ExecContext and retries once if the
// failure is transient (see IsRetryable). Deterministic failures are
// returned immediately; retrying them changes nothing.
func ExecRetry(ctx context.Context, timeout time.Duration, workDir string, name string, args ...string) ([]byte, error) {
	output, err := ExecContext(ctx, timeout, workDir, name, args...)
	if err == nil || !IsRetryable(err) {
		return output, err
	}

	return ExecContext(ctx, timeout, workDir, name, args...)
}

// ===================
// Output Parsing Utilities
// ===================

// ParseLines splits command output into non-empty lines.
// This is a common pattern for parsing VCS command output.
func ParseLines(output []byte) []string {
	if len(output) == 0 {
		return nil
	}

	lines := strings.Split(string(output), "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}

	return result
}

// TrimOutput trims whitespace and trailing newlines from command output.
func TrimOutput(output []byte) string {
	return strings.TrimSpace(string(output))
}

// UnquotePath undoes the C-style quoting git puts around paths containing
// special characters: surrounding quotes plus backslash escapes, including
// per-byte octal for non-ASCII names (`"caf\303\251.txt"`). Git's escape
// set is a subset of Go's, so strconv.Unquote decodes it; if decoding
// fails only the quotes are stripped.
func UnquotePath(path string) string {
	if !strings.HasPrefix(path, "\"") || !strings.HasSuffix(path, "\"") || len(path) < 2 {
		return path
	}

	if unquoted, err := strconv.Unquote(path); err == nil {
		return unquoted
	}
	return path[1 : len(path)-1]
}
