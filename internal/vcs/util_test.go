package vcs

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestExecContext(t *testing.T) {
	ctx := context.Background()

	t.Run("captures stdout", func(t *testing.T) {
		output, err := ExecContext(ctx, DefaultTimeout, t.TempDir(), "echo", "hello")
		if err != nil {
			t.Fatalf("ExecContext() failed: %v", err)
		}
		if got := strings.TrimSpace(string(output)); got != "hello" {
			t.Errorf("output = %q, want %q", got, "hello")
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := ExecContext(ctx, DefaultTimeout, t.TempDir(), "definitely-not-a-real-binary-xyz")
		if !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("error = %v, want ErrBackendUnavailable", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := ExecContext(ctx, 50*time.Millisecond, t.TempDir(), "sleep", "5")
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("error = %v, want ErrTimeout", err)
		}
	})

	t.Run("stderr in error", func(t *testing.T) {
		_, err := ExecContext(ctx, DefaultTimeout, t.TempDir(), "sh", "-c", "echo boom >&2; exit 1")
		if !errors.Is(err, ErrBackend) {
			t.Fatalf("error = %v, want ErrBackend", err)
		}
		if !strings.Contains(err.Error(), "boom") {
			t.Errorf("error %q does not carry stderr", err)
		}
	})

	t.Run("index lock contention", func(t *testing.T) {
		_, err := ExecContext(ctx, DefaultTimeout, t.TempDir(), "sh", "-c",
			`echo "fatal: Unable to create '/repo/.git/index.lock': File exists." >&2; exit 128`)
		if !errors.Is(err, ErrLocked) {
			t.Fatalf("error = %v, want ErrLocked", err)
		}
		if !IsRetryable(err) {
			t.Error("lock contention not classified as retryable")
		}
	})
}

// A command that loses the index-lock race once and then succeeds must
// succeed through ExecRetry.
func TestExecRetryLockContention(t *testing.T) {
	dir := t.TempDir()

	script := `if [ -f done ]; then echo ok; else touch done; ` +
		`echo "fatal: Unable to create '.git/index.lock': File exists." >&2; exit 128; fi`

	output, err := ExecRetry(context.Background(), DefaultTimeout, dir, "sh", "-c", script)
	if err != nil {
		t.Fatalf("ExecRetry() failed: %v", err)
	}
	if got := strings.TrimSpace(string(output)); got != "ok" {
		t.Errorf("output = %q, want ok", got)
	}
}

func TestExecRetryDeterministicFailure(t *testing.T) {
	dir := t.TempDir()

	// A deterministic failure is returned immediately, not retried
	script := `touch "try-$(ls try-* 2>/dev/null | wc -l | tr -d ' ')"; echo nope >&2; exit 1`
	_, err := ExecRetry(context.Background(), DefaultTimeout, dir, "sh", "-c", script)
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("error = %v, want ErrBackend", err)
	}

	tries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(tries) != 1 {
		t.Errorf("command ran %d times, want 1", len(tries))
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		fatal     bool
	}{
		{"timeout", ErrTimeout, true, false},
		{"wrapped timeout", errors.Join(errors.New("ctx"), ErrTimeout), true, false},
		{"index locked", ErrLocked, true, false},
		{"backend unavailable", ErrBackendUnavailable, false, true},
		{"not in repo", ErrNotInRepo, false, true},
		{"generic backend", ErrBackend, false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.fatal)
			}
		})
	}
}

func TestParseLines(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{"empty", "", nil},
		{"single", "one\n", []string{"one"}},
		{"multiple with blanks", "a\n\nb\n  \nc\n", []string{"a", "b", "c"}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLines([]byte(tt.output))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestUnquotePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain.txt`, `plain.txt`},
		{`"with space.txt"`, `with space.txt`},
		{`""`, ``},
		{`"unterminated`, `"unterminated`},
		{`"caf\303\251.txt"`, "café.txt"},
		{`"tab\there.txt"`, "tab\there.txt"},
		{`"back\\slash.txt"`, `back\slash.txt`},
		{`"quote\".txt"`, `quote".txt`},
	}

	for _, tt := range tests {
		if got := UnquotePath(tt.in); got != tt.want {
			t.Errorf("UnquotePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsUnmergedCode(t *testing.T) {
	unmerged := []string{"DD", "AU", "UD", "UA", "DU", "AA", "UU"}
	for _, code := range unmerged {
		if !IsUnmergedCode(code) {
			t.Errorf("IsUnmergedCode(%q) = false", code)
		}
	}

	merged := []string{"M ", " M", "??", "A ", "R ", ""}
	for _, code := range merged {
		if IsUnmergedCode(code) {
			t.Errorf("IsUnmergedCode(%q) = true", code)
		}
	}
}
