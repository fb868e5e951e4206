package vcs

import "errors"

// Common errors returned by backend operations.
//
// These can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, vcs.ErrNotInRepo) {
//	    // we're outside any repository
//	}
var (
	// ErrNotInRepo is returned when the operation requires being inside
	// a repository but none was found.
	ErrNotInRepo = errors.New("not in a repository")

	// ErrBackendUnavailable is returned when the backend binary is not
	// installed or not in PATH.
	ErrBackendUnavailable = errors.New("VCS binary not available")

	// ErrBackend is returned when an underlying VCS command failed.
	// The wrapping error carries the command's captured stderr.
	ErrBackend = errors.New("VCS command failed")

	// ErrTimeout is returned when a backend command exceeds its timeout.
	ErrTimeout = errors.New("VCS command timed out")

	// ErrLocked is returned when a backend command lost a race for the
	// index lock. Another process holds it briefly; the command is safe
	// to retry.
	ErrLocked = errors.New("VCS index locked")

	// ErrUnknownBackend is returned when no constructor is registered
	// for the requested backend name.
	ErrUnknownBackend = errors.New("unknown VCS backend")
)

// IsRetryable returns true if the error is likely to succeed on retry.
// Timeouts and index lock contention are transient; command failures with
// a deterministic cause are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrLocked)
}

// IsFatal returns true if the error indicates a non-recoverable state:
// no repository, or no backend binary to execute.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNotInRepo) {
		return true
	}

	if errors.Is(err, ErrBackendUnavailable) {
		return true
	}

	return false
}
