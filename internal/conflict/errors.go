package conflict

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by parsing and resolution operations.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, conflict.ErrMalformed) {
//	    // file has broken markers and cannot be resolved by this engine
//	}
var (
	// ErrMalformed indicates an unterminated or nested marker sequence.
	// The file is unparsable and must be left unresolved; it is never
	// auto-fixed.
	ErrMalformed = errors.New("malformed conflict markers")

	// ErrValidation indicates replacement text that would reintroduce
	// conflict marker syntax. Rejected before any write.
	ErrValidation = errors.New("replacement text contains conflict markers")

	// ErrUnresolved indicates whole-file replacement content that still
	// contains conflict regions. No write is performed.
	ErrUnresolved = errors.New("content still contains conflict regions")

	// ErrRegionNotFound indicates a region id that does not exist in the
	// file's current parse. Region ids are invalidated by every mutation.
	ErrRegionNotFound = errors.New("conflict region not found")
)

// MalformedError describes where and why parsing failed.
// It unwraps to ErrMalformed.
type MalformedError struct {
	// Line is the 1-based line the failure was detected on
	Line int

	// State is the parser state at the time of failure
	State string

	// Reason describes the failure
	Reason string
}

func (e *MalformedError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("line %d (in %s section): %s", e.Line, e.State, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}
