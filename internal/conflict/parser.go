package conflict

import (
	"strings"
)

// Conflict marker prefixes. Git pads markers to at least seven characters
// and appends a label, so detection is prefix-based.
const (
	markerOurs   = "<<<<<<<"
	markerBase   = "|||||||"
	markerSplit  = "======="
	markerTheirs = ">>>>>>>"
)

// parseState tracks which section of a conflict block the scanner is in.
type parseState int

const (
	stateIdle parseState = iota
	stateInOurs
	stateInBase
	stateInTheirs
)

func (s parseState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateInOurs:
		return "ours"
	case stateInBase:
		return "base"
	case stateInTheirs:
		return "theirs"
	default:
		return "unknown"
	}
}

// Parse scans content for conflict marker blocks and returns the regions
// in ascending line order. It is pure and deterministic: no I/O, and the
// input is never mutated.
//
// Marker lines move a state machine through idle -> ours -> [base] ->
// theirs -> idle. A `<<<<<<<` outside the idle state (conflicts do not
// nest) or end of input inside a block returns an error wrapping
// ErrMalformed; no partial regions are ever returned.
//
// Lines outside any block are plain content and ignored here; they stay
// untouched in the original text. Section content excludes the marker
// lines and strips a trailing `\r` so CRLF and LF inputs parse alike.
func Parse(content string) ([]Region, error) {
	lines := strings.Split(content, "\n")

	var (
		regions []Region
		state   = stateIdle
		current Region
		buf     []string
	)

	closeSection := func(sec *Section, lastLine int) {
		sec.EndLine = lastLine
		sec.Content = strings.Join(buf, "\n")
		buf = nil
	}

	for i, line := range lines {
		n := i + 1

		switch {
		case strings.HasPrefix(line, markerOurs):
			if state != stateIdle {
				return nil, &MalformedError{
					Line:   n,
					State:  state.String(),
					Reason: "nested conflict start marker",
				}
			}
			current = Region{
				StartLine: n,
				Ours:      Section{StartLine: n + 1},
			}
			state = stateInOurs

		case strings.HasPrefix(line, markerBase) && state == stateInOurs:
			closeSection(&current.Ours, n-1)
			current.Base = &Section{StartLine: n + 1}
			state = stateInBase

		case strings.HasPrefix(line, markerSplit) && (state == stateInOurs || state == stateInBase):
			if state == stateInOurs {
				closeSection(&current.Ours, n-1)
			} else {
				closeSection(current.Base, n-1)
			}
			current.Theirs = Section{StartLine: n + 1}
			state = stateInTheirs

		case strings.HasPrefix(line, markerTheirs) && state == stateInTheirs:
			closeSection(&current.Theirs, n-1)
			current.EndLine = n
			current.ID = len(regions) + 1
			regions = append(regions, current)
			state = stateIdle

		default:
			if state != stateIdle {
				buf = append(buf, strings.TrimSuffix(line, "\r"))
			}
		}
	}

	if state != stateIdle {
		return nil, &MalformedError{
			Line:   len(lines),
			State:  state.String(),
			Reason: "unterminated conflict block at end of input",
		}
	}

	return regions, nil
}

// ContainsMarkers reports whether any line of text begins with a conflict
// marker. Used to reject replacement text that would reintroduce a
// conflict that looks resolved.
func ContainsMarkers(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, markerOurs) ||
			strings.HasPrefix(line, markerBase) ||
			strings.HasPrefix(line, markerSplit) ||
			strings.HasPrefix(line, markerTheirs) {
			return true
		}
	}
	return false
}

// Splice replaces the inclusive line range [startLine, endLine] of content
// with replacement text and returns the new content. Lines outside the
// range are reconstructed byte-for-byte. An empty replacement removes the
// range entirely without leaving a blank line. One trailing newline on the
// replacement is normalized away: "x\n" and "x" are the same one-line
// replacement, since the line after the range already starts on its own
// line.
//
// The result must be re-parsed before any region from the old content is
// used again: line numbers derived before the splice are stale.
func Splice(content string, startLine, endLine int, replacement string) (string, error) {
	lines := strings.Split(content, "\n")
	replacement = strings.TrimSuffix(replacement, "\n")

	if startLine < 1 || endLine < startLine || endLine > len(lines) {
		return "", &MalformedError{
			Line:   startLine,
			Reason: "splice range outside content bounds",
		}
	}

	out := make([]string, 0, len(lines))
	out = append(out, lines[:startLine-1]...)
	if replacement != "" {
		out = append(out, strings.Split(replacement, "\n")...)
	}
	out = append(out, lines[endLine:]...)

	return strings.Join(out, "\n"), nil
}
