// Package conflict parses three-way merge conflict markers into structured,
// addressable regions and rebuilds file content as regions are resolved.
//
// The package is purely textual: it operates on line-oriented marker syntax
// as produced by a merge tool (`<<<<<<<` through `>>>>>>>`, with an optional
// diff3-style `|||||||` base section) and performs no I/O of its own.
//
// # Usage
//
//	regions, err := conflict.Parse(content)
//	if err != nil {
//	    // unterminated or nested markers, the file cannot be resolved here
//	}
//	for _, r := range regions {
//	    fmt.Printf("lines %d-%d: ours=%q theirs=%q\n",
//	        r.StartLine, r.EndLine, r.Ours.Content, r.Theirs.Content)
//	}
//
// Line numbers are 1-based and inclusive, in the coordinate space of the
// content that was parsed. Any mutation of that content invalidates them;
// callers are expected to re-parse rather than adjust offsets by hand.
package conflict

// Side identifies which side of a conflict region to keep.
type Side string

const (
	// SideOurs is the current branch's version of the region.
	SideOurs Side = "ours"

	// SideTheirs is the incoming branch's version of the region.
	SideTheirs Side = "theirs"
)

// Valid returns true if the side is one of the known values.
func (s Side) Valid() bool {
	return s == SideOurs || s == SideTheirs
}

// Section is one sub-span of a conflict region (ours, theirs, or base).
// Content excludes the delimiting marker lines and carries no trailing
// newline; an empty side yields an empty Content with EndLine < StartLine.
type Section struct {
	// StartLine is the first content line of the section (1-based, inclusive)
	StartLine int

	// EndLine is the last content line of the section (1-based, inclusive)
	EndLine int

	// Content is the section text, newline-normalized
	Content string
}

// Region is one contiguous conflict block.
type Region struct {
	// ID is the region's ordinal position in its parse (1-based).
	// It is only meaningful for the parse that produced it; after any
	// content mutation the file must be re-parsed and IDs re-derived.
	ID int

	// StartLine is the `<<<<<<<` marker line (1-based, inclusive)
	StartLine int

	// EndLine is the `>>>>>>>` marker line (1-based, inclusive)
	EndLine int

	// Ours is the current branch's section
	Ours Section

	// Theirs is the incoming branch's section
	Theirs Section

	// Base is the common-ancestor section, present only for diff3-style
	// markers. Nil for plain two-way conflicts.
	Base *Section
}

// SideContent returns the content of the requested side.
func (r *Region) SideContent(s Side) (string, bool) {
	switch s {
	case SideOurs:
		return r.Ours.Content, true
	case SideTheirs:
		return r.Theirs.Content, true
	}
	return "", false
}

// File is the aggregate for one conflicted path: an immutable snapshot of
// its content at parse time plus the regions derived from that snapshot.
type File struct {
	// Path is the file path relative to the repository root
	Path string

	// RawContent is the content snapshot the regions were parsed from
	RawContent string

	// Regions are the conflict regions, ordered ascending by StartLine
	// and non-overlapping
	Regions []Region

	// Resolved is true iff the most recent parse found zero regions.
	// It is derived, never assumed.
	Resolved bool

	// Err records a read or parse failure for this file. A file with a
	// non-nil Err has no regions and is not resolved; it is reported
	// alongside healthy files instead of aborting a batch scan.
	Err error
}

// NewFile parses content and builds the aggregate for path.
// Parse failures are attached to the returned File rather than returned,
// so a batch scan can report every file.
func NewFile(path, content string) *File {
	f := &File{Path: path, RawContent: content}
	regions, err := Parse(content)
	if err != nil {
		f.Err = err
		return f
	}
	f.Regions = regions
	f.Resolved = len(regions) == 0
	return f
}

// NewFailedFile builds the aggregate for a path whose content could not
// be read.
func NewFailedFile(path string, err error) *File {
	return &File{Path: path, Err: err}
}

// Region returns the region with the given id from the current parse.
func (f *File) Region(id int) (*Region, bool) {
	for i := range f.Regions {
		if f.Regions[i].ID == id {
			return &f.Regions[i], true
		}
	}
	return nil, false
}
