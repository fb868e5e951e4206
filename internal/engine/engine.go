package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mendtool/mend/internal/conflict"
	"github.com/mendtool/mend/internal/vcs"
)

// Resolution method names, recorded in the journal and broadcast on the
// dashboard.
const (
	MethodAcceptOursFile   = "accept-ours-file"
	MethodAcceptTheirsFile = "accept-theirs-file"
	MethodAcceptRegion     = "accept-region"
	MethodManualRegion     = "manual-region"
	MethodManualFile       = "manual-file"
)

// Resolution describes one successful resolution operation.
type Resolution struct {
	// Path is the repo-relative file path
	Path string

	// Method is one of the Method* constants
	Method string

	// Side is the chosen side for accept operations, empty otherwise
	Side string

	// RegionStart and RegionEnd are the resolved region's line span in
	// the content it was parsed from. Zero for whole-file operations.
	RegionStart int
	RegionEnd   int

	// ResolvedAt is when the operation completed
	ResolvedAt time.Time
}

// Recorder persists resolutions. The journal implements it; a nil
// recorder disables recording.
type Recorder interface {
	Record(ctx context.Context, r Resolution) error
}

// Engine exposes the resolution operations for one repository.
//
// Same-file operations are serialized through a per-path lock; operations
// on different files run independently. Every operation either completes
// fully or leaves the on-disk content and staged state untouched.
type Engine struct {
	backend    vcs.Backend
	root       string
	recorder   Recorder
	log        *slog.Logger
	locks      pathLocks
	retryDelay time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the resolution recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates an Engine over the given backend.
func New(backend vcs.Backend, opts ...Option) (*Engine, error) {
	root, err := backend.RepoRoot()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		backend:    backend,
		root:       root,
		log:        slog.Default(),
		retryDelay: 50 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// File reads and parses a single repo-relative path into an aggregate.
// Read and parse failures are attached to the aggregate's Err.
func (e *Engine) File(path string) *conflict.File {
	return loadFile(e.root, path)
}

// AcceptOursWholeFile resolves the whole file with the current branch's
// side via the backend's own materialization, bypassing marker parsing,
// then stages it. The returned aggregate is re-read and re-parsed; the
// resolved flag is never set by assumption.
func (e *Engine) AcceptOursWholeFile(ctx context.Context, path string) (*conflict.File, error) {
	return e.acceptWholeFile(ctx, path, conflict.SideOurs)
}

// AcceptTheirsWholeFile resolves the whole file with the incoming
// branch's side. See AcceptOursWholeFile.
func (e *Engine) AcceptTheirsWholeFile(ctx context.Context, path string) (*conflict.File, error) {
	return e.acceptWholeFile(ctx, path, conflict.SideTheirs)
}

func (e *Engine) acceptWholeFile(ctx context.Context, path string, side conflict.Side) (*conflict.File, error) {
	unlock := e.locks.acquire(path)
	defer unlock()

	checkout := e.backend.CheckoutOurs
	method := MethodAcceptOursFile
	if side == conflict.SideTheirs {
		checkout = e.backend.CheckoutTheirs
		method = MethodAcceptTheirsFile
	}

	if err := checkout(ctx, path); err != nil {
		return nil, err
	}
	if err := e.backend.Add(ctx, path); err != nil {
		return nil, err
	}

	updated := loadFile(e.root, path)
	if updated.Err != nil {
		return updated, updated.Err
	}

	if updated.Resolved {
		e.record(ctx, Resolution{Path: path, Method: method, Side: string(side)})
	}

	e.log.Info("whole file resolved via checkout", "path", path, "side", side)
	return updated, nil
}

// AcceptRegion resolves one region by splicing the chosen side's content
// over the region's full marker span, buffer-level. The new content is
// re-parsed to re-derive every remaining region's line numbers before it
// is written; the file is staged only when no regions remain.
func (e *Engine) AcceptRegion(ctx context.Context, file *conflict.File, regionID int, side conflict.Side) (*conflict.File, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: unknown side %q", conflict.ErrValidation, side)
	}

	unlock := e.locks.acquire(file.Path)
	defer unlock()

	region, ok := file.Region(regionID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d in %s", conflict.ErrRegionNotFound, regionID, file.Path)
	}

	replacement, _ := region.SideContent(side)
	return e.spliceRegion(ctx, file, region, replacement, MethodAcceptRegion, string(side))
}

// ResolveManual resolves one region with caller-supplied text.
// Text containing a line that begins with a conflict marker is rejected
// before any write: it would silently reintroduce a conflict that looks
// resolved.
func (e *Engine) ResolveManual(ctx context.Context, file *conflict.File, regionID int, replacement string) (*conflict.File, error) {
	if conflict.ContainsMarkers(replacement) {
		return nil, fmt.Errorf("%w: in manual replacement for %s", conflict.ErrValidation, file.Path)
	}

	unlock := e.locks.acquire(file.Path)
	defer unlock()

	region, ok := file.Region(regionID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d in %s", conflict.ErrRegionNotFound, regionID, file.Path)
	}

	return e.spliceRegion(ctx, file, region, replacement, MethodManualRegion, "")
}

// ResolveManualWholeFile replaces the entire file with caller-supplied
// content. The content is re-parsed first; if any region remains the
// operation fails without writing. Identical, already-resolved content is
// a no-op.
func (e *Engine) ResolveManualWholeFile(ctx context.Context, file *conflict.File, fullContent string) (*conflict.File, error) {
	unlock := e.locks.acquire(file.Path)
	defer unlock()

	regions, err := conflict.Parse(fullContent)
	if err != nil {
		return nil, err
	}
	if len(regions) > 0 {
		return nil, fmt.Errorf("%w: %d remaining in %s", conflict.ErrUnresolved, len(regions), file.Path)
	}

	if file.Resolved && fullContent == file.RawContent {
		return file, nil
	}

	if err := e.writeFile(file.Path, fullContent); err != nil {
		return nil, err
	}
	if err := e.backend.Add(ctx, file.Path); err != nil {
		return rebuilt(file.Path, fullContent, nil), err
	}

	e.record(ctx, Resolution{Path: file.Path, Method: MethodManualFile})
	e.log.Info("whole file resolved manually", "path", file.Path)

	return rebuilt(file.Path, fullContent, nil), nil
}

// spliceRegion performs the shared mutate-reparse-write-stage sequence for
// per-region operations. The caller holds the path lock.
func (e *Engine) spliceRegion(ctx context.Context, file *conflict.File, region *conflict.Region, replacement, method, side string) (*conflict.File, error) {
	next, err := conflict.Splice(file.RawContent, region.StartLine, region.EndLine, replacement)
	if err != nil {
		return nil, err
	}

	// Re-parse instead of offset arithmetic: every region after the
	// splice point gets fresh line numbers, or the write never happens.
	regions, err := conflict.Parse(next)
	if err != nil {
		return nil, err
	}

	if err := e.writeFile(file.Path, next); err != nil {
		return nil, err
	}

	updated := rebuilt(file.Path, next, regions)

	if updated.Resolved {
		if err := e.backend.Add(ctx, file.Path); err != nil {
			return updated, err
		}
	}

	e.record(ctx, Resolution{
		Path:        file.Path,
		Method:      method,
		Side:        side,
		RegionStart: region.StartLine,
		RegionEnd:   region.EndLine,
	})

	e.log.Info("region resolved",
		"path", file.Path, "method", method,
		"lines", fmt.Sprintf("%d-%d", region.StartLine, region.EndLine),
		"remaining", len(updated.Regions))

	return updated, nil
}

// writeFile writes content to a repo-relative path, preserving the file's
// mode and retrying once on failure. Lock contention on busy trees is the
// transient case this retry exists for.
func (e *Engine) writeFile(path, content string) error {
	abs := filepath.Join(e.root, path)

	mode := os.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}

	err := os.WriteFile(abs, []byte(content), mode)
	if err == nil {
		return nil
	}

	time.Sleep(e.retryDelay)
	if err2 := os.WriteFile(abs, []byte(content), mode); err2 == nil {
		return nil
	}

	return fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
}

// record persists a resolution. Journal failures are logged, never fatal:
// the resolution itself already succeeded.
func (e *Engine) record(ctx context.Context, r Resolution) {
	if e.recorder == nil {
		return
	}

	r.ResolvedAt = time.Now().UTC()
	if err := e.recorder.Record(ctx, r); err != nil {
		e.log.Warn("failed to record resolution", "path", r.Path, "error", err)
	}
}

// rebuilt assembles an aggregate from freshly parsed regions.
func rebuilt(path, content string, regions []conflict.Region) *conflict.File {
	return &conflict.File{
		Path:       path,
		RawContent: content,
		Regions:    regions,
		Resolved:   len(regions) == 0,
	}
}
