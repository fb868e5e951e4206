// Package watch provides file system watching for conflicted paths.
//
// The watcher monitors the directories containing conflicted files and
// emits events when a tracked file changes, so callers can trigger a
// rescan instead of polling. It uses fsnotify for cross-platform file
// system event monitoring.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpModify indicates a tracked file was written or created.
	OpModify EventOp = iota
	// OpDelete indicates a tracked file was deleted or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FileEvent represents a file system event for a tracked conflicted file.
type FileEvent struct {
	// Path is the tracked file's path as registered with Start.
	Path string
	// Op is the operation that occurred.
	Op EventOp
}

// Watcher watches the directories of a fixed set of conflicted files.
// Events for untracked files in the same directories are ignored.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan FileEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// tracked maps absolute file path to the registered path
	tracked map[string]string
}

// New creates a Watcher instance.
// The watcher must be started with Start() before it will emit events.
func New() (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: watcher,
		events:  make(chan FileEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		tracked: make(map[string]string),
	}, nil
}

// Start begins watching the directories containing the given files.
// Paths are resolved relative to root. Returns an error if a directory
// cannot be watched.
func (w *Watcher) Start(root string, paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(filepath.Join(root, p))
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		w.tracked[abs] = p
		dirs[filepath.Dir(abs)] = true
	}

	var added []string
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			for _, d := range added {
				_ = w.watcher.Remove(d)
			}
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		added = append(added, dir)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop stops watching for file system events and cleans up resources.
// It blocks until the event processing goroutine has exited.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()

	close(w.events)
	close(w.errors)

	return nil
}

// Events returns the channel that emits FileEvent notifications.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Events() <-chan FileEvent {
	return w.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// processEvents is the main loop converting fsnotify events into
// FileEvent notifications for tracked files.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if fileEvent, ok := w.convertEvent(event); ok {
				select {
				case w.events <- fileEvent:
				case <-w.done:
					return
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// convertEvent maps an fsnotify event onto a tracked file.
// Returns false for untracked files and uninteresting operations.
func (w *Watcher) convertEvent(event fsnotify.Event) (FileEvent, bool) {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return FileEvent{}, false
	}

	w.mu.Lock()
	path, tracked := w.tracked[abs]
	w.mu.Unlock()

	if !tracked {
		return FileEvent{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		op = OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpDelete
	default:
		// Ignore chmod and other events
		return FileEvent{}, false
	}

	return FileEvent{Path: path, Op: op}, true
}
