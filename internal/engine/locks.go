package engine

import "sync"

// pathLocks serializes mutating operations per file path. Two resolution
// requests for the same path must not interleave: the second would splice
// against line numbers the first already invalidated. Operations on
// different paths stay independent.
type pathLocks struct {
	locks sync.Map // path -> *sync.Mutex
}

// acquire locks the given path and returns its unlock func.
func (p *pathLocks) acquire(path string) func() {
	mu, _ := p.locks.LoadOrStore(path, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
