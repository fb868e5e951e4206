package vcs

import (
	"fmt"
	"sync"
)

// Constructor creates a Backend rooted at the given repository path.
// Implementations register themselves with the registry using Register().
type Constructor func(repoPath string) (Backend, error)

// registry maps backend names to their constructors
var (
	registry      = make(map[string]Constructor)
	registryMutex sync.RWMutex
)

// Register registers a backend implementation constructor.
// This is called from init() functions in implementation packages.
//
// Example:
//
//	func init() {
//	    vcs.Register("git", New)
//	}
func Register(name string, constructor Constructor) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if constructor == nil {
		panic(fmt.Sprintf("vcs: Register constructor is nil for %q", name))
	}

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("vcs: Register called twice for %q", name))
	}

	registry[name] = constructor
}

// New creates a backend by registered name for the given repository path.
func New(name string, repoPath string) (Backend, error) {
	registryMutex.RLock()
	constructor := registry[name]
	registryMutex.RUnlock()

	if constructor == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}

	return constructor(repoPath)
}

// IsRegistered returns true if a constructor is registered for the name.
func IsRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, exists := registry[name]
	return exists
}

// RegisteredNames returns all registered backend names.
// Useful for testing and debugging.
func RegisteredNames() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
