package cleanup

import (
	"path/filepath"
	"sync"
)

// Registry tracks files that running jobs still need. Sweeps skip them
// regardless of age.
type Registry struct {
	mu    sync.Mutex
	paths map[string]int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{paths: make(map[string]int)}
}

// Hold marks path as in use until the returned release func is called.
// Holds are counted, so the same path may be held more than once.
func (r *Registry) Hold(path string) (release func()) {
	if path == "" {
		return func() {}
	}
	key := registryKey(path)

	r.mu.Lock()
	r.paths[key]++
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.paths[key] <= 1 {
				delete(r.paths, key)
				return
			}
			r.paths[key]--
		})
	}
}

// Held reports whether path is currently held
func (r *Registry) Held(path string) bool {
	key := registryKey(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paths[key] > 0
}

func registryKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
