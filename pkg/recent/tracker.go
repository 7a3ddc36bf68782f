// Package recent tracks the most recently opened document locations.
package recent

import "sync"

// DefaultCapacity is the number of entries kept by the editor.
const DefaultCapacity = 10

// Tracker is a bounded, deduplicated, most-recently-used list of paths.
// Persistence is left to the settings collaborator.
type Tracker struct {
	mu       sync.RWMutex
	capacity int
	paths    []string
}

// New creates a tracker seeded with initial (newest first). Duplicates and
// entries beyond capacity are dropped.
func New(capacity int, initial []string) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	t := &Tracker{capacity: capacity}
	for _, p := range initial {
		if p == "" || t.index(p) >= 0 {
			continue
		}
		t.paths = append(t.paths, p)
	}
	t.truncate()
	return t
}

// Record prepends path, removing any earlier occurrence. It reports whether
// the list changed.
func (t *Tracker) Record(path string) bool {
	if path == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.paths) > 0 && t.paths[0] == path {
		return false
	}
	if i := t.index(path); i >= 0 {
		t.paths = append(t.paths[:i], t.paths[i+1:]...)
	}
	t.paths = append([]string{path}, t.paths...)
	t.truncate()
	return true
}

// List returns the entries, newest first.
func (t *Tracker) List() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.paths...)
}

// At returns the i-th most recent entry.
func (t *Tracker) At(i int) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.paths) {
		return "", false
	}
	return t.paths[i], true
}

// Len returns the number of entries.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.paths)
}

// Clear removes every entry.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = nil
}

func (t *Tracker) index(path string) int {
	for i, p := range t.paths {
		if p == path {
			return i
		}
	}
	return -1
}

func (t *Tracker) truncate() {
	if len(t.paths) > t.capacity {
		t.paths = t.paths[:t.capacity]
	}
}
