package crawl

import "sync"

// DefaultCapacity is the number of conversations a single account tracks
// before discoveries are dropped.
const DefaultCapacity = 500

// Registry is the set of conversation ids the account currently monitors.
type Registry struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewRegistry returns a registry holding ids.
func NewRegistry(ids ...int64) *Registry {
	r := &Registry{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	return r
}

// Add tracks id and reports whether it was new.
func (r *Registry) Add(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	return true
}

func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, id)
}

func (r *Registry) Contains(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
