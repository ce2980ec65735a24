package stats

import (
	"sync"

	"github.com/google/uuid"
)

// Callback receives one change record.
type Callback func(Change)

type subscription struct {
	id       string
	callback Callback
}

// Registry keeps change callbacks keyed by a random id.
type Registry struct {
	mu    sync.RWMutex
	subs  map[string]Callback
	order []string // insertion order of live ids
	newID func() string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs:  make(map[string]Callback),
		order: make([]string, 0),
		newID: func() string { return uuid.New().String() },
	}
}

// Add stores callback under a fresh id and returns the id.
func (r *Registry) Add(callback Callback) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, taken := r.subs[id]; !taken {
			break
		}
		id = r.newID()
	}

	r.subs[id] = callback
	r.order = append(r.order, id)
	return id
}

// Remove deletes the subscription with the given id.
// It returns false if no such subscription exists.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[id]; !ok {
		return false
	}
	delete(r.subs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveAll clears the registry and reports whether it held anything.
func (r *Registry) RemoveAll() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := len(r.subs) > 0
	r.subs = make(map[string]Callback)
	r.order = make([]string, 0)
	return removed
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// live returns the subscriptions in insertion order at the time of the call.
func (r *Registry) live() []subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]subscription, 0, len(r.order))
	for _, id := range r.order {
		subs = append(subs, subscription{id: id, callback: r.subs[id]})
	}
	return subs
}
