// Package label indexes entities by label in both directions
package label

import "sync"

// Registry is a thread-safe bidirectional multimap between entities and labels
// Empty sets are pruned so Count and the lookups never see stale keys
type Registry[E comparable, L comparable] struct {
	mu       sync.RWMutex
	byEntity map[E]map[L]struct{}
	byLabel  map[L]map[E]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry[E comparable, L comparable]() *Registry[E, L] {
	return &Registry[E, L]{
		byEntity: make(map[E]map[L]struct{}),
		byLabel:  make(map[L]map[E]struct{}),
	}
}

// Add attaches l to e, returns false if the pair already existed
func (r *Registry[E, L]) Add(e E, l L) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels, ok := r.byEntity[e]
	if !ok {
		labels = make(map[L]struct{})
		r.byEntity[e] = labels
	}
	if _, exists := labels[l]; exists {
		return false
	}
	labels[l] = struct{}{}

	entities, ok := r.byLabel[l]
	if !ok {
		entities = make(map[E]struct{})
		r.byLabel[l] = entities
	}
	entities[e] = struct{}{}
	return true
}

// Remove detaches l from e, returns false if the pair was absent
func (r *Registry[E, L]) Remove(e E, l L) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels, ok := r.byEntity[e]
	if !ok {
		return false
	}
	if _, exists := labels[l]; !exists {
		return false
	}
	r.unlink(e, l)
	return true
}

// RemoveEntity detaches every label from e, returns the number of pairs removed
func (r *Registry[E, L]) RemoveEntity(e E) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels := r.byEntity[e]
	n := len(labels)
	for l := range labels {
		r.unlink(e, l)
	}
	return n
}

// RemoveLabel detaches l from every entity, returns the number of pairs removed
func (r *Registry[E, L]) RemoveLabel(l L) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	entities := r.byLabel[l]
	n := len(entities)
	for e := range entities {
		r.unlink(e, l)
	}
	return n
}

// unlink removes one pair from both directions, caller holds the write lock
func (r *Registry[E, L]) unlink(e E, l L) {
	if labels := r.byEntity[e]; labels != nil {
		delete(labels, l)
		if len(labels) == 0 {
			delete(r.byEntity, e)
		}
	}
	if entities := r.byLabel[l]; entities != nil {
		delete(entities, e)
		if len(entities) == 0 {
			delete(r.byLabel, l)
		}
	}
}

// Has reports whether e carries l
func (r *Registry[E, L]) Has(e E, l L) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEntity[e][l]
	return ok
}

// Entities returns a copy of the entities carrying l, order unspecified
func (r *Registry[E, L]) Entities(l L) []E {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byLabel[l]
	out := make([]E, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	return out
}

// Labels returns a copy of the labels attached to e, order unspecified
func (r *Registry[E, L]) Labels(e E) []L {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byEntity[e]
	out := make([]L, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	return out
}

// Count returns the number of entity-label pairs
func (r *Registry[E, L]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, labels := range r.byEntity {
		n += len(labels)
	}
	return n
}

// Clear removes all pairs
func (r *Registry[E, L]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.byEntity)
	clear(r.byLabel)
}
