package store

import (
	"fmt"
	"sort"
	"sync"
)

// Registry guards persistence keys so no two stores in a process share a
// slot. A zero Registry is ready to use.
type Registry struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Claim reserves key for owner. Claiming a key twice fails even for the same
// owner; a store is constructed once per process.
func (r *Registry) Claim(key, owner string) error {
	if key == "" {
		return ErrKeyRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keys == nil {
		r.keys = map[string]string{}
	}
	if existing, ok := r.keys[key]; ok {
		return fmt.Errorf("%w: %q claimed by %s", ErrKeyInUse, key, existing)
	}
	r.keys[key] = owner
	return nil
}

// Release frees key so a replacement store can claim it.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, key)
}

// Keys returns the claimed keys sorted alphabetically.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.keys))
	for key := range r.keys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
