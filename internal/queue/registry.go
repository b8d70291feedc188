package queue

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps job keys to exactly one handler each
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register associates key with h
func (r *Registry) Register(key string, h HandlerFunc) error {
	if key == "" {
		return ErrEmptyKey
	}
	if h == nil {
		return fmt.Errorf("nil handler for key %q", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, key)
	}
	r.handlers[key] = h
	return nil
}

// Lookup returns the handler for key
func (r *Registry) Lookup(key string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[key]
	return h, ok
}

// Keys lists registered keys in sorted order
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
