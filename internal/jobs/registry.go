package jobs

import (
	"fmt"
	"sort"
	"sync"

	"server/internal/domain"
)

// Registry maps operation types to their handlers. It is populated once at
// process start; lookups after that are concurrency-safe.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.OperationType]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.OperationType]Handler)}
}

// Register adds a handler. Registering two handlers for one type is a wiring
// bug, so it panics during startup rather than silently replacing.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Type()]; exists {
		panic(fmt.Sprintf("jobs: handler for %q already registered", h.Type()))
	}
	r.handlers[h.Type()] = h
}

// Get returns the handler for the given type. A missing handler is a fatal
// configuration error for that job.
func (r *Registry) Get(t domain.OperationType) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("no handler for type %q", t)
	}
	return h, nil
}

// Types returns the registered operation types in stable order.
func (r *Registry) Types() []domain.OperationType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.OperationType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
