package genai

import (
	"fmt"
	"strings"
	"sync"
)

type GeneratorFactory func() (Generator, error)

// Registry maps provider names to generator factories so the binary can pick
// an implementation from configuration at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]GeneratorFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]GeneratorFactory)}
}

func (r *Registry) Register(name string, f GeneratorFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(name string) (Generator, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown generation provider: %s", name)
	}
	return f()
}
