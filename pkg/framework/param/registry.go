package param

import (
	"strings"
	"sync"
)

// ModulationSource is a signal that can be routed to destinations.
type ModulationSource interface {
	Sample(channel, index int) float64
	Channels() int
}

// ModulationDestination accepts routed sources.
type ModulationDestination interface {
	Connect(src ModulationSource, depth float64)
	Disconnect(src ModulationSource)
}

// Registry maps dotted names to modulation endpoints. Names are built from
// the scope stack at registration time; duplicates are kept in order.
type Registry struct {
	mu           sync.RWMutex
	sources      []namedSource
	destinations []namedDestination
	scope        []string
}

type namedSource struct {
	name string
	src  ModulationSource
}

type namedDestination struct {
	name string
	dst  ModulationDestination
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Enter pushes a scope name. Names must not contain dots.
func (r *Registry) Enter(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scope = append(r.scope, name)
}

// Exit pops the innermost scope. It is a no-op at the top level.
func (r *Registry) Exit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.scope) > 0 {
		r.scope = r.scope[:len(r.scope)-1]
	}
}

// Scope returns the current dotted scope prefix.
func (r *Registry) Scope() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return strings.Join(r.scope, ".")
}

func (r *Registry) qualify(local string) string {
	if len(r.scope) == 0 {
		return local
	}
	return strings.Join(r.scope, ".") + "." + local
}

// AddSource registers src and returns its full name.
func (r *Registry) AddSource(src ModulationSource, local string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.qualify(local)
	r.sources = append(r.sources, namedSource{name: name, src: src})
	return name
}

// AddDestination registers dst and returns its full name.
func (r *Registry) AddDestination(dst ModulationDestination, local string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.qualify(local)
	r.destinations = append(r.destinations, namedDestination{name: name, dst: dst})
	return name
}

// Source returns the first source registered under name.
func (r *Registry) Source(name string) (ModulationSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sources {
		if s.name == name {
			return s.src, true
		}
	}
	return nil, false
}

// Destination returns the first destination registered under name.
func (r *Registry) Destination(name string) (ModulationDestination, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.destinations {
		if d.name == name {
			return d.dst, true
		}
	}
	return nil, false
}

// SourceNames lists source names in registration order.
func (r *Registry) SourceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.name
	}
	return names
}

// DestinationNames lists destination names in registration order.
func (r *Registry) DestinationNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.destinations))
	for i, d := range r.destinations {
		names[i] = d.name
	}
	return names
}
