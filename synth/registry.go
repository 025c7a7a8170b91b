package synth

import (
	"slices"
	"sync"
)

// Registry maps instrument ids to Units. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	units map[string]Unit
	order []string
}

func NewRegistry() *Registry {
	return &Registry{units: map[string]Unit{}}
}

// DefaultRegistry returns a registry with the instruments offered to users:
// piano, drums, guitar, violin, trumpet and synthesizer.
func DefaultRegistry(sampleRate int) *Registry {
	r := NewRegistry()
	r.Register("piano", NewPiano(sampleRate))
	r.Register("drums", NewDrums(sampleRate))
	r.Register("guitar", NewTonal(sampleRate, Triangle))
	r.Register("violin", NewTonal(sampleRate, Sawtooth))
	r.Register("trumpet", NewTonal(sampleRate, Square))
	r.Register("synthesizer", NewTonal(sampleRate, Sine))
	return r
}

// Register adds or replaces the unit for an instrument id.
func (r *Registry) Register(id string, u Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[id]; !ok {
		r.order = append(r.order, id)
	}
	r.units[id] = u
}

func (r *Registry) Lookup(id string) (Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	return u, ok
}

// IDs returns the registered instrument ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
