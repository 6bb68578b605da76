package component

import (
	"errors"
	"fmt"
	"sync"
)

// Provider yields component descriptors by name. How descriptors are parsed or
// stored is up to the implementation.
//
// Expected usage:
//
//	d, ok, err := provider.Descriptor("cache")
type Provider interface {
	Descriptor(name string) (d *Descriptor, ok bool, err error)
}

// ErrProviderPanic is returned if a provider implementation panics internally.
var ErrProviderPanic = errors.New("scr: panic during descriptor lookup")

// MapProvider is a simple in-memory Provider. Replacing a descriptor under the same
// name starts a new generation: the old descriptor keeps its own cache.
type MapProvider struct {
	mu    sync.RWMutex
	items map[string]*Descriptor
}

func NewMapProvider() *MapProvider {
	return &MapProvider{items: map[string]*Descriptor{}}
}

// Provide stores d under its name and returns the provider for chaining.
func (p *MapProvider) Provide(d *Descriptor) *MapProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[d.Name()] = d
	return p
}

// Descriptor implements Provider and converts panics into errors.
func (p *MapProvider) Descriptor(name string) (d *Descriptor, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d = nil
			ok = false
			err = fmt.Errorf("%w: %v", ErrProviderPanic, rec)
		}
	}()

	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok = p.items[name]
	return d, ok, nil
}

// MustGet returns the descriptor or panics with a helpful message.
func (p *MapProvider) MustGet(name string) *Descriptor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.items[name]
	if !ok {
		panic(fmt.Errorf("scr: provider missing component %q", name))
	}
	return d
}
