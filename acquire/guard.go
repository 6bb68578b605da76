// Package acquire materializes the service objects a component configuration
// binds to, lazily and at most once per (reference, service).
//
// Construction is delegated to a Builder, which may activate other components to do
// so. The components whose activation is in progress travel through the
// context.Context (see WithActivation); asking for a service whose provider is on
// that path fails fast with component.ErrCircular instead of recursing.
package acquire

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/sghaida/scr/component"
)

// Builder constructs and disposes backing service objects. Build may recurse into
// other components' activation; it should pass ctx along so cycles are detected.
// Returning a nil object or an error wrapping component.ErrUnavailable means the
// service is unavailable.
type Builder interface {
	Build(ctx context.Context, ref component.Reference, sref component.ServiceReference) (any, error)
	Dispose(ctx context.Context, ref component.Reference, sref component.ServiceReference, obj any) error
}

// BuilderFuncs adapts plain functions to Builder. A nil DisposeFunc is a no-op.
type BuilderFuncs struct {
	BuildFunc   func(ctx context.Context, ref component.Reference, sref component.ServiceReference) (any, error)
	DisposeFunc func(ctx context.Context, ref component.Reference, sref component.ServiceReference, obj any) error
}

func (f BuilderFuncs) Build(ctx context.Context, ref component.Reference, sref component.ServiceReference) (any, error) {
	if f.BuildFunc == nil {
		return nil, component.ErrUnavailable
	}
	return f.BuildFunc(ctx, ref, sref)
}

func (f BuilderFuncs) Dispose(ctx context.Context, ref component.Reference, sref component.ServiceReference, obj any) error {
	if f.DisposeFunc == nil {
		return nil
	}
	return f.DisposeFunc(ctx, ref, sref, obj)
}

// AcquireError wraps a Builder failure that is not an unavailability.
type AcquireError struct {
	Reference string
	Service   component.ServiceID
	Err       error
}

// Error implements the error interface.
func (e AcquireError) Error() string {
	return "scr: acquire service " + strconv.FormatInt(int64(e.Service), 10) +
		" for reference " + strconv.Quote(e.Reference) + ": " + e.Err.Error()
}

func (e AcquireError) Unwrap() error { return e.Err }

type key struct {
	reference string
	service   component.ServiceID
}

// Guard tracks the service objects acquired for one component configuration.
type Guard struct {
	component string
	builder   Builder
	logger    *zap.Logger

	mu      sync.Mutex
	objects map[key]any
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logging sink.
func WithLogger(l *zap.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGuard returns a Guard acquiring on behalf of the named component.
func NewGuard(component string, builder Builder, opts ...Option) *Guard {
	g := &Guard{
		component: component,
		builder:   builder,
		logger:    zap.NewNop(),
		objects:   make(map[key]any),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire returns the service object for ref and sref, building it on first use.
// It returns component.ErrCircular when the providing component is already being
// activated on ctx, and an error wrapping component.ErrUnavailable when the builder
// produced nothing. The object is registered before Acquire returns, so nested
// resolutions observe the same object.
func (g *Guard) Acquire(ctx context.Context, ref component.Reference, sref component.ServiceReference) (any, error) {
	if sref == nil {
		return nil, component.ErrUnavailable
	}
	k := key{reference: ref.Name, service: sref.ServiceID()}
	if obj, ok := g.lookup(k); ok {
		return obj, nil
	}

	if p := sref.Provider(); p != "" && Activating(ctx, p) {
		g.logger.Debug("circular service acquisition",
			zap.String("component", g.component),
			zap.String("reference", ref.Name),
			zap.String("provider", p),
			zap.Strings("inFlight", InFlight(ctx)))
		return nil, component.ErrCircular
	}
	if g.builder == nil {
		return nil, component.ErrUnavailable
	}

	obj, err := g.builder.Build(WithActivation(ctx, g.component), ref, sref)
	switch {
	case errors.Is(err, component.ErrUnavailable):
		return nil, err
	case err != nil:
		return nil, AcquireError{Reference: ref.Name, Service: sref.ServiceID(), Err: err}
	case obj == nil:
		return nil, component.ErrUnavailable
	}

	g.mu.Lock()
	prev, exists := g.objects[k]
	if !exists {
		g.objects[k] = obj
	}
	g.mu.Unlock()

	if exists {
		// lost a race against a concurrent Acquire for the same key
		if derr := g.builder.Dispose(ctx, ref, sref, obj); derr != nil {
			g.logger.Warn("dispose duplicate service", zap.String("reference", ref.Name), zap.Error(derr))
		}
		return prev, nil
	}
	return obj, nil
}

// Lookup returns the object already acquired for the reference and service.
func (g *Guard) Lookup(reference string, id component.ServiceID) (any, bool) {
	return g.lookup(key{reference: reference, service: id})
}

// Release forgets the object acquired for ref and sref and hands it back to the
// builder. Releasing something never acquired is a no-op.
func (g *Guard) Release(ctx context.Context, ref component.Reference, sref component.ServiceReference) error {
	if sref == nil {
		return nil
	}
	k := key{reference: ref.Name, service: sref.ServiceID()}
	g.mu.Lock()
	obj, ok := g.objects[k]
	delete(g.objects, k)
	g.mu.Unlock()

	if !ok || g.builder == nil {
		return nil
	}
	return g.builder.Dispose(ctx, ref, sref, obj)
}

// Len returns the number of objects currently held.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.objects)
}

func (g *Guard) lookup(k key) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	obj, ok := g.objects[k]
	return obj, ok
}
