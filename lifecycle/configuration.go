package lifecycle

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sghaida/scr/acquire"
	"github.com/sghaida/scr/component"
)

// UnknownReferenceError is returned when a configuration is asked to bind or unbind
// a reference its descriptor does not declare.
type UnknownReferenceError struct {
	Component string
	Name      string
}

// Error implements the error interface.
func (e UnknownReferenceError) Error() string {
	return "scr: component " + strconv.Quote(e.Component) + " has no reference " + strconv.Quote(e.Name)
}

type binding struct {
	ref    component.Reference
	sref   component.ServiceReference
	object any
	// hooked is set when a bind method ran; only those bindings get an unbind call.
	hooked bool
}

// Configuration is one live instance of a component: the instance, its descriptor
// and the services currently bound to it.
//
// Bind, Unbind, Activate and Deactivate are serialized per configuration. Separate
// configurations share nothing but their descriptor.
type Configuration struct {
	id       uuid.UUID
	desc     *component.Descriptor
	instance any
	invoker  *Invoker
	guard    *acquire.Guard
	props    map[string]any
	logger   *zap.Logger

	op sync.Mutex

	mu       sync.Mutex
	bindings []binding
	active   bool
}

// NewConfiguration creates the configuration of instance, an instance of desc's
// implementation type. Services are built through builder.
func NewConfiguration(
	desc *component.Descriptor,
	instance any,
	invoker *Invoker,
	builder acquire.Builder,
	opts ...Option,
) *Configuration {
	o := newOptions(opts)
	id := uuid.New()
	logger := o.logger.With(
		zap.String("component", desc.Name()),
		zap.String("configuration", id.String()),
	)
	return &Configuration{
		id:       id,
		desc:     desc,
		instance: instance,
		invoker:  invoker,
		guard:    acquire.NewGuard(desc.Name(), builder, acquire.WithLogger(logger)),
		props:    o.props,
		logger:   logger,
	}
}

func (c *Configuration) ID() uuid.UUID { return c.id }

func (c *Configuration) Descriptor() *component.Descriptor { return c.desc }

func (c *Configuration) Instance() any { return c.instance }

// Active reports whether the activate call succeeded and no deactivate happened since.
func (c *Configuration) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start binds the candidate services of every reference, in declaration order, then
// activates the component. A failed bind disables only its reference; a failed
// activate is returned and the caller is expected to Deactivate.
func (c *Configuration) Start(ctx context.Context, candidates map[string][]component.ServiceReference) error {
	ctx = acquire.WithActivation(ctx, c.desc.Name())
	for _, ref := range c.desc.References() {
		for _, sref := range candidates[ref.Name] {
			if !ref.Cardinality.IsMultiple() && len(c.Bound(ref.Name)) > 0 {
				break
			}
			if err := c.Bind(ctx, ref.Name, sref); err != nil {
				c.logger.Error("bind failed, reference disabled",
					zap.String("reference", ref.Name), zap.Error(err))
				break
			}
		}
		if ref.Cardinality.IsMandatory() && len(c.Bound(ref.Name)) == 0 {
			c.logger.Warn("mandatory reference is not satisfied",
				zap.String("reference", ref.Name),
				zap.Stringer("cardinality", ref.Cardinality))
		}
	}
	return c.Activate(ctx)
}

// Activate calls the component's activate method, if any.
func (c *Configuration) Activate(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()

	ctx = acquire.WithActivation(ctx, c.desc.Name())
	if err := c.invoker.Activate(c.desc, c.instance, c.newContext(ctx)); err != nil {
		return err
	}
	c.mu.Lock()
	c.active = true
	c.mu.Unlock()
	c.logger.Debug("component activated")
	return nil
}

// Deactivate calls the deactivate method when the component is active, then unbinds
// every bound service in reverse bind order. It always runs to completion; failures
// are aggregated.
func (c *Configuration) Deactivate(ctx context.Context) error {
	var err error

	c.op.Lock()
	c.mu.Lock()
	wasActive := c.active
	c.active = false
	c.mu.Unlock()
	if wasActive {
		err = c.invoker.Deactivate(c.desc, c.instance, c.newContext(ctx))
	}
	c.op.Unlock()

	for _, b := range c.snapshot(true) {
		err = multierr.Append(err, c.Unbind(ctx, b.ref.Name, b.sref))
	}
	c.logger.Debug("component deactivated", zap.Bool("wasActive", wasActive))
	return err
}

// Bind binds sref to the named reference. When no bind method can be resolved (not
// found, inaccessible, or the service is unavailable) the reference stays unbound and
// Bind returns nil; the outcome has been logged. Invocation and target failures are
// returned and leave the reference unbound.
func (c *Configuration) Bind(ctx context.Context, refName string, sref component.ServiceReference) error {
	ref, ok := c.desc.Reference(refName)
	if !ok {
		return UnknownReferenceError{Component: c.desc.Name(), Name: refName}
	}
	if sref == nil {
		return nil
	}

	c.op.Lock()
	defer c.op.Unlock()

	if c.IsBound(refName, sref.ServiceID()) {
		return nil
	}
	ctx = acquire.WithActivation(ctx, c.desc.Name())

	if ref.Bind == "" {
		// no hook: the service is only reachable through the ComponentContext
		obj, err := c.guard.Acquire(ctx, ref, sref)
		if err != nil {
			c.logger.Debug("reference left unbound", zap.String("reference", refName), zap.Error(err))
			return nil
		}
		c.record(binding{ref: ref, sref: sref, object: obj})
		return nil
	}

	h, outcome := c.invoker.ResolveBind(ctx, c.desc, c.guard, ref, sref, component.RoleBind)
	if outcome != component.Found {
		c.logger.Debug("reference left unbound",
			zap.String("reference", refName), zap.Stringer("outcome", outcome))
		return c.guard.Release(ctx, ref, sref)
	}

	obj, _ := c.guard.Lookup(ref.Name, sref.ServiceID())
	if err := c.invoker.Bind(h, c.instance, h.Arg(sref, obj)); err != nil {
		return multierr.Append(err, c.guard.Release(ctx, ref, sref))
	}
	c.record(binding{ref: ref, sref: sref, object: obj, hooked: true})
	return nil
}

// Unbind unbinds sref from the named reference and releases the service. Services
// whose bind never completed are ignored, and the unbind method is only called when
// a bind method ran for sref.
func (c *Configuration) Unbind(ctx context.Context, refName string, sref component.ServiceReference) error {
	ref, ok := c.desc.Reference(refName)
	if !ok {
		return UnknownReferenceError{Component: c.desc.Name(), Name: refName}
	}
	if sref == nil {
		return nil
	}

	c.op.Lock()
	defer c.op.Unlock()

	b, ok := c.take(refName, sref.ServiceID())
	if !ok {
		c.logger.Debug("unbind of a service that is not bound", zap.String("reference", refName))
		return nil
	}

	var err error
	if b.hooked && ref.Unbind != "" {
		h, outcome := c.invoker.ResolveBind(ctx, c.desc, c.guard, ref, sref, component.RoleUnbind)
		if outcome == component.Found {
			obj := b.object
			if obj == nil {
				obj, _ = c.guard.Lookup(ref.Name, sref.ServiceID())
			}
			err = c.invoker.Unbind(h, c.instance, h.Arg(sref, obj))
		}
	}
	return multierr.Append(err, c.guard.Release(ctx, ref, sref))
}

// Bound returns the service objects bound to the named reference, in bind order.
// Services bound through a ServiceReference method are nil until located.
func (c *Configuration) Bound(refName string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []any
	for _, b := range c.bindings {
		if b.ref.Name == refName {
			out = append(out, b.object)
		}
	}
	return out
}

// IsBound reports whether service id is bound to the named reference.
func (c *Configuration) IsBound(refName string, id component.ServiceID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.bindings {
		if b.ref.Name == refName && b.sref.ServiceID() == id {
			return true
		}
	}
	return false
}

func (c *Configuration) record(b binding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, b)
}

func (c *Configuration) take(refName string, id component.ServiceID) (binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range c.bindings {
		if b.ref.Name == refName && b.sref.ServiceID() == id {
			c.bindings = append(c.bindings[:i], c.bindings[i+1:]...)
			return b, true
		}
	}
	return binding{}, false
}

func (c *Configuration) snapshot(reverse bool) []binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]binding, len(c.bindings))
	copy(out, c.bindings)
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func (c *Configuration) bindingsOf(refName string) []binding {
	var out []binding
	for _, b := range c.snapshot(false) {
		if b.ref.Name == refName {
			out = append(out, b)
		}
	}
	return out
}

func (c *Configuration) fill(refName string, id component.ServiceID, obj any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.bindings {
		if c.bindings[i].ref.Name == refName && c.bindings[i].sref.ServiceID() == id && c.bindings[i].object == nil {
			c.bindings[i].object = obj
		}
	}
}
