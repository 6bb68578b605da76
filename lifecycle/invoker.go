package lifecycle

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/sghaida/scr/acquire"
	"github.com/sghaida/scr/component"
	"github.com/sghaida/scr/resolve"
)

// Invoker calls activate, deactivate, bind and unbind methods on live instances.
//
// Activate and Deactivate resolve (once per descriptor) and invoke. Bind and Unbind
// only invoke a handle the caller already resolved, see ResolveBind.
type Invoker struct {
	resolver *resolve.Resolver
	logger   *zap.Logger
}

// NewInvoker returns an Invoker resolving through resolver.
func NewInvoker(resolver *resolve.Resolver, opts ...Option) *Invoker {
	o := newOptions(opts)
	return &Invoker{resolver: resolver, logger: o.logger}
}

// Resolver returns the resolver used by the invoker.
func (iv *Invoker) Resolver() *resolve.Resolver { return iv.resolver }

// Activate calls the activate method of instance with cctx, if d's implementation
// declares a callable one. A missing or inaccessible method is a no-op.
func (iv *Invoker) Activate(d *component.Descriptor, instance any, cctx component.ComponentContext) error {
	return iv.lifecycle(component.RoleActivate, d, instance, cctx)
}

// Deactivate is the counterpart of Activate.
func (iv *Invoker) Deactivate(d *component.Descriptor, instance any, cctx component.ComponentContext) error {
	return iv.lifecycle(component.RoleDeactivate, d, instance, cctx)
}

// Bind invokes an already resolved bind method. arg is the service object or the
// service reference, matching the handle's variant (see component.Handle.Arg).
func (iv *Invoker) Bind(h *component.Handle, instance, arg any) error {
	return h.Invoke(instance, arg)
}

// Unbind invokes an already resolved unbind method.
func (iv *Invoker) Unbind(h *component.Handle, instance, arg any) error {
	return h.Invoke(instance, arg)
}

func (iv *Invoker) lifecycle(role component.Role, d *component.Descriptor, instance any, cctx component.ComponentContext) error {
	if err := iv.check(d, instance, d.MethodName(role)); err != nil {
		return err
	}
	e := iv.resolver.Lifecycle(d, role)
	if e.Outcome != component.Found {
		return nil
	}
	return e.Handle.Invoke(instance, cctx)
}

func (iv *Invoker) check(d *component.Descriptor, instance any, method string) error {
	if instance == nil {
		return component.InvocationError{Method: method, Err: component.ErrNilInstance}
	}
	rt, ok := iv.resolver.Types().TypeOf(instance)
	if !ok || rt != d.Type() {
		return component.InvocationError{
			Method: method,
			Err:    fmt.Errorf("instance %T is not the implementation of %q", instance, d.Name()),
		}
	}
	return nil
}

// ResolveBind returns the handle of ref's bind or unbind method on d's
// implementation. Results are memoized on d: the service-independent answer (a
// ServiceReference method on the most derived type) under a key without service
// type, every other answer under the concrete type of the service object, which is
// acquired through guard when needed. Unavailable outcomes are not memoized.
func (iv *Invoker) ResolveBind(
	ctx context.Context,
	d *component.Descriptor,
	guard *acquire.Guard,
	ref component.Reference,
	sref component.ServiceReference,
	role component.Role,
) (*component.Handle, component.Outcome) {
	name := ref.Method(role)
	if name == "" {
		return nil, component.NotFound
	}
	rt := d.Type()
	supply := func() (any, error) { return guard.Acquire(ctx, ref, sref) }

	base := d.BindCell(component.BindKey{Role: role, Reference: ref.Name, Runtime: rt})
	if e, ok := base.Load(); ok {
		if !e.NeedsService {
			return e.Handle, e.Outcome
		}
		obj, err := supply()
		if err != nil {
			iv.unavailable(d, ref, role, err)
			return nil, component.Unavailable
		}
		return iv.typed(d, rt, ref, role, name, obj)
	}

	res := iv.resolver.FindBind(rt, ref, name, supply)
	if res.Outcome == component.Unavailable {
		iv.unavailable(d, ref, role, res.Err)
		return nil, component.Unavailable
	}
	if !res.ServiceUsed {
		e, won := base.Claim(res.Entry())
		if won {
			iv.resolver.Report(d.Name(), role, ref.Name, name, e.Outcome)
		}
		return e.Handle, e.Outcome
	}

	base.Claim(component.Entry{Outcome: component.NotFound, NeedsService: true})
	cell := d.BindCell(component.BindKey{Role: role, Reference: ref.Name, Runtime: rt, Service: res.Service})
	e, won := cell.Claim(res.Entry())
	if won {
		iv.resolver.Report(d.Name(), role, ref.Name, name, e.Outcome)
	}
	return e.Handle, e.Outcome
}

func (iv *Invoker) typed(
	d *component.Descriptor,
	rt component.TypeID,
	ref component.Reference,
	role component.Role,
	name string,
	obj any,
) (*component.Handle, component.Outcome) {
	cell := d.BindCell(component.BindKey{Role: role, Reference: ref.Name, Runtime: rt, Service: reflect.TypeOf(obj)})
	if e, ok := cell.Load(); ok {
		return e.Handle, e.Outcome
	}
	res := iv.resolver.FindBind(rt, ref, name, func() (any, error) { return obj, nil })
	e, won := cell.Claim(res.Entry())
	if won {
		iv.resolver.Report(d.Name(), role, ref.Name, name, e.Outcome)
	}
	return e.Handle, e.Outcome
}

func (iv *Invoker) unavailable(d *component.Descriptor, ref component.Reference, role component.Role, err error) {
	iv.logger.Debug("service unavailable during method resolution",
		zap.String("component", d.Name()),
		zap.String("reference", ref.Name),
		zap.String("role", role.String()),
		zap.Error(err))
}
