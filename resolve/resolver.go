// Package resolve finds the method a component implementation declares for a
// lifecycle or binding event.
//
// Two modes exist. Fixed-signature mode (activate, deactivate) looks for a method
// taking a component.ComponentContext, most derived type first. Polymorphic mode
// (bind, unbind) searches each type of the ancestor chain for, in order:
//
//  1. a method taking the component.ServiceReference itself,
//  2. a method taking exactly the reference's capability type,
//  3. the first declared method whose parameter the service object is assignable to.
//
// Steps 2 and 3 need the service object; it is requested lazily through a Supplier
// and a failed acquisition aborts the search.
//
// Resolver methods never return errors: absence and inaccessibility are outcomes.
package resolve

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/sghaida/scr/component"
)

// Supplier materializes the service object a bind resolution needs. It is called
// at most once per resolution.
type Supplier func() (any, error)

// Result is the outcome of one resolution.
type Result struct {
	Handle  *component.Handle
	Outcome component.Outcome
	// Owner is the type declaring the selected (or rejected) candidate.
	Owner component.TypeID
	// ServiceUsed reports whether the Supplier was called. Service is the concrete
	// type of the supplied object and Object the object itself.
	ServiceUsed bool
	Service     reflect.Type
	Object      any
	// Err is the acquisition failure of an Unavailable result.
	Err error
}

// Entry converts the result into a cache entry.
func (r Result) Entry() component.Entry {
	return component.Entry{Handle: r.Handle, Outcome: r.Outcome}
}

// Resolver resolves methods over a component.Types arena. It is stateless apart from
// its configuration and safe for concurrent use.
type Resolver struct {
	types  *component.Types
	logger *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logging sink. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Resolver over types.
func New(types *component.Types, opts ...Option) *Resolver {
	r := &Resolver{types: types, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Types returns the arena the resolver reads.
func (r *Resolver) Types() *component.Types { return r.types }

// Assignable reports whether a value of the concrete type can be passed where param
// is declared. It is the only type-compatibility decision the resolver makes.
func Assignable(param, concrete reflect.Type) bool {
	return param != nil && concrete != nil && concrete.AssignableTo(param)
}

// Find resolves a fixed-signature method name(ComponentContext) starting at rt.
// Candidates that are not protected or public are skipped, so an inaccessible
// override does not hide an accessible inherited method. The outcome is Inaccessible
// only when such a candidate was seen and nothing callable was found.
func (r *Resolver) Find(rt component.TypeID, name string) Result {
	ctxType := component.ContextType()
	rejected := component.NoType

	for _, id := range r.types.Chain(rt) {
		info, _ := r.types.Info(id)
		for _, m := range info.Methods {
			if m.Name != name || m.Param != ctxType {
				continue
			}
			if !m.Access.Invocable() {
				if rejected == component.NoType {
					rejected = id
				}
				break
			}
			return r.found(rt, id, m, component.ByContext, Result{})
		}
	}
	if rejected != component.NoType {
		return Result{Outcome: component.Inaccessible, Owner: rejected}
	}
	return Result{Outcome: component.NotFound, Owner: component.NoType}
}

// FindBind resolves a bind or unbind method named name for ref, starting at rt.
func (r *Resolver) FindBind(rt component.TypeID, ref component.Reference, name string, supply Supplier) Result {
	refType := component.ReferenceType()
	var (
		res     Result
		capType reflect.Type
	)
	need := func() error {
		if res.ServiceUsed {
			return nil
		}
		res.ServiceUsed = true
		if supply == nil {
			return component.ErrUnavailable
		}
		obj, err := supply()
		if err != nil {
			return err
		}
		if obj == nil {
			return component.ErrUnavailable
		}
		res.Object = obj
		res.Service = reflect.TypeOf(obj)
		ct, ok := r.types.CapabilityType(ref.Interface)
		switch {
		case !ok:
			r.logger.Error("reference capability is not registered",
				zap.String("reference", ref.Name),
				zap.String("interface", ref.Interface),
				zap.String("method", name))
		case Assignable(ct, res.Service):
			capType = ct
		}
		return nil
	}

	for _, id := range r.types.Chain(rt) {
		info, _ := r.types.Info(id)

		if m, ok := declared(info, name, func(p reflect.Type) bool { return p == refType }); ok {
			return r.found(rt, id, m, component.ByReference, res)
		}

		if err := need(); err != nil {
			res.Outcome = component.Unavailable
			res.Owner = component.NoType
			res.Err = err
			return res
		}

		if capType != nil {
			if m, ok := declared(info, name, func(p reflect.Type) bool { return p == capType }); ok {
				return r.found(rt, id, m, component.ByCapability, res)
			}
		}

		if m, ok := declared(info, name, func(p reflect.Type) bool { return Assignable(p, res.Service) }); ok {
			return r.found(rt, id, m, component.ByAssignable, res)
		}
	}

	res.Outcome = component.NotFound
	res.Owner = component.NoType
	return res
}

// Lifecycle returns the memoized activate or deactivate resolution of d.
// The first resolution is shared by concurrent callers and logged once.
func (r *Resolver) Lifecycle(d *component.Descriptor, role component.Role) component.Entry {
	name := d.MethodName(role)
	return d.Memoize(role,
		func() component.Entry { return r.Find(d.Type(), name).Entry() },
		func(e component.Entry) { r.Report(d.Name(), role, "", name, e.Outcome) },
	)
}

// Report logs a memoized resolution outcome. Missing lifecycle methods are optional
// and only logged at debug level; everything else that is not Found is an error.
func (r *Resolver) Report(comp string, role component.Role, reference, method string, o component.Outcome) {
	fields := []zap.Field{
		zap.String("component", comp),
		zap.String("role", role.String()),
		zap.String("method", method),
	}
	if reference != "" {
		fields = append(fields, zap.String("reference", reference))
	}

	switch o {
	case component.NotFound:
		if role == component.RoleActivate || role == component.RoleDeactivate {
			r.logger.Debug("no lifecycle method", fields...)
			return
		}
		r.logger.Error("could not find method", fields...)
	case component.Inaccessible:
		r.logger.Error("method is not protected or public", fields...)
	}
}

func (r *Resolver) found(rt, owner component.TypeID, m component.Method, v component.Variant, res Result) Result {
	res.Owner = owner
	if !m.Access.Invocable() {
		res.Outcome = component.Inaccessible
		return res
	}
	project, err := r.types.Projection(rt, owner)
	if err != nil {
		r.logger.Error("cannot project instance to declaring type",
			zap.String("method", m.Name), zap.Error(err))
		res.Outcome = component.NotFound
		return res
	}
	res.Outcome = component.Found
	res.Handle = component.NewHandle(m, owner, v, project)
	return res
}

// declared returns the first method of info named name whose parameter satisfies
// match, in declaration order.
func declared(info component.TypeInfo, name string, match func(reflect.Type) bool) (component.Method, bool) {
	for _, m := range info.Methods {
		if m.Name == name && match(m.Param) {
			return m, true
		}
	}
	return component.Method{}, false
}
