package lifecycle

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/sghaida/scr/acquire"
	"github.com/sghaida/scr/component"
	"github.com/sghaida/scr/resolve"
)

// UnknownComponentError is returned by Runtime.Configure for a name the provider
// does not know.
type UnknownComponentError struct{ Name string }

// Error implements the error interface.
func (e UnknownComponentError) Error() string {
	return "scr: unknown component " + strconv.Quote(e.Name)
}

// Runtime ties a type arena, a descriptor provider and a service builder together
// and creates configurations. One Runtime (and therefore one Resolver and Invoker)
// is shared by all components it manages.
type Runtime struct {
	types    *component.Types
	provider component.Provider
	builder  acquire.Builder
	invoker  *Invoker
	logger   *zap.Logger
}

// NewRuntime returns a Runtime. WithLogger is honored; WithProperties is ignored.
func NewRuntime(types *component.Types, provider component.Provider, builder acquire.Builder, opts ...Option) *Runtime {
	o := newOptions(opts)
	res := resolve.New(types, resolve.WithLogger(o.logger))
	return &Runtime{
		types:    types,
		provider: provider,
		builder:  builder,
		invoker:  NewInvoker(res, WithLogger(o.logger)),
		logger:   o.logger,
	}
}

func (r *Runtime) Types() *component.Types { return r.types }

func (r *Runtime) Invoker() *Invoker { return r.invoker }

// Configure creates a configuration of the named component around instance, which
// must be of the component's implementation type. Every reference must name a
// registered capability.
func (r *Runtime) Configure(name string, instance any, opts ...Option) (*Configuration, error) {
	d, ok, err := r.provider.Descriptor(name)
	if err != nil {
		return nil, fmt.Errorf("scr: lookup component %q: %w", name, err)
	}
	if !ok || d == nil {
		return nil, UnknownComponentError{Name: name}
	}
	if err := r.types.CheckDescriptor(d); err != nil {
		return nil, err
	}
	if err := r.invoker.check(d, instance, d.MethodName(component.RoleActivate)); err != nil {
		return nil, err
	}
	opts = append([]Option{WithLogger(r.logger)}, opts...)
	return NewConfiguration(d, instance, r.invoker, r.builder, opts...), nil
}
