package lifecycle_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sghaida/scr/acquire"
	"github.com/sghaida/scr/component"
	"github.com/sghaida/scr/lifecycle"
)

type Foo interface{ Foo() string }

type fooSvc struct{ id component.ServiceID }

func (f *fooSvc) Foo() string { return "foo-" + strconv.FormatInt(int64(f.id), 10) }

type consumer struct {
	mu     sync.Mutex
	events []string
	foos   []Foo
}

func (c *consumer) record(e string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *consumer) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

const fooCap = "example.Foo"

var (
	errActivate = errors.New("activate failed")
	errBind     = errors.New("bind failed")
)

// Method tables reused across tests.
var (
	protectedActivate = component.DeclareFunc("activate", component.Protected,
		func(c *consumer, cc component.ComponentContext) { c.record("activate:" + cc.ComponentName()) })
	publicDeactivate = component.DeclareFunc("deactivate", component.Public,
		func(c *consumer, _ component.ComponentContext) { c.record("deactivate") })
	failingActivate = component.Declare("activate", component.Public,
		func(c *consumer, _ component.ComponentContext) error { c.record("activate"); return errActivate })
	bindFoo = component.DeclareFunc("setFoo", component.Public,
		func(c *consumer, f Foo) { c.record("setFoo:" + f.Foo()); c.foos = append(c.foos, f) })
	bindFooRef = component.DeclareFunc("setFoo", component.Public,
		func(c *consumer, r component.ServiceReference) {
			c.record("setFooRef:" + strconv.FormatInt(int64(r.ServiceID()), 10))
		})
	unbindFoo = component.DeclareFunc("unsetFoo", component.Protected,
		func(c *consumer, f Foo) { c.record("unsetFoo:" + f.Foo()) })
	failingBindFoo = component.Declare("setFoo", component.Public,
		func(c *consumer, _ Foo) error { c.record("setFoo"); return errBind })
)

func fooReference(name string, card component.Cardinality) component.Reference {
	return component.Reference{Name: name, Interface: fooCap, Cardinality: card, Bind: "setFoo", Unbind: "unsetFoo"}
}

type fixture struct {
	types    *component.Types
	provider *component.MapProvider
	runtime  *lifecycle.Runtime
	logs     *observer.ObservedLogs
	builds   atomic.Int32
	disposes atomic.Int32
}

// newFixture defines *consumer with methods, registers a "consumer" descriptor with refs
// and a builder producing *fooSvc values.
func newFixture(t *testing.T, methods []component.Method, refs ...component.Reference) *fixture {
	t.Helper()

	f := &fixture{types: component.NewTypes(), provider: component.NewMapProvider()}
	require.NoError(t, component.Capability[Foo](f.types, fooCap))
	id, err := component.Root[*consumer](f.types, methods...)
	require.NoError(t, err)

	d, err := component.NewDescriptor(component.DescriptorSpec{Name: "consumer", Type: id, References: refs})
	require.NoError(t, err)
	f.provider.Provide(d)

	core, logs := observer.New(zapcore.DebugLevel)
	f.logs = logs
	builder := acquire.BuilderFuncs{
		BuildFunc: func(_ context.Context, _ component.Reference, sref component.ServiceReference) (any, error) {
			f.builds.Add(1)
			return &fooSvc{id: sref.ServiceID()}, nil
		},
		DisposeFunc: func(context.Context, component.Reference, component.ServiceReference, any) error {
			f.disposes.Add(1)
			return nil
		},
	}
	f.runtime = lifecycle.NewRuntime(f.types, f.provider, builder, lifecycle.WithLogger(zap.New(core)))
	return f
}

func (f *fixture) configure(t *testing.T, opts ...lifecycle.Option) (*lifecycle.Configuration, *consumer) {
	t.Helper()
	c := &consumer{}
	cfg, err := f.runtime.Configure("consumer", c, opts...)
	require.NoError(t, err)
	return cfg, c
}

func sref(id component.ServiceID) component.ServiceReference {
	return component.NewServiceReference(id, "", nil)
}
