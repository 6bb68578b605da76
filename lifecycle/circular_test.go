package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sghaida/scr/acquire"
	"github.com/sghaida/scr/component"
	"github.com/sghaida/scr/lifecycle"
)

type Peer interface{ Peer() string }

type node struct {
	name string
	mu   sync.Mutex
	peer Peer
}

func (n *node) Peer() string { return n.name }

func (n *node) bound() Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.peer
}

type nodeA struct{ node }

type nodeB struct{ node }

var peerIDs = map[string]component.ServiceID{"a": 1, "b": 2}

func peerRef(provider string) component.ServiceReference {
	return component.NewServiceReference(peerIDs[provider], provider, nil)
}

// cyclicRuntime wires "a" and "b" so each requires the other. Building a service
// starts the providing component, which in turn tries to bind back.
func cyclicRuntime(t *testing.T) (*lifecycle.Runtime, *observer.ObservedLogs) {
	t.Helper()

	types := component.NewTypes()
	require.NoError(t, component.Capability[Peer](types, "example.Peer"))

	setA := component.DeclareFunc("setPeer", component.Public, func(n *nodeA, p Peer) {
		n.mu.Lock()
		n.peer = p
		n.mu.Unlock()
	})
	setB := component.DeclareFunc("setPeer", component.Public, func(n *nodeB, p Peer) {
		n.mu.Lock()
		n.peer = p
		n.mu.Unlock()
	})
	idA, err := component.Root[*nodeA](types, setA)
	require.NoError(t, err)
	idB, err := component.Root[*nodeB](types, setB)
	require.NoError(t, err)

	peer := component.Reference{Name: "peer", Interface: "example.Peer", Cardinality: component.Mandatory, Bind: "setPeer"}
	provider := component.NewMapProvider()
	for name, id := range map[string]component.TypeID{"a": idA, "b": idB} {
		d, err := component.NewDescriptor(component.DescriptorSpec{Name: name, Type: id, References: []component.Reference{peer}})
		require.NoError(t, err)
		provider.Provide(d)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	var rt *lifecycle.Runtime
	builder := acquire.BuilderFuncs{
		BuildFunc: func(ctx context.Context, _ component.Reference, sref component.ServiceReference) (any, error) {
			name := sref.Provider()
			other := "a"
			var inst any = &nodeA{node{name: "a"}}
			if name == "b" {
				inst = &nodeB{node{name: "b"}}
			} else {
				other = "b"
			}
			cfg, err := rt.Configure(name, inst)
			if err != nil {
				return nil, err
			}
			err = cfg.Start(ctx, map[string][]component.ServiceReference{"peer": {peerRef(other)}})
			return inst, err
		},
	}
	rt = lifecycle.NewRuntime(types, provider, builder, lifecycle.WithLogger(zap.New(core)))
	return rt, logs
}

// TestCircular_NoDeadlockAndRetry verifies a reference cycle terminates, the inner
// component is left unbound, and the unavailable outcome is not remembered.
func TestCircular_NoDeadlockAndRetry(t *testing.T) {
	t.Parallel()

	rt, logs := cyclicRuntime(t)
	a := &nodeA{node{name: "a"}}
	cfgA, err := rt.Configure("a", a)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- cfgA.Start(context.Background(), map[string][]component.ServiceReference{"peer": {peerRef("b")}})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("start did not return")
	}

	require.NotNil(t, a.bound())
	innerB, ok := a.bound().(*nodeB)
	require.True(t, ok)
	assert.Nil(t, innerB.bound(), "the provider started inside the cycle cannot bind back")
	assert.True(t, cfgA.Active())
	assert.Positive(t, logs.FilterMessage("circular service acquisition").Len())

	// a fresh "b" outside the cycle resolves again instead of reusing the unavailable outcome
	b := &nodeB{node{name: "b"}}
	cfgB, err := rt.Configure("b", b)
	require.NoError(t, err)
	require.NoError(t, cfgB.Bind(context.Background(), "peer", peerRef("a")))

	require.NotNil(t, b.bound())
	assert.Equal(t, "a", b.bound().Peer())
	assert.True(t, cfgB.IsBound("peer", peerIDs["a"]))
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}
