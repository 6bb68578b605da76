package acquire_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sghaida/scr/acquire"
	"github.com/sghaida/scr/component"
)

type store struct{ id component.ServiceID }

var logRef = component.Reference{Name: "log", Interface: "example.Logger", Bind: "setLog"}

// countingBuilder builds a fresh *store per call and counts builds and disposals.
func countingBuilder(builds, disposes *atomic.Int32) acquire.BuilderFuncs {
	return acquire.BuilderFuncs{
		BuildFunc: func(_ context.Context, _ component.Reference, sref component.ServiceReference) (any, error) {
			builds.Add(1)
			return &store{id: sref.ServiceID()}, nil
		},
		DisposeFunc: func(context.Context, component.Reference, component.ServiceReference, any) error {
			disposes.Add(1)
			return nil
		},
	}
}

//
// -----------------------------------------------------------------------------
// Acquire
// -----------------------------------------------------------------------------

// TestAcquire_MaterializesOnce verifies repeated requests return the cached object.
func TestAcquire_MaterializesOnce(t *testing.T) {
	t.Parallel()

	var builds, disposes atomic.Int32
	g := acquire.NewGuard("cache", countingBuilder(&builds, &disposes))
	sref := component.NewServiceReference(1, "", nil)

	first, err := g.Acquire(context.Background(), logRef, sref)
	require.NoError(t, err)
	second, err := g.Acquire(context.Background(), logRef, sref)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), builds.Load())

	got, ok := g.Lookup("log", 1)
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, g.Len())
}

// TestAcquire_KeyedByReferenceAndService verifies different triples materialize separately.
func TestAcquire_KeyedByReferenceAndService(t *testing.T) {
	t.Parallel()

	var builds, disposes atomic.Int32
	g := acquire.NewGuard("cache", countingBuilder(&builds, &disposes))
	ctx := context.Background()

	a, err := g.Acquire(ctx, logRef, component.NewServiceReference(1, "", nil))
	require.NoError(t, err)
	b, err := g.Acquire(ctx, logRef, component.NewServiceReference(2, "", nil))
	require.NoError(t, err)
	other := logRef
	other.Name = "audit"
	c, err := g.Acquire(ctx, other, component.NewServiceReference(1, "", nil))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, int32(3), builds.Load())
	assert.Equal(t, 3, g.Len())
}

// TestAcquire_CircularProvider verifies a provider already activating on ctx is refused
// without calling the builder.
func TestAcquire_CircularProvider(t *testing.T) {
	t.Parallel()

	var builds, disposes atomic.Int32
	g := acquire.NewGuard("b", countingBuilder(&builds, &disposes))

	ctx := acquire.WithActivation(context.Background(), "a")
	obj, err := g.Acquire(ctx, logRef, component.NewServiceReference(1, "a", nil))

	require.ErrorIs(t, err, component.ErrCircular)
	require.ErrorIs(t, err, component.ErrUnavailable)
	assert.Nil(t, obj)
	assert.Zero(t, builds.Load())
	assert.Zero(t, g.Len())
}

// TestAcquire_BuilderSeesRequester verifies the builder runs with the requester marked
// as activating, so nested acquisitions can detect cycles.
func TestAcquire_BuilderSeesRequester(t *testing.T) {
	t.Parallel()

	var seen []string
	g := acquire.NewGuard("a", acquire.BuilderFuncs{
		BuildFunc: func(ctx context.Context, _ component.Reference, _ component.ServiceReference) (any, error) {
			seen = acquire.InFlight(ctx)
			return &store{}, nil
		},
	})

	ctx := acquire.WithActivation(context.Background(), "root")
	_, err := g.Acquire(ctx, logRef, component.NewServiceReference(1, "b", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "a"}, seen)
}

// TestAcquire_BuilderFailures verifies how builder results map to errors.
func TestAcquire_BuilderFailures(t *testing.T) {
	t.Parallel()

	errDown := errors.New("backend down")
	cases := []struct {
		name    string
		builder acquire.Builder
		wantIs  error
		wantAs  bool
	}{
		{name: "nil builder", builder: nil, wantIs: component.ErrUnavailable},
		{name: "nil build func", builder: acquire.BuilderFuncs{}, wantIs: component.ErrUnavailable},
		{
			name: "nil object",
			builder: acquire.BuilderFuncs{BuildFunc: func(context.Context, component.Reference, component.ServiceReference) (any, error) {
				return nil, nil
			}},
			wantIs: component.ErrUnavailable,
		},
		{
			name: "circular reported by builder",
			builder: acquire.BuilderFuncs{BuildFunc: func(context.Context, component.Reference, component.ServiceReference) (any, error) {
				return nil, component.ErrCircular
			}},
			wantIs: component.ErrCircular,
		},
		{
			name: "other error",
			builder: acquire.BuilderFuncs{BuildFunc: func(context.Context, component.Reference, component.ServiceReference) (any, error) {
				return nil, errDown
			}},
			wantIs: errDown,
			wantAs: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := acquire.NewGuard("cache", tc.builder)
			obj, err := g.Acquire(context.Background(), logRef, component.NewServiceReference(9, "", nil))
			require.Error(t, err)
			assert.Nil(t, obj)
			assert.ErrorIs(t, err, tc.wantIs)

			var ae acquire.AcquireError
			assert.Equal(t, tc.wantAs, errors.As(err, &ae))
			assert.Zero(t, g.Len())
		})
	}
}

// TestAcquire_NilServiceReference verifies a missing handle is unavailable.
func TestAcquire_NilServiceReference(t *testing.T) {
	t.Parallel()

	g := acquire.NewGuard("cache", acquire.BuilderFuncs{})
	_, err := g.Acquire(context.Background(), logRef, nil)
	assert.ErrorIs(t, err, component.ErrUnavailable)
}

// TestAcquire_ConcurrentSameKeyConverges verifies racing acquisitions agree on one
// object and surplus objects are disposed.
func TestAcquire_ConcurrentSameKeyConverges(t *testing.T) {
	t.Parallel()

	var builds, disposes atomic.Int32
	g := acquire.NewGuard("cache", countingBuilder(&builds, &disposes))
	sref := component.NewServiceReference(5, "", nil)

	var eg errgroup.Group
	objs := make([]any, 16)
	for i := range objs {
		eg.Go(func() error {
			obj, err := g.Acquire(context.Background(), logRef, sref)
			objs[i] = obj
			return err
		})
	}
	require.NoError(t, eg.Wait())

	for _, o := range objs {
		assert.Same(t, objs[0], o)
	}
	assert.Equal(t, builds.Load()-1, disposes.Load())
}

//
// -----------------------------------------------------------------------------
// Release
// -----------------------------------------------------------------------------

// TestRelease_DisposesAndForgets verifies release hands the object back once.
func TestRelease_DisposesAndForgets(t *testing.T) {
	t.Parallel()

	var builds, disposes atomic.Int32
	g := acquire.NewGuard("cache", countingBuilder(&builds, &disposes))
	sref := component.NewServiceReference(1, "", nil)
	ctx := context.Background()

	_, err := g.Acquire(ctx, logRef, sref)
	require.NoError(t, err)

	require.NoError(t, g.Release(ctx, logRef, sref))
	require.NoError(t, g.Release(ctx, logRef, sref))
	require.NoError(t, g.Release(ctx, logRef, nil))

	assert.Equal(t, int32(1), disposes.Load())
	_, ok := g.Lookup("log", 1)
	assert.False(t, ok)

	// acquiring again builds a new object
	_, err = g.Acquire(ctx, logRef, sref)
	require.NoError(t, err)
	assert.Equal(t, int32(2), builds.Load())
}

//
// -----------------------------------------------------------------------------
// In-flight set
// -----------------------------------------------------------------------------

// TestWithActivation verifies the in-flight set is call-path scoped.
func TestWithActivation(t *testing.T) {
	t.Parallel()

	root := context.Background()
	a := acquire.WithActivation(root, "a")
	ab := acquire.WithActivation(a, "b")

	assert.False(t, acquire.Activating(root, "a"))
	assert.True(t, acquire.Activating(a, "a"))
	assert.False(t, acquire.Activating(a, "b"))
	assert.True(t, acquire.Activating(ab, "a"))
	assert.True(t, acquire.Activating(ab, "b"))

	assert.Empty(t, acquire.InFlight(root))
	assert.Equal(t, []string{"a", "b"}, acquire.InFlight(ab))

	// re-entering does not grow the set
	assert.Equal(t, ab, acquire.WithActivation(ab, "a"))
}
