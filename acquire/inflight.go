package acquire

import "context"

type inflightKey struct{}

// inflight is an immutable stack of component names whose activation is in
// progress on the current call path.
type inflight struct {
	name   string
	parent *inflight
}

// WithActivation returns a context recording that component's activation is in
// progress. Every acquisition made with the returned context (or one derived from
// it) treats services provided by component as circular.
func WithActivation(ctx context.Context, component string) context.Context {
	if Activating(ctx, component) {
		return ctx
	}
	parent, _ := ctx.Value(inflightKey{}).(*inflight)
	return context.WithValue(ctx, inflightKey{}, &inflight{name: component, parent: parent})
}

// Activating reports whether component's activation is in progress on ctx.
func Activating(ctx context.Context, component string) bool {
	for n, _ := ctx.Value(inflightKey{}).(*inflight); n != nil; n = n.parent {
		if n.name == component {
			return true
		}
	}
	return false
}

// InFlight returns the components in progress on ctx, outermost first.
func InFlight(ctx context.Context) []string {
	var names []string
	for n, _ := ctx.Value(inflightKey{}).(*inflight); n != nil; n = n.parent {
		names = append(names, n.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}
