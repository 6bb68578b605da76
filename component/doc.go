// Package component is the descriptor model of the runtime.
//
// It holds everything the resolver and invoker read:
//
//   - Types: an append-only arena of implementation types. Each entry lists the
//     methods the type itself declares (its dispatch table) and the index of its
//     supertype, so resolution walks precomputed data instead of reflecting over live
//     types.
//   - Method / Handle: typed single-parameter entry points and resolved, invocable
//     handles.
//   - Descriptor: the immutable declaration of a component (lifecycle method names,
//     references) plus the shared resolved-method cache.
//   - Provider: where descriptors come from.
//
// Declaring an implementation:
//
//	types := component.NewTypes()
//	_ = component.Capability[Logger](types, "example.Logger")
//	id, err := component.Root[*Cache](types,
//	    component.Declare("activate", component.Protected,
//	        func(c *Cache, cc component.ComponentContext) error { return c.open() }),
//	    component.DeclareFunc("setLogger", component.Public,
//	        func(c *Cache, l Logger) { c.log = l }),
//	)
//
// Errors follow two families. ErrNotFound, ErrInaccessible and ErrUnavailable describe
// resolution outcomes; they are logged by the engine and never returned from
// lifecycle calls. InvocationError (engine could not call) and TargetError (the called
// method failed) are returned to the caller.
package component
