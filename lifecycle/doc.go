// Package lifecycle drives live component configurations.
//
// The Invoker calls activate/deactivate (resolving them once per descriptor) and
// bind/unbind handles resolved by the caller. Failures of the called method come back
// as component.TargetError; failures of the engine to make the call as
// component.InvocationError. Missing or inaccessible methods are logged and skipped.
//
// A Configuration is one activated instance: it binds services through an
// acquire.Guard, remembers which binds succeeded, and on Deactivate unbinds exactly
// those, in reverse order, even when activation failed.
//
// Typical flow:
//
//	rt := lifecycle.NewRuntime(types, provider, builder, lifecycle.WithLogger(logger))
//	cfg, err := rt.Configure("cache", &Cache{})
//	if err != nil { ... }
//	if err := cfg.Start(ctx, candidates); err != nil {
//	    _ = cfg.Deactivate(ctx)
//	}
package lifecycle
