// Package scr is a declarative component runtime core for Go.
//
// A component declares which lifecycle hooks it has (activate / deactivate) and which
// collaborators it needs (references with bind / unbind hooks). The engine finds the
// right entry point for each event and calls it, so implementations never write
// wiring code themselves.
//
// Instead of runtime reflection over an open type hierarchy, implementations register
// a small dispatch table per type (see component.Declare and component.Types). The
// resolver then walks that table with a fixed precedence, and every result is memoized
// on the component descriptor.
//
// See subpackages:
//   - component: descriptor model, type arena, method tables, errors
//   - resolve: method resolution (fixed-signature and polymorphic bind/unbind)
//   - acquire: lazy, cycle-safe service acquisition
//   - lifecycle: invoker, live configurations and the runtime facade
//   - examples/scr: runnable end-to-end example
package scr
