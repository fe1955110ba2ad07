// Package diregistry implements the process-wide construction registry: a
// single explicit value, threaded into every constructor that needs one,
// mapping (type, name) to a lazily constructed instance.
//
// The package lives under internal/context (matching the component name in
// the design) but is not named context itself, since its own constructors
// need to take a standard context.Context for cancellation alongside the
// registry value, and the two must not collide on import.
//
// There is deliberately no package-level singleton here. A *Context is
// created once at boot (by cmd/nucleus) and passed down; the only public
// entry point for obtaining a dependency is GetOrConstruct — "get or
// construct", never a bare global lookup.
//
// Internally, a Context wraps a *dig.Container for the reflection-based
// constructor-invocation machinery (so a constructor can itself declare
// dependencies as plain function parameters and have them resolved), while
// the Context adds what dig does not provide on its own: named instances
// of the same type, and an explicit teardown order that is always the
// reverse of construction order.
package diregistry
