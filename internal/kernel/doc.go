// Package kernel is the supervisor proper: it owns component instantiation
// by name, wires each instance's Lifecycle to a bounded worker pool and to
// the dependency graph, fans out global state-change notifications, and
// drives orderly startup and shutdown.
//
// A recipe resolves to one of two construction paths. A code-backed
// service has a constructor registered at build time in a Registry; an
// external-script service falls back to a generic ShellRunner invocation
// of the recipe's per-platform command strings. Both paths produce the
// same lifecycle.PhaseSet shape, so the rest of the kernel never needs to
// know which path built a given instance.
//
// The kernel's own supervision (restarting a crashed worker goroutine, as
// opposed to a supervised component's own restart policy) runs on a small
// suture.v4 tree with three branches (data plane, components,
// DeploymentActivator), so a crash in one branch does not take down the
// others. The kernel itself adds only the PublishQueue drain loop, to the
// data-plane branch; component Lifecycle phases run on the worker pool,
// not on the tree.
package kernel
