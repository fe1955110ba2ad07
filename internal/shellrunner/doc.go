// Package shellrunner spawns external processes on behalf of a component's
// lifecycle phases: a resolved environment, working directory, and
// timeout, with stdout/stderr passed to caller-supplied writers.
// Cancelling the context passed to Run kills the whole process group, not
// just the direct child, so a phase that shells out to a wrapper script
// cannot leave orphaned grandchildren behind.
//
// Runner is exposed as an interface so Lifecycle phases depend on a narrow
// contract rather than os/exec directly, which is what makes phase
// cancellation wiring testable without forking real processes.
package shellrunner
