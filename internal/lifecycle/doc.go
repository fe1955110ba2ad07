// Package lifecycle implements the per-component state machine: NEW,
// INSTALLED, STARTING, RUNNING, STOPPING, FINISHED, ERRORED, BROKEN, driven
// by install/startup/run/shutdown phases executed on a caller-supplied
// worker pool.
//
// Every phase dispatch captures the instance's current stateGeneration; a
// phase's completion is applied only if the generation it captured is
// still current, so a Stop (or a restart) that bumps the generation mid-
// flight silently discards a stale phase outcome instead of racing it into
// the state field.
//
// A failed phase schedules a restart under exponential backoff; a sliding
// window of recent failures escalates the instance to BROKEN once too many
// failures land inside the window, instead of retrying forever. Shutdown
// waits on a sync.WaitGroup counting in-flight phase goroutines rather than
// polling a state field, so every goroutine's completion is observable
// without races.
package lifecycle
