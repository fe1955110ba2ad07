package lifecycle

import (
	"context"
	"time"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/depgraph"
)

// Phase is one lifecycle transition's body: install a component, run its
// startup command, run its foreground process, or shut it down. A nil
// Phase is treated as an immediate no-op success, for recipes that omit a
// phase.
type Phase func(ctx context.Context) error

// PhaseSet holds a component's four lifecycle phases and the timeout each
// one runs under.
type PhaseSet struct {
	Install  Phase
	Startup  Phase
	Run      Phase
	Shutdown Phase

	Timeouts PhaseTimeouts
}

// PhaseTimeouts bounds each phase independently. A zero entry means no
// timeout beyond whatever context the caller supplies; the zero value of
// PhaseTimeouts imposes no timeouts at all.
type PhaseTimeouts struct {
	Install  time.Duration
	Startup  time.Duration
	Run      time.Duration
	Shutdown time.Duration
}

// Submitter hands a task to a worker pool for execution. Kernel supplies
// one backed by an errgroup-bounded semaphore (§5); tests may supply one
// that just runs the task on a fresh goroutine.
type Submitter func(task func())

// StateListener observes every committed state transition of an Instance.
type StateListener func(name string, from, to depgraph.ServiceState)

// BackoffConfig bounds the delay between restart attempts after a phase
// failure.
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoffConfig matches the teacher's retry-loop defaults in scale:
// a one-second initial delay capped at one minute.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Initial: time.Second, Max: time.Minute}
}

// FailureWindowConfig governs the ERRORED -> BROKEN escalation: once
// MaxFailures phase failures have landed within Window, the instance is
// escalated to BROKEN instead of being restarted again.
type FailureWindowConfig struct {
	MaxFailures int
	Window      time.Duration
}

// DefaultFailureWindowConfig escalates after 3 failures within 1 hour.
func DefaultFailureWindowConfig() FailureWindowConfig {
	return FailureWindowConfig{MaxFailures: 3, Window: time.Hour}
}
