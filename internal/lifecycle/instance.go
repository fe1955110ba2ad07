package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/depgraph"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
)

// Instance is one component's lifecycle state machine. The zero value is
// not usable; construct with New.
type Instance struct {
	name   string
	phases PhaseSet
	submit Submitter
	window FailureWindowConfig

	now func() time.Time

	mu         sync.Mutex
	state      depgraph.ServiceState
	generation uint64
	lastError  error
	failures   []time.Time
	backoff    *backoff.ExponentialBackOff
	listeners  map[uint64]StateListener
	nextSubID  uint64
	parentCtx  context.Context
	cancelRun  context.CancelFunc

	wg sync.WaitGroup
}

// New constructs an Instance in state NEW. submit dispatches phase bodies
// onto a worker pool; a nil submit runs phases on a fresh goroutine per
// call, which is adequate for tests but not for production use where
// phases must be bounded by the shared pool.
func New(name string, phases PhaseSet, submit Submitter, backoffCfg BackoffConfig, window FailureWindowConfig) *Instance {
	if submit == nil {
		submit = func(task func()) { go task() }
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffCfg.Initial
	b.MaxInterval = backoffCfg.Max
	b.MaxElapsedTime = 0 // never stop retrying on its own; the failure window decides BROKEN

	return &Instance{
		name:      name,
		phases:    phases,
		submit:    submit,
		window:    window,
		now:       time.Now,
		state:     depgraph.StateNew,
		backoff:   b,
		listeners: make(map[uint64]StateListener),
	}
}

// Name returns the component name this Instance drives.
func (in *Instance) Name() string { return in.name }

// State returns the current, committed state.
func (in *Instance) State() depgraph.ServiceState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// LastError returns the error from the most recent failed phase, if any.
func (in *Instance) LastError() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.lastError
}

// Subscribe registers listener for every future committed transition and
// returns a function that removes it.
func (in *Instance) Subscribe(listener StateListener) (unsubscribe func()) {
	in.mu.Lock()
	in.nextSubID++
	id := in.nextSubID
	in.listeners[id] = listener
	in.mu.Unlock()
	return func() {
		in.mu.Lock()
		delete(in.listeners, id)
		in.mu.Unlock()
	}
}

// Start dispatches the install -> startup -> run phase sequence on the
// worker pool. It returns immediately; observe progress via Subscribe or
// State. Calling Stop cancels the context passed to whatever phase is
// currently running, so a well-behaved phase unblocks promptly instead of
// leaving Stop waiting on a goroutine the generation bump has already
// discarded.
func (in *Instance) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	in.mu.Lock()
	in.parentCtx = ctx
	in.cancelRun = cancel
	in.mu.Unlock()

	gen := in.bumpGeneration()
	in.wg.Add(1)
	in.submit(func() {
		defer in.wg.Done()
		in.runStartSequence(runCtx, gen)
	})
}

func (in *Instance) runStartSequence(ctx context.Context, gen uint64) {
	if !in.commit(gen, depgraph.StateInstalled) {
		return
	}
	if err := runPhase(ctx, "install", in.phases.Install, in.phases.Timeouts.Install); err != nil {
		in.fail(gen, err)
		return
	}

	if !in.commit(gen, depgraph.StateStarting) {
		return
	}
	if err := runPhase(ctx, "startup", in.phases.Startup, in.phases.Timeouts.Startup); err != nil {
		in.fail(gen, err)
		return
	}

	if !in.commit(gen, depgraph.StateRunning) {
		return
	}
	in.mu.Lock()
	in.backoff.Reset()
	in.mu.Unlock()

	if err := runPhase(ctx, "run", in.phases.Run, in.phases.Timeouts.Run); err != nil {
		in.fail(gen, err)
		return
	}
	in.commit(gen, depgraph.StateFinished)
}

// Stop transitions the instance through STOPPING, runs the shutdown phase,
// and waits up to timeout for every in-flight phase goroutine (including
// any still-running start sequence, which the generation bump below
// invalidates) to finish. Shutdown observability never relies on polling
// the state field: the countdown is a real sync.WaitGroup.
func (in *Instance) Stop(ctx context.Context, timeout time.Duration) error {
	gen := in.bumpGeneration()
	in.commitForce(depgraph.StateStopping)

	in.mu.Lock()
	cancelRun := in.cancelRun
	in.mu.Unlock()
	if cancelRun != nil {
		cancelRun()
	}

	in.wg.Add(1)
	in.submit(func() {
		defer in.wg.Done()
		err := runPhase(ctx, "shutdown", in.phases.Shutdown, in.phases.Timeouts.Shutdown)
		if err != nil {
			logging.Warn().Str("component", in.name).Err(err).Msg("lifecycle: shutdown phase failed")
		}
		in.commit(gen, depgraph.StateFinished)
	})

	waitDone := make(chan struct{})
	go func() {
		in.wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("lifecycle: %s did not finish shutdown within %s", in.name, timeout)
	}
}

// runPhase runs phase under ctx, bounded by timeout if positive. A timeout
// firing before phase returns is reported as an ERRORED-worthy error naming
// the phase, regardless of whether phase itself noticed the deadline or
// returned some other error racing against it.
func runPhase(ctx context.Context, name string, phase Phase, timeout time.Duration) error {
	if phase == nil {
		return nil
	}
	if timeout <= 0 {
		return phase(ctx)
	}

	phaseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := phase(phaseCtx)
	if errors.Is(phaseCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timeout in %s", name)
	}
	return err
}

func (in *Instance) bumpGeneration() uint64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.generation++
	return in.generation
}

// commit applies newState only if gen is still the current generation.
// Reports whether it applied.
func (in *Instance) commit(gen uint64, newState depgraph.ServiceState) bool {
	in.mu.Lock()
	if gen != in.generation {
		in.mu.Unlock()
		return false
	}
	old := in.state
	in.state = newState
	in.mu.Unlock()
	in.notify(old, newState)
	return true
}

// commitForce applies newState unconditionally. Used only by Stop, which
// owns the generation it just bumped and must always be able to announce
// STOPPING regardless of what the prior sequence was doing.
func (in *Instance) commitForce(newState depgraph.ServiceState) {
	in.mu.Lock()
	old := in.state
	in.state = newState
	in.mu.Unlock()
	in.notify(old, newState)
}

func (in *Instance) notify(from, to depgraph.ServiceState) {
	if from == to {
		return
	}
	in.mu.Lock()
	listeners := make([]StateListener, 0, len(in.listeners))
	for _, l := range in.listeners {
		listeners = append(listeners, l)
	}
	in.mu.Unlock()
	for _, l := range listeners {
		l(in.name, from, to)
	}
}

func (in *Instance) fail(gen uint64, cause error) {
	in.mu.Lock()
	in.lastError = cause
	in.mu.Unlock()

	if !in.commit(gen, depgraph.StateErrored) {
		return
	}

	if in.recordFailureExceedsWindow() {
		in.commit(gen, depgraph.StateBroken)
		return
	}

	in.mu.Lock()
	delay := in.backoff.NextBackOff()
	ctx := in.parentCtx
	in.mu.Unlock()
	if delay == backoff.Stop {
		in.commit(gen, depgraph.StateBroken)
		return
	}

	time.AfterFunc(delay, func() {
		in.Start(ctx)
	})
}

// recordFailureExceedsWindow appends now to the sliding failure window,
// drops entries older than window.Window, and reports whether the count at
// or above window.MaxFailures has been reached.
func (in *Instance) recordFailureExceedsWindow() bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	now := in.now()
	in.failures = append(in.failures, now)
	cutoff := now.Add(-in.window.Window)
	kept := in.failures[:0]
	for _, t := range in.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	in.failures = kept

	return in.window.MaxFailures > 0 && len(in.failures) >= in.window.MaxFailures
}
