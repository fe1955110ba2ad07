package kernel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/depgraph"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/lifecycle"
)

type transitionLog struct {
	mu   sync.Mutex
	seen []string
}

func (l *transitionLog) record(name string, to depgraph.ServiceState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, name+":"+to.String())
}

func (l *transitionLog) indexOf(entry string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.seen {
		if s == entry {
			return i
		}
	}
	return -1
}

func blockingPhases(runRelease <-chan struct{}) lifecycle.PhaseSet {
	return lifecycle.PhaseSet{
		Run: func(ctx context.Context) error {
			select {
			case <-runRelease:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// TestDependencyGatedStartFollowsTopologicalOrder is scenario 1: B depends
// on A reaching RUNNING, so B's own INSTALLED transition must not be
// observed until after A's RUNNING transition.
func TestDependencyGatedStartFollowsTopologicalOrder(t *testing.T) {
	t.Parallel()

	k := New(Config{})
	log := &transitionLog{}
	k.Subscribe(log.record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	k.Run(ctx)

	aRelease := make(chan struct{})
	k.Registry().Register("a", func(Recipe) (lifecycle.PhaseSet, error) {
		return blockingPhases(aRelease), nil
	})
	k.Registry().Register("b", func(Recipe) (lifecycle.PhaseSet, error) {
		return lifecycle.PhaseSet{}, nil
	})

	require.NoError(t, k.Launch(Recipe{Name: "a"}))
	require.NoError(t, k.Launch(Recipe{Name: "b", Dependencies: map[string]depgraph.ServiceState{
		"a": depgraph.StateRunning,
	}}))

	require.Eventually(t, func() bool {
		state, ok := k.State("a")
		return ok && state == depgraph.StateRunning
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		state, ok := k.State("b")
		return ok && state == depgraph.StateFinished
	}, time.Second, time.Millisecond)

	aRunning := log.indexOf("a:RUNNING")
	bInstalled := log.indexOf("b:INSTALLED")
	require.GreaterOrEqual(t, aRunning, 0)
	require.GreaterOrEqual(t, bInstalled, 0)
	require.Less(t, aRunning, bInstalled, "b must not start before a reaches RUNNING")

	close(aRelease)
}

// TestShutdownStopsDependentsBeforeDependencies is the shutdown-order half
// of scenario 1: B must reach its Stop transition before A does.
func TestShutdownStopsDependentsBeforeDependencies(t *testing.T) {
	t.Parallel()

	k := New(Config{})
	log := &transitionLog{}
	k.Subscribe(log.record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	k.Run(ctx)

	aRelease := make(chan struct{})
	bRelease := make(chan struct{})
	k.Registry().Register("a", func(Recipe) (lifecycle.PhaseSet, error) {
		return blockingPhases(aRelease), nil
	})
	k.Registry().Register("b", func(Recipe) (lifecycle.PhaseSet, error) {
		return blockingPhases(bRelease), nil
	})

	require.NoError(t, k.Launch(Recipe{Name: "a"}))
	require.NoError(t, k.Launch(Recipe{Name: "b", Dependencies: map[string]depgraph.ServiceState{
		"a": depgraph.StateRunning,
	}}))

	require.Eventually(t, func() bool {
		sa, oka := k.State("a")
		sb, okb := k.State("b")
		return oka && okb && sa == depgraph.StateRunning && sb == depgraph.StateRunning
	}, time.Second, time.Millisecond)

	require.NoError(t, k.Shutdown(context.Background(), time.Second))

	bStopping := log.indexOf("b:STOPPING")
	aStopping := log.indexOf("a:STOPPING")
	require.GreaterOrEqual(t, bStopping, 0)
	require.GreaterOrEqual(t, aStopping, 0)
	require.Less(t, bStopping, aStopping)
}

func TestLaunchRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	k := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	k.Run(ctx)

	k.Registry().Register("svc", func(Recipe) (lifecycle.PhaseSet, error) {
		return lifecycle.PhaseSet{}, nil
	})
	require.NoError(t, k.Launch(Recipe{Name: "svc"}))
	require.Error(t, k.Launch(Recipe{Name: "svc"}))
}

func TestLaunchBeforeRunIsRejected(t *testing.T) {
	t.Parallel()

	k := New(Config{})
	require.Error(t, k.Launch(Recipe{Name: "svc"}))
}

// TestExternalScriptComponentRunsThroughShellRunner exercises the
// fallback path: a recipe with no registered constructor runs its
// commands through the real Runner.
func TestExternalScriptComponentRunsThroughShellRunner(t *testing.T) {
	t.Parallel()

	k := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	k.Run(ctx)

	require.NoError(t, k.Launch(Recipe{
		Name: "echoer",
		Phases: map[string]PlatformCommands{
			"install": {"all": "true"},
			"run":     {"all": "sleep 5"},
		},
	}))

	require.Eventually(t, func() bool {
		state, ok := k.State("echoer")
		return ok && state == depgraph.StateRunning
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, k.Shutdown(context.Background(), 2*time.Second))
	state, _ := k.State("echoer")
	require.Equal(t, depgraph.StateFinished, state)
}

// TestExternalScriptPhaseTimeoutErrors is the timeout half of the external
// path: a run phase that outlives its recipe-configured timeout must land
// in ERRORED naming the phase, not hang RUNNING forever.
func TestExternalScriptPhaseTimeoutErrors(t *testing.T) {
	t.Parallel()

	k := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	k.Run(ctx)

	require.NoError(t, k.Launch(Recipe{
		Name: "sleeper",
		Phases: map[string]PlatformCommands{
			"run": {"all": "sleep 5"},
		},
		Timeouts: map[string]time.Duration{
			"run": 50 * time.Millisecond,
		},
	}))

	require.Eventually(t, func() bool {
		state, ok := k.State("sleeper")
		return ok && state == depgraph.StateErrored
	}, 2*time.Second, 5*time.Millisecond)

	instance, ok := k.Instance("sleeper")
	require.True(t, ok)
	require.EqualError(t, instance.LastError(), "timeout in run")
}
