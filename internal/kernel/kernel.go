package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/depgraph"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/lifecycle"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/platform"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/publishqueue"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/shellrunner"
)

// Config bundles what New needs to build a Kernel. Registry and Runner
// default when left nil; Rank defaults to platform.HostRank(). A nil Queue
// leaves the kernel without a publish queue.
type Config struct {
	Queue    *publishqueue.Queue
	Registry *Registry
	Runner   shellrunner.Runner
	Rank     platform.Rank
	PoolSize int
	Tree     TreeConfig
}

// Kernel is the dependency and lifecycle supervisor: it instantiates
// components by recipe, keeps their states mirrored into a DependencyGraph,
// starts each one only once its dependencies are satisfied, and drives
// orderly shutdown in reverse dependency order.
type Kernel struct {
	registry *Registry
	runner   shellrunner.Runner
	rank     platform.Rank
	queue    *publishqueue.Queue
	tree     *SupervisorTree

	mu         sync.Mutex
	graph      *depgraph.Graph
	instances  map[string]*lifecycle.Instance
	recipes    map[string]Recipe
	pending    map[string]bool
	listeners  map[uint64]lifecycle.StateListener
	nextListID uint64

	pool     *WorkerPool
	poolSize int
	startCtx context.Context
}

// New constructs a Kernel. The returned Kernel is not yet running; call
// Run to start its worker pool and supervisor tree, then Launch each
// component's recipe.
func New(cfg Config) *Kernel {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Runner == nil {
		cfg.Runner = shellrunner.New()
	}
	if cfg.Rank == nil {
		cfg.Rank = platform.HostRank()
	}

	return &Kernel{
		registry:  cfg.Registry,
		runner:    cfg.Runner,
		rank:      cfg.Rank,
		queue:     cfg.Queue,
		graph:     depgraph.New(),
		instances: make(map[string]*lifecycle.Instance),
		recipes:   make(map[string]Recipe),
		pending:   make(map[string]bool),
		listeners: make(map[uint64]lifecycle.StateListener),
		poolSize:  cfg.PoolSize,
		tree:      NewSupervisorTree(logging.NewSlogLogger(), cfg.Tree),
	}
}

// Registry exposes the kernel's code-backed constructor table so callers
// can register components before Launch-ing their recipes.
func (k *Kernel) Registry() *Registry { return k.registry }

// Subscribe registers a global listener that observes every component's
// state transitions, in the order the underlying lifecycle.Instance
// commits them. Returns a function that removes the listener.
func (k *Kernel) Subscribe(listener lifecycle.StateListener) (unsubscribe func()) {
	k.mu.Lock()
	k.nextListID++
	id := k.nextListID
	k.listeners[id] = listener
	k.mu.Unlock()

	return func() {
		k.mu.Lock()
		delete(k.listeners, id)
		k.mu.Unlock()
	}
}

// Launch registers recipe's component: it records its dependency edges,
// builds its PhaseSet (code-backed if registered, external-script
// otherwise), and creates its lifecycle.Instance. The instance is not
// started immediately unless its dependencies are already satisfied (or
// it has none) — otherwise it starts automatically the moment they become
// satisfied. Run must have been called first so the worker pool exists.
func (k *Kernel) Launch(recipe Recipe) error {
	if recipe.Name == "" {
		return fmt.Errorf("kernel: recipe has no name")
	}

	k.mu.Lock()
	if _, exists := k.instances[recipe.Name]; exists {
		k.mu.Unlock()
		return fmt.Errorf("kernel: %s already launched", recipe.Name)
	}
	if k.pool == nil {
		k.mu.Unlock()
		return fmt.Errorf("kernel: Run must be called before Launch")
	}
	k.mu.Unlock()

	phases, err := k.buildPhases(recipe)
	if err != nil {
		return err
	}

	instance := lifecycle.New(recipe.Name, phases, k.pool.Submit, lifecycle.DefaultBackoffConfig(), lifecycle.DefaultFailureWindowConfig())
	instance.Subscribe(func(name string, from, to depgraph.ServiceState) {
		k.onTransition(name, from, to)
	})

	k.mu.Lock()
	for dep, state := range recipe.Dependencies {
		k.graph.AddEdge(recipe.Name, dep, state)
	}
	k.recipes[recipe.Name] = recipe
	k.instances[recipe.Name] = instance
	k.pending[recipe.Name] = true
	k.mu.Unlock()

	k.tryStartReady()
	return nil
}

func (k *Kernel) buildPhases(recipe Recipe) (lifecycle.PhaseSet, error) {
	if ctor, ok := k.registry.Lookup(recipe.Name); ok {
		phases, err := ctor(recipe)
		if err != nil {
			return lifecycle.PhaseSet{}, fmt.Errorf("kernel: construct %s: %w", recipe.Name, err)
		}
		phases.Timeouts = recipePhaseTimeouts(recipe)
		return phases, nil
	}
	phases := buildExternalPhases(recipe, k.runner, k.rank)
	phases.Timeouts = recipePhaseTimeouts(recipe)
	return phases, nil
}

// recipePhaseTimeouts projects recipe.Timeouts into a lifecycle.PhaseTimeouts,
// applied uniformly whether the PhaseSet came from a registered constructor
// or from an external-script build. A code-backed constructor's own
// Timeouts (if it set any) is always overwritten here, since the recipe is
// the single source of truth for how long a phase is allowed to run.
func recipePhaseTimeouts(recipe Recipe) lifecycle.PhaseTimeouts {
	return lifecycle.PhaseTimeouts{
		Install:  recipe.Timeouts["install"],
		Startup:  recipe.Timeouts["startup"],
		Run:      recipe.Timeouts["run"],
		Shutdown: recipe.Timeouts["shutdown"],
	}
}

// onTransition mirrors a component's new state into the dependency graph,
// fans it out to every subscribed global listener, and checks whether any
// pending component just became startable.
func (k *Kernel) onTransition(name string, from, to depgraph.ServiceState) {
	k.mu.Lock()
	k.graph.SetState(name, to)
	listeners := make([]lifecycle.StateListener, 0, len(k.listeners))
	for _, l := range k.listeners {
		listeners = append(listeners, l)
	}
	k.mu.Unlock()

	for _, l := range listeners {
		l(name, from, to)
	}
	k.tryStartReady()
}

// tryStartReady starts every still-pending instance whose dependencies are
// now satisfied. A component's entire Start sequence — not just its RUNNING
// transition — waits on this gate, which is a stricter reading of the
// dependency-precondition invariant than the original per-transition wait,
// but it never violates it: by the time a dependent is even submitted for
// installation, every dependency it names has already reached the state
// it requires.
func (k *Kernel) tryStartReady() {
	k.mu.Lock()
	var ready []*lifecycle.Instance
	for name, isPending := range k.pending {
		if !isPending {
			continue
		}
		if !k.graph.IsSatisfied(name) {
			continue
		}
		k.pending[name] = false
		ready = append(ready, k.instances[name])
	}
	ctx := k.startCtx
	k.mu.Unlock()

	if ctx == nil {
		return
	}
	for _, instance := range ready {
		instance.Start(ctx)
	}
}

// Run synchronously builds the worker pool, wires the supervisor tree's
// background services (the PublishQueue drain loop, if a Queue was
// configured), kicks off any component Launch-ed so far whose
// dependencies are already satisfied, and starts the tree in the
// background. It returns immediately — Launch may be called as soon as
// Run returns — with a channel that receives the tree's terminal error
// once ctx is cancelled.
func (k *Kernel) Run(ctx context.Context) <-chan error {
	k.mu.Lock()
	k.pool = NewWorkerPool(ctx, k.poolSize)
	k.startCtx = ctx
	k.mu.Unlock()

	if k.queue != nil {
		k.tree.AddDataPlaneService(newServeFunc("publishqueue", k.queue.Run))
	}

	k.tryStartReady()
	return k.tree.ServeBackground(ctx)
}

// Shutdown drains the PublishQueue, then stops every launched component in
// reverse dependency order, waiting up to timeout per component for it to
// reach FINISHED. It returns the first timeout error encountered, if any,
// but always attempts every component regardless of earlier failures.
func (k *Kernel) Shutdown(ctx context.Context, timeout time.Duration) error {
	if k.queue != nil {
		if err := k.queue.Close(); err != nil {
			logging.Warn().Err(err).Msg("kernel: publish queue close failed during shutdown")
		}
	}

	k.mu.Lock()
	order, err := k.graph.ShutdownOrder()
	instances := make(map[string]*lifecycle.Instance, len(k.instances))
	for name, instance := range k.instances {
		instances[name] = instance
	}
	k.mu.Unlock()
	if err != nil {
		return fmt.Errorf("kernel: compute shutdown order: %w", err)
	}

	var firstErr error
	for _, name := range order {
		instance, ok := instances[name]
		if !ok {
			continue
		}
		if stopErr := instance.Stop(ctx, timeout); stopErr != nil && firstErr == nil {
			firstErr = fmt.Errorf("kernel: stop %s: %w", name, stopErr)
		}
	}
	return firstErr
}

// Instance returns the lifecycle.Instance for a launched component, or
// (nil, false) if no component by that name has been launched.
func (k *Kernel) Instance(name string) (*lifecycle.Instance, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	instance, ok := k.instances[name]
	return instance, ok
}

// State returns a launched component's current depgraph state.
func (k *Kernel) State(name string) (depgraph.ServiceState, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.graph.State(name)
}

// Recipe returns the recipe a launched component was built from.
func (k *Kernel) Recipe(name string) (Recipe, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	recipe, ok := k.recipes[name]
	return recipe, ok
}

// Redeploy transitions a component through its state machine for an
// updated recipe: if the component is already launched, it is stopped and
// forgotten first, then (re-)Launch-ed with recipe. Used by the
// deployment activator when a deployment's config delta touches a
// service that is already running.
func (k *Kernel) Redeploy(ctx context.Context, recipe Recipe, timeout time.Duration) error {
	k.mu.Lock()
	existing, exists := k.instances[recipe.Name]
	k.mu.Unlock()

	if exists {
		if err := existing.Stop(ctx, timeout); err != nil {
			logging.Warn().Str("component", recipe.Name).Err(err).Msg("kernel: redeploy stop did not reach FINISHED in time")
		}
		k.mu.Lock()
		delete(k.instances, recipe.Name)
		delete(k.recipes, recipe.Name)
		delete(k.pending, recipe.Name)
		k.mu.Unlock()
	}

	return k.Launch(recipe)
}
