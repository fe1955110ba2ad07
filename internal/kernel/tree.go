package kernel

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64
	// FailureDecay is the rate at which failures decay, in seconds.
	FailureDecay float64
	// FailureBackoff is how long to wait once FailureThreshold is exceeded.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds how long a branch waits for its services to
	// stop before giving up.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// SupervisorTree is the kernel's own supervision of its long-running
// goroutines (not to be confused with a supervised component's Lifecycle
// state machine). It is organized into three branches:
//
//   - dataPlane: the PublishQueue drain loop, added by Kernel.Run when a
//     Queue is configured
//   - components: empty unless a caller adds services; component
//     Lifecycle phases run on the WorkerPool
//   - activator: empty unless a caller adds services
//
// A crash in one branch restarts within that branch without disturbing
// the others.
type SupervisorTree struct {
	root       *suture.Supervisor
	dataPlane  *suture.Supervisor
	components *suture.Supervisor
	activator  *suture.Supervisor
	config     TreeConfig
}

// NewSupervisorTree builds the tree, bridging suture's event hook to the
// ambient logger via sutureslog's slog adapter.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) *SupervisorTree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	branchSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("kernel", rootSpec)
	dataPlane := suture.New("data-plane", branchSpec)
	components := suture.New("components", branchSpec)
	activator := suture.New("activator", branchSpec)

	root.Add(dataPlane)
	root.Add(components)
	root.Add(activator)

	return &SupervisorTree{
		root:       root,
		dataPlane:  dataPlane,
		components: components,
		activator:  activator,
		config:     config,
	}
}

// AddDataPlaneService adds svc to the PublishQueue/TLog branch.
func (t *SupervisorTree) AddDataPlaneService(svc suture.Service) suture.ServiceToken {
	return t.dataPlane.Add(svc)
}

// AddComponentService adds svc to the component-worker branch.
func (t *SupervisorTree) AddComponentService(svc suture.Service) suture.ServiceToken {
	return t.components.Add(svc)
}

// AddActivatorService adds svc to the DeploymentActivator branch.
func (t *SupervisorTree) AddActivatorService(svc suture.Service) suture.ServiceToken {
	return t.activator.Add(svc)
}

// RemoveComponentService removes a previously added component-branch
// service, e.g. when a component is fully undeployed.
func (t *SupervisorTree) RemoveComponentService(token suture.ServiceToken) error {
	return t.components.Remove(token)
}

// Serve starts the tree and blocks until ctx is cancelled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine, returning a
// channel that receives the terminal error (or nil) once it stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport reports services that failed to stop within the
// configured shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
