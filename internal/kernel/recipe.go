package kernel

import (
	"time"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/depgraph"
)

// PlatformCommands maps a platform tag (as resolved by internal/platform)
// to the literal shell command string to run for one phase.
type PlatformCommands map[string]string

// Recipe is a component's build-time description: what it depends on, and
// how to run each of its lifecycle phases on a given platform.
type Recipe struct {
	Name    string
	Version string

	// Dependencies lists other component names this one requires, and the
	// minimum depgraph.ServiceState each must reach first.
	Dependencies map[string]depgraph.ServiceState

	// Phases holds the per-platform command string for each named phase
	// ("install", "startup", "run", "shutdown", "bootstrap"). A phase
	// absent from the map is a no-op. Only consulted for external-script
	// services; a code-backed service's registered constructor supplies
	// its own phases directly.
	Phases map[string]PlatformCommands

	// Timeouts holds the per-phase timeout, keyed the same as Phases
	// ("install", "startup", "run", "shutdown", "bootstrap"). A phase
	// absent from the map, or mapped to zero, runs with no bound beyond
	// the context its caller supplies. Applied uniformly to code-backed
	// and external-script phases alike.
	Timeouts map[string]time.Duration

	// DefaultUser records the user the recipe names. The kernel does not
	// apply it: external-script phases run as the kernel process's own user.
	DefaultUser string
}
