package kernel

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/lifecycle"
)

// Constructor builds the phases for a code-backed component from its
// recipe. Registered at build time under the component's name; replaces
// the classpath scanning the original dispatch mechanism used to find
// annotated service implementations.
type Constructor func(recipe Recipe) (lifecycle.PhaseSet, error)

// Registry is the explicit (name, constructor) table the kernel consults
// before falling back to the generic external-script path. The zero value
// is ready to use.
type Registry struct {
	mu   sync.RWMutex
	ctor map[string]Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctor: make(map[string]Constructor)}
}

// Register binds name to constructor. Registering the same name twice is
// a programmer error (both registrations would silently race for which
// wins); it panics rather than failing only for unlucky call orders.
func (r *Registry) Register(name string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ctor[name]; exists {
		panic(fmt.Sprintf("kernel: component %q registered more than once", name))
	}
	r.ctor[name] = constructor
}

// Lookup returns name's registered constructor, or (nil, false) if name is
// not code-backed and should fall through to the external-script path.
func (r *Registry) Lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.ctor[name]
	return c, ok
}

// Names returns every registered component name, sorted, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.ctor))
	for name := range r.ctor {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
