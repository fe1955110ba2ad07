package diregistry

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"

	"go.uber.org/dig"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
)

// key identifies one construction slot: a Go type plus an optional name,
// so two differently-named instances of the same type (e.g. two
// *shellrunner.Runner configured differently) can coexist.
type key struct {
	typ  reflect.Type
	name string
}

// Context is the process-wide construction registry. The zero value is
// not usable; construct with New.
type Context struct {
	mu        sync.Mutex
	container *dig.Container
	instances map[key]any
	closers   map[key]func() error
	order     []key // construction order, for reverse-order teardown
}

// New creates an empty Context.
func New() *Context {
	return &Context{
		container: dig.New(),
		instances: make(map[key]any),
		closers:   make(map[key]func() error),
	}
}

// Provide registers constructor with the underlying dig container so that
// other constructors invoked through this Context can declare it as a
// plain function parameter and have it resolved automatically. constructor
// must be a function returning either one value, or one value and an
// error, per dig's rules.
func (c *Context) Provide(constructor any) error {
	return c.container.Provide(constructor)
}

// Invoke runs fn, resolving its parameters from values previously
// registered with Provide.
func (c *Context) Invoke(fn any) error {
	return c.container.Invoke(fn)
}

// GetOrConstruct returns the named instance of type T, constructing it via
// construct on first request and memoizing the result for every later call
// with the same name. Construction order is recorded so Close can tear
// instances down in the reverse order they were created. If the
// constructed value implements io.Closer, it is closed automatically by
// Close; name may be empty for a type with only one instance.
func GetOrConstruct[T any](c *Context, name string, construct func() (T, error)) (T, error) {
	k := key{typ: reflect.TypeOf((*T)(nil)).Elem(), name: name}

	c.mu.Lock()
	if existing, ok := c.instances[k]; ok {
		c.mu.Unlock()
		return existing.(T), nil
	}
	c.mu.Unlock()

	v, err := construct()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("diregistry: construct %s %q: %w", k.typ, name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have raced us to construction; keep whichever
	// instance was recorded first so GetOrConstruct remains a true
	// memoizing getter under concurrent callers.
	if existing, ok := c.instances[k]; ok {
		return existing.(T), nil
	}
	c.instances[k] = v
	c.order = append(c.order, k)
	if closer, ok := any(v).(io.Closer); ok {
		c.closers[k] = closer.Close
	}
	return v, nil
}

// Close tears down every instance that implements io.Closer, in the
// reverse order they were constructed. It collects and returns every
// close error rather than stopping at the first one, so one failing
// teardown never prevents the rest from running.
func (c *Context) Close() error {
	c.mu.Lock()
	order := append([]key(nil), c.order...)
	c.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		k := order[i]
		c.mu.Lock()
		closer, ok := c.closers[k]
		c.mu.Unlock()
		if !ok {
			continue
		}
		if err := closer(); err != nil {
			logging.Warn().Str("type", k.typ.String()).Str("name", k.name).Err(err).Msg("diregistry: teardown failed")
			errs = append(errs, fmt.Errorf("%s %q: %w", k.typ, k.name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
