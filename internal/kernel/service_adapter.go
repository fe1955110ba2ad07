package kernel

import "context"

// serveFunc adapts a plain context-taking function to suture.Service,
// giving it a fixed name for supervisor-tree diagnostics. Used to hang
// the PublishQueue's drain loop off the tree without that package
// importing suture itself.
type serveFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func newServeFunc(name string, fn func(ctx context.Context) error) serveFunc {
	return serveFunc{name: name, fn: fn}
}

func (s serveFunc) Serve(ctx context.Context) error { return s.fn(ctx) }

func (s serveFunc) String() string { return s.name }
