package kernel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
)

// DefaultPoolSize is 2x the number of available CPUs, the kernel's default
// worker pool width: phase execution is a mix of short CPU-bound work and
// blocking I/O (process spawns, file waits), so oversubscribing a little
// keeps the pool busy during the latter without needing per-phase tuning.
func DefaultPoolSize() int {
	return 2 * runtime.GOMAXPROCS(0)
}

// WorkerPool bounds concurrent phase execution to a fixed width and
// recovers a panicking task rather than losing the whole pool to it. It
// satisfies lifecycle.Submitter via Submit.
type WorkerPool struct {
	sem chan struct{}
	grp *errgroup.Group
	ctx context.Context
}

// NewWorkerPool returns a pool bounded to size concurrent tasks, tied to
// ctx: once ctx is done, queued-but-not-yet-dispatched tasks still run
// (Submit never drops work), but Wait returns as soon as in-flight tasks
// finish.
func NewWorkerPool(ctx context.Context, size int) *WorkerPool {
	if size <= 0 {
		size = DefaultPoolSize()
	}
	grp, grpCtx := errgroup.WithContext(ctx)
	return &WorkerPool{
		sem: make(chan struct{}, size),
		grp: grp,
		ctx: grpCtx,
	}
}

// Submit hands task to the pool, blocking the caller only long enough to
// acquire a slot, not for task's full run. Matches lifecycle.Submitter.
func (p *WorkerPool) Submit(task func()) {
	p.sem <- struct{}{}
	p.grp.Go(func() error {
		defer func() { <-p.sem }()
		defer func() {
			if r := recover(); r != nil {
				logging.Error().Interface("panic", r).Msg("kernel: worker pool task panicked")
			}
		}()
		task()
		return nil
	})
}

// Wait blocks until every task submitted so far has returned. Tasks
// submitted concurrently with Wait may or may not be waited on.
func (p *WorkerPool) Wait() error {
	return p.grp.Wait()
}
