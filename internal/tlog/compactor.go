package tlog

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
)

// Snapshotter produces the full set of entries a compaction should replace
// the live log with — ordinarily the ConfigTree's own Snapshot() of its current
// state ordered by modtime.
type Snapshotter interface {
	Snapshot() []Entry
}

// Compactor periodically rewrites the live log to a single snapshot once it
// grows past the configured threshold, keeping tlog replay time bounded.
type Compactor struct {
	tlog        *TLog
	snapshotter Snapshotter
	config      Config

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	running  bool
	stopping bool
	stopDone chan struct{}
}

// NewCompactor creates a compactor for tlog, sourcing replacement snapshots
// from snapshotter.
func NewCompactor(t *TLog, snapshotter Snapshotter, cfg Config) *Compactor {
	return &Compactor{tlog: t, snapshotter: snapshotter, config: cfg}
}

// Start begins the background compaction loop. It returns immediately; the
// loop runs until Stop is called or ctx is canceled.
func (c *Compactor) Start(ctx context.Context) {
	c.mu.Lock()
	for c.stopping {
		stopDone := c.stopDone
		c.mu.Unlock()
		<-stopDone
		c.mu.Lock()
	}
	if c.running {
		c.mu.Unlock()
		return
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.stopDone = make(chan struct{})
	loopCtx := c.ctx
	done := c.stopDone
	c.mu.Unlock()

	go c.run(loopCtx, done)
}

// Stop gracefully stops the compaction loop and waits for it to exit.
func (c *Compactor) Stop() {
	c.mu.Lock()
	if !c.running || c.stopping {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	c.stopping = true
	stopDone := c.stopDone
	c.mu.Unlock()

	<-stopDone

	c.mu.Lock()
	c.stopping = false
	c.mu.Unlock()
}

func (c *Compactor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.config.CompactInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Compactor) tick(ctx context.Context) {
	size, err := c.tlog.Size()
	if err != nil {
		logging.Warn().Err(err).Str("tlog", c.tlog.Path()).Msg("compactor: stat failed")
		return
	}
	if size < c.config.CompactThresholdBytes {
		return
	}
	if err := c.compact(ctx); err != nil {
		logging.Error().Err(err).Str("tlog", c.tlog.Path()).Msg("compaction failed, will retry next tick")
		return
	}
	logging.Info().Str("tlog", c.tlog.Path()).Int64("pre_compact_bytes", size).Msg("tlog compacted")
}

// RunNow forces an immediate compaction regardless of the size threshold,
// bypassing the ticker. Used by tests and by operators triggering a manual
// compaction.
func (c *Compactor) RunNow(ctx context.Context) error {
	return c.compact(ctx)
}

func (c *Compactor) compact(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.RetryInitialBackoff
	b.MaxInterval = c.config.RetryMaxBackoff

	return backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		entries := c.snapshotter.Snapshot()
		return c.tlog.Swap(entries)
	}, backoff.WithContext(b, ctx))
}
