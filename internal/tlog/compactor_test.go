package tlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter struct {
	entries []Entry
}

func (f *fakeSnapshotter) Snapshot() []Entry {
	return f.entries
}

func TestCompactorRunNowRewritesLog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.tlog")
	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Append(Entry{Timestamp: 1, Op: OpSet, Path: []string{"a"}, Value: json.RawMessage(`1`)}))
	require.NoError(t, log.Append(Entry{Timestamp: 2, Op: OpSet, Path: []string{"a"}, Value: json.RawMessage(`2`)}))
	require.NoError(t, log.Flush())

	snapshotter := &fakeSnapshotter{entries: []Entry{
		{Timestamp: 2, Op: OpSet, Path: []string{"a"}, Value: json.RawMessage(`2`)},
	}}

	cfg := DefaultConfig()
	compactor := NewCompactor(log, snapshotter, cfg)

	require.NoError(t, compactor.RunNow(context.Background()))

	entries, err := Replay(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(2), entries[0].Timestamp)

	require.NoError(t, log.Append(Entry{Timestamp: 3, Op: OpSet, Path: []string{"b"}, Value: json.RawMessage(`3`)}))
	require.NoError(t, log.Flush())

	entries, err = Replay(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestCompactorStartStopIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.tlog")
	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	cfg := DefaultConfig()
	cfg.CompactInterval = time.Hour
	compactor := NewCompactor(log, &fakeSnapshotter{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	compactor.Start(ctx)
	compactor.Start(ctx)
	compactor.Stop()
	compactor.Stop()
}

func TestCompactorRunNowPropagatesSwapError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.tlog")
	log, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, log.Close())

	cfg := DefaultConfig()
	cfg.RetryInitialBackoff = time.Millisecond
	cfg.RetryMaxBackoff = 2 * time.Millisecond
	compactor := NewCompactor(log, &fakeSnapshotter{}, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = compactor.RunNow(ctx)
	require.Error(t, err)
}
