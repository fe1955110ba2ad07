package tlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestAppendFlushReplay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.tlog")
	log, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, log.Append(Entry{Timestamp: 1, Op: OpSet, Path: []string{"a", "b"}, Value: json.RawMessage(`"x"`)}))
	require.NoError(t, log.Append(Entry{Timestamp: 2, Op: OpSet, Path: []string{"a", "b"}, Value: json.RawMessage(`"y"`)}))
	require.NoError(t, log.Flush())
	require.NoError(t, log.Close())

	entries, err := Replay(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, []string{"a", "b"}, entries[1].Path)
	require.JSONEq(t, `"y"`, string(entries[1].Value))
}

// TestReplayTruncatedTail is scenario 4 from the end-to-end properties: a
// file truncated mid-third-line still replays the first two entries
// without error.
func TestReplayTruncatedTail(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.tlog")
	content := "1\ts\ta\\/b\t\"x\"\n2\ts\ta\\/b\t\"y\"\n3\ts\ta\\/b\t\"unfinished"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	entries, err := Replay(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.JSONEq(t, `"y"`, string(entries[len(entries)-1].Value))
}

func TestReplayMissingFile(t *testing.T) {
	t.Parallel()

	entries, err := Replay(filepath.Join(t.TempDir(), "missing.tlog"))
	require.NoError(t, err)
	require.Nil(t, entries)
}

func TestDumpAndReplayRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.tlog")
	want := []Entry{
		{Timestamp: 1, Op: OpSet, Path: []string{"x"}, Value: json.RawMessage(`1`)},
		{Timestamp: 2, Op: OpRemove, Path: []string{"y"}},
	}
	require.NoError(t, Dump(path, want))

	got, err := Replay(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSwapReplacesContentsAndKeepsAppending(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.tlog")
	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Append(Entry{Timestamp: 1, Op: OpSet, Path: []string{"a"}, Value: json.RawMessage(`1`)}))
	require.NoError(t, log.Flush())

	snapshot := []Entry{{Timestamp: 5, Op: OpSet, Path: []string{"a"}, Value: json.RawMessage(`5`)}}
	require.NoError(t, log.Swap(snapshot))

	require.NoError(t, log.Append(Entry{Timestamp: 6, Op: OpSet, Path: []string{"b"}, Value: json.RawMessage(`6`)}))
	require.NoError(t, log.Flush())

	entries, err := Replay(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(5), entries[0].Timestamp)
	require.Equal(t, int64(6), entries[1].Timestamp)
}
