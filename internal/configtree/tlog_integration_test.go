package configtree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/tlog"
)

// TestTlogRoundTrip exercises the §8 "tlog round-trip" invariant: dumping a
// tree's snapshot and replaying it into a fresh tree reproduces the same
// POJO state. configtree.Tree satisfies tlog.MergeTarget and
// tlog.Snapshotter structurally, with no import of tlog.MergeTarget's
// package required here beyond tlog itself.
func TestTlogRoundTrip(t *testing.T) {
	t.Parallel()

	source := New()
	require.NoError(t, source.MergeMap(nil, 1, map[string]any{
		"services": map[string]any{
			"foo": map[string]any{
				"Configuration": map[string]any{"threshold": float64(10)},
			},
			"bar": map[string]any{"state": "RUNNING"},
		},
	}, nil))

	path := filepath.Join(t.TempDir(), "config.tlog")
	require.NoError(t, tlog.Dump(path, source.Snapshot()))

	target := New()
	result, err := tlog.Recover(path, target)
	require.NoError(t, err)
	require.Equal(t, result.Replayed, result.Applied)

	wantPOJO, err := source.ToPOJO(nil)
	require.NoError(t, err)
	gotPOJO, err := target.ToPOJO(nil)
	require.NoError(t, err)
	require.Equal(t, wantPOJO, gotPOJO)
}

// TestTlogMergeIntoForceRollback exercises the rollback path:
// forceTimestamp=true applies a snapshot over a tree regardless of the
// target's current (newer) modtimes, and a predicate can exclude private
// runtime paths from the restore.
func TestTlogMergeIntoForceRollback(t *testing.T) {
	t.Parallel()

	tree := New()
	require.NoError(t, tree.MergeSet([]string{"a"}, 100, []byte(`"newer"`), false))
	require.NoError(t, tree.MergeSet([]string{"private", "pid"}, 1, []byte(`1234`), false))

	snapshot := []tlog.Entry{
		{Timestamp: 1, Op: tlog.OpSet, Path: []string{"a"}, Value: []byte(`"older"`)},
		{Timestamp: 1, Op: tlog.OpSet, Path: []string{"private", "pid"}, Value: []byte(`9999`)},
	}

	predicate := func(path []string) bool {
		return len(path) == 0 || path[0] != "private"
	}
	require.NoError(t, tlog.MergeInto(tree, snapshot, true, predicate))

	v, ok := tree.Lookup([]string{"a"})
	require.True(t, ok)
	require.JSONEq(t, `"older"`, string(v), "force must apply the rollback snapshot over a newer value")

	v, ok = tree.Lookup([]string{"private", "pid"})
	require.True(t, ok)
	require.JSONEq(t, "1234", string(v), "predicate must exclude private paths from the restore")
}
