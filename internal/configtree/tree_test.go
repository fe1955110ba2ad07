package configtree

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

var errNegative = errors.New("negative threshold rejected")

func TestSetAndLookup(t *testing.T) {
	t.Parallel()

	tree := New()
	require.NoError(t, tree.MergeSet([]string{"services", "foo", "Configuration", "threshold"}, 1, json.RawMessage(`10`), false))

	v, ok := tree.Lookup([]string{"services", "foo", "Configuration", "threshold"})
	require.True(t, ok)
	require.JSONEq(t, "10", string(v))

	_, ok = tree.Lookup([]string{"services", "foo"})
	require.False(t, ok, "a container path should not resolve via Lookup")
}

// TestStaleWriteRejected is scenario 3's second half: a write with an
// older timestamp than the current value leaves the leaf untouched.
func TestStaleWriteRejected(t *testing.T) {
	t.Parallel()

	tree := New()
	path := []string{"services", "foo", "Configuration", "threshold"}
	require.NoError(t, tree.MergeSet(path, 100, json.RawMessage(`10`), false))
	require.NoError(t, tree.MergeSet(path, 50, json.RawMessage(`20`), false))

	v, ok := tree.Lookup(path)
	require.True(t, ok)
	require.JSONEq(t, "10", string(v))
}

func TestForceOverridesStaleWrite(t *testing.T) {
	t.Parallel()

	tree := New()
	path := []string{"a"}
	require.NoError(t, tree.MergeSet(path, 100, json.RawMessage(`1`), false))
	require.NoError(t, tree.MergeSet(path, 50, json.RawMessage(`2`), true))

	v, ok := tree.Lookup(path)
	require.True(t, ok)
	require.JSONEq(t, "2", string(v))
}

func TestRemoveRejectsStaleTimestamp(t *testing.T) {
	t.Parallel()

	tree := New()
	path := []string{"a"}
	require.NoError(t, tree.MergeSet(path, 100, json.RawMessage(`1`), false))
	require.NoError(t, tree.MergeRemove(path, 50, false))

	_, ok := tree.Lookup(path)
	require.True(t, ok, "stale remove must not take effect")

	require.NoError(t, tree.MergeRemove(path, 200, false))
	_, ok = tree.Lookup(path)
	require.False(t, ok)
}

func TestValidatorVetoesUpdate(t *testing.T) {
	t.Parallel()

	tree := New()
	path := []string{"services", "foo", "Configuration", "threshold"}
	require.NoError(t, tree.SetValidator(path, func(oldValue, newValue json.RawMessage) (json.RawMessage, error) {
		var n int
		if err := json.Unmarshal(newValue, &n); err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, errNegative
		}
		return newValue, nil
	}))

	require.NoError(t, tree.MergeSet(path, 1, json.RawMessage(`10`), false))
	require.NoError(t, tree.MergeSet(path, 2, json.RawMessage(`-5`), false))

	v, ok := tree.Lookup(path)
	require.True(t, ok)
	require.JSONEq(t, "10", string(v), "vetoed write must keep the prior value")
}

func TestMergeMapRecursiveLastWriterWins(t *testing.T) {
	t.Parallel()

	tree := New()
	require.NoError(t, tree.MergeMap(nil, 1, map[string]any{
		"services": map[string]any{
			"foo": map[string]any{
				"Configuration": map[string]any{"threshold": 10},
			},
		},
	}, nil))

	v, ok := tree.Lookup([]string{"services", "foo", "Configuration", "threshold"})
	require.True(t, ok)
	require.JSONEq(t, "10", string(v))

	require.NoError(t, tree.MergeMap(nil, 2, map[string]any{
		"services": map[string]any{
			"foo": map[string]any{
				"Configuration": map[string]any{"threshold": 20},
			},
		},
	}, nil))

	v, ok = tree.Lookup([]string{"services", "foo", "Configuration", "threshold"})
	require.True(t, ok)
	require.JSONEq(t, "20", string(v))
}

func TestMergeMapPredicateExcludesPath(t *testing.T) {
	t.Parallel()

	tree := New()
	predicate := func(path []string) bool {
		return len(path) == 0 || path[0] != "private"
	}
	require.NoError(t, tree.MergeMap(nil, 1, map[string]any{
		"public":  map[string]any{"a": 1},
		"private": map[string]any{"runtime": 2},
	}, predicate))

	_, ok := tree.Lookup([]string{"public", "a"})
	require.True(t, ok)
	_, ok = tree.Lookup([]string{"private", "runtime"})
	require.False(t, ok)
}

func TestSnapshotOrderedByModtime(t *testing.T) {
	t.Parallel()

	tree := New()
	require.NoError(t, tree.MergeSet([]string{"b"}, 2, json.RawMessage(`2`), false))
	require.NoError(t, tree.MergeSet([]string{"a"}, 1, json.RawMessage(`1`), false))

	entries := tree.Snapshot()
	require.Len(t, entries, 2)
	require.Equal(t, int64(1), entries[0].Timestamp)
	require.Equal(t, int64(2), entries[1].Timestamp)
}

func TestFindReportsModtimeForContainerAndLeaf(t *testing.T) {
	t.Parallel()

	tree := New()
	require.NoError(t, tree.MergeSet([]string{"a", "b"}, 7, json.RawMessage(`1`), false))

	modtime, ok := tree.Find([]string{"a", "b"})
	require.True(t, ok)
	require.Equal(t, int64(7), modtime)

	_, ok = tree.Find([]string{"a"})
	require.True(t, ok)

	_, ok = tree.Find([]string{"missing"})
	require.False(t, ok)
}

func TestChildrenListsContainerInInsertionOrder(t *testing.T) {
	t.Parallel()

	tree := New()
	require.NoError(t, tree.MergeSet([]string{"platform", "linux", "run"}, 1, json.RawMessage(`"a"`), false))
	require.NoError(t, tree.MergeSet([]string{"platform", "all", "run"}, 2, json.RawMessage(`"b"`), false))
	require.NoError(t, tree.MergeSet([]string{"platform", "unix", "run"}, 3, json.RawMessage(`"c"`), false))

	children, ok := tree.Children([]string{"platform"})
	require.True(t, ok)
	require.Equal(t, []string{"linux", "all", "unix"}, children)

	_, ok = tree.Children([]string{"platform", "linux", "run"})
	require.False(t, ok, "a leaf has no children")

	_, ok = tree.Children([]string{"missing"})
	require.False(t, ok)
}
