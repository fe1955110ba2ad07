package configtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToPOJOAndFromPOJORoundTrip(t *testing.T) {
	t.Parallel()

	tree := New()
	require.NoError(t, tree.MergeMap(nil, 1, map[string]any{
		"services": map[string]any{
			"foo": map[string]any{
				"Configuration": map[string]any{"threshold": float64(10)},
			},
		},
	}, nil))

	pojo, err := tree.ToPOJO(nil)
	require.NoError(t, err)

	other := New()
	require.NoError(t, other.FromPOJO(nil, 1, pojo))

	v, ok := other.Lookup([]string{"services", "foo", "Configuration", "threshold"})
	require.True(t, ok)
	require.JSONEq(t, "10", string(v))
}

func TestToJSONFromJSONRoundTrip(t *testing.T) {
	t.Parallel()

	tree := New()
	require.NoError(t, tree.MergeSet([]string{"a", "b"}, 1, []byte(`"x"`), false))

	data, err := tree.ToJSON([]string{"a"})
	require.NoError(t, err)

	other := New()
	require.NoError(t, other.FromJSON([]string{"a"}, 1, data))

	v, ok := other.Lookup([]string{"a", "b"})
	require.True(t, ok)
	require.JSONEq(t, `"x"`, string(v))
}

func TestFromYAMLSeedsTree(t *testing.T) {
	t.Parallel()

	yamlDoc := []byte("services:\n  foo:\n    Configuration:\n      threshold: 10\n")

	tree := New()
	require.NoError(t, tree.FromYAML(nil, 1, yamlDoc))

	v, ok := tree.Lookup([]string{"services", "foo", "Configuration", "threshold"})
	require.True(t, ok)
	require.JSONEq(t, "10", string(v))
}

func TestToYAMLExportsSubtree(t *testing.T) {
	t.Parallel()

	tree := New()
	require.NoError(t, tree.MergeSet([]string{"a"}, 1, []byte(`1`), false))

	data, err := tree.ToYAML([]string{"a"})
	require.NoError(t, err)
	require.Contains(t, string(data), "1")
}
