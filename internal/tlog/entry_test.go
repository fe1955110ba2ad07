package tlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePathRoundTrip(t *testing.T) {
	t.Parallel()

	cases := [][]string{
		{"services", "foo", "Configuration", "threshold"},
		{"a/b", "c\td"},
		{`back\slash`},
		{},
	}

	for _, segments := range cases {
		encoded := EncodePath(segments)
		decoded := DecodePath(encoded)
		if len(segments) == 0 {
			assert.Empty(t, decoded)
			continue
		}
		require.Equal(t, segments, decoded)
	}
}

func TestOpString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "set", OpSet.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "unknown", Op('x').String())
}
