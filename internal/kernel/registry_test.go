package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/lifecycle"
)

func TestRegistryLookupMissIsFalse(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, ok := r.Lookup("ipc")
	require.False(t, ok)
}

func TestRegisterThenLookupReturnsSameConstructor(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	called := false
	ctor := func(recipe Recipe) (lifecycle.PhaseSet, error) {
		called = true
		return lifecycle.PhaseSet{}, nil
	}
	r.Register("ipc", ctor)

	got, ok := r.Lookup("ipc")
	require.True(t, ok)
	_, err := got(Recipe{Name: "ipc"})
	require.NoError(t, err)
	require.True(t, called)
}

func TestRegisterSameNameTwicePanics(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	noop := func(Recipe) (lifecycle.PhaseSet, error) { return lifecycle.PhaseSet{}, nil }
	r.Register("ipc", noop)

	require.Panics(t, func() {
		r.Register("ipc", noop)
	})
}

func TestNamesIsSortedAndReflectsRegistrations(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	noop := func(Recipe) (lifecycle.PhaseSet, error) { return lifecycle.PhaseSet{}, nil }
	r.Register("telemetry", noop)
	r.Register("ipc", noop)

	require.Equal(t, []string{"ipc", "telemetry"}, r.Names())
}
