package diregistry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeService struct {
	closed bool
}

func (f *fakeService) Close() error {
	f.closed = true
	return nil
}

func TestGetOrConstructMemoizes(t *testing.T) {
	t.Parallel()

	ctx := New()
	calls := 0
	construct := func() (*fakeService, error) {
		calls++
		return &fakeService{}, nil
	}

	a, err := GetOrConstruct(ctx, "svc", construct)
	require.NoError(t, err)
	b, err := GetOrConstruct(ctx, "svc", construct)
	require.NoError(t, err)

	require.Same(t, a, b)
	require.Equal(t, 1, calls)
}

func TestGetOrConstructDistinguishesByName(t *testing.T) {
	t.Parallel()

	ctx := New()
	construct := func() (*fakeService, error) { return &fakeService{}, nil }

	a, err := GetOrConstruct(ctx, "a", construct)
	require.NoError(t, err)
	b, err := GetOrConstruct(ctx, "b", construct)
	require.NoError(t, err)

	require.NotSame(t, a, b)
}

func TestGetOrConstructPropagatesError(t *testing.T) {
	t.Parallel()

	ctx := New()
	boom := errors.New("boom")
	_, err := GetOrConstruct(ctx, "x", func() (*fakeService, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
}

func TestCloseTearsDownInReverseOrder(t *testing.T) {
	t.Parallel()

	ctx := New()
	var order []string
	var mu sync.Mutex

	_, err := GetOrConstruct(ctx, "first", func() (*closerFunc, error) {
		return &closerFunc{fn: func() error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			return nil
		}}, nil
	})
	require.NoError(t, err)

	_, err = GetOrConstruct(ctx, "second", func() (*closerFunc, error) {
		return &closerFunc{fn: func() error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		}}, nil
	})
	require.NoError(t, err)

	require.NoError(t, ctx.Close())
	require.Equal(t, []string{"second", "first"}, order)
}

func TestCloseCollectsAllErrors(t *testing.T) {
	t.Parallel()

	ctx := New()
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")

	_, err := GetOrConstruct(ctx, "a", func() (*closerFunc, error) {
		return &closerFunc{fn: func() error { return boom1 }}, nil
	})
	require.NoError(t, err)
	_, err = GetOrConstruct(ctx, "b", func() (*closerFunc, error) {
		return &closerFunc{fn: func() error { return boom2 }}, nil
	})
	require.NoError(t, err)

	err = ctx.Close()
	require.Error(t, err)
	require.ErrorIs(t, err, boom1)
	require.ErrorIs(t, err, boom2)
}

type closerFunc struct {
	fn func() error
}

func (c *closerFunc) Close() error { return c.fn() }

func TestProvideAndInvoke(t *testing.T) {
	t.Parallel()

	ctx := New()
	require.NoError(t, ctx.Provide(func() *fakeService { return &fakeService{} }))

	var got *fakeService
	require.NoError(t, ctx.Invoke(func(s *fakeService) {
		got = s
	}))
	require.NotNil(t, got)
}
