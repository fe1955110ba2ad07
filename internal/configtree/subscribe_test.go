package configtree

import (
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// TestConfigHotUpdateScenario is scenario 3 from the end-to-end
// properties: a subscriber on a container fires exactly once with
// ChildChanged when a descendant leaf's value changes, and does not fire
// at all for a stale write.
func TestConfigHotUpdateScenario(t *testing.T) {
	t.Parallel()

	tree := New()
	leafPath := []string{"services", "foo", "Configuration", "threshold"}
	require.NoError(t, tree.MergeSet(leafPath, 1, json.RawMessage(`10`), false))

	var mu sync.Mutex
	var notifications []Notification
	tree.Subscribe([]string{"services", "foo", "Configuration"}, false, func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		notifications = append(notifications, n)
	})

	require.NoError(t, tree.MergeSet(leafPath, 2, json.RawMessage(`20`), false))

	mu.Lock()
	require.Len(t, notifications, 1)
	require.Equal(t, ChildChanged, notifications[0].Happened)
	mu.Unlock()

	// A stale write (older timestamp) must not fire the subscriber again
	// and must leave the value at 20.
	require.NoError(t, tree.MergeSet(leafPath, 0, json.RawMessage(`99`), false))

	mu.Lock()
	require.Len(t, notifications, 1, "stale write must not notify")
	mu.Unlock()

	v, ok := tree.Lookup(leafPath)
	require.True(t, ok)
	require.JSONEq(t, "20", string(v))
}

func TestSubscribeOnInitDeliversCurrentValue(t *testing.T) {
	t.Parallel()

	tree := New()
	path := []string{"a"}
	require.NoError(t, tree.MergeSet(path, 1, json.RawMessage(`5`), false))

	var got *Notification
	tree.Subscribe(path, true, func(n Notification) {
		got = &n
	})

	require.NotNil(t, got)
	require.Equal(t, Initialized, got.Happened)
	require.JSONEq(t, "5", string(got.Value))
}

func TestUnsubscribeStopsFurtherNotifications(t *testing.T) {
	t.Parallel()

	tree := New()
	path := []string{"a"}
	require.NoError(t, tree.MergeSet(path, 1, json.RawMessage(`1`), false))

	count := 0
	id := tree.Subscribe(path, false, func(Notification) { count++ })

	require.NoError(t, tree.MergeSet(path, 2, json.RawMessage(`2`), false))
	require.Equal(t, 1, count)

	tree.Unsubscribe(id)
	require.NoError(t, tree.MergeSet(path, 3, json.RawMessage(`3`), false))
	require.Equal(t, 1, count, "unsubscribed callback must not fire again")
}

func TestExactSubscriberReceivesTimestampUpdated(t *testing.T) {
	t.Parallel()

	tree := New()
	path := []string{"a"}
	require.NoError(t, tree.MergeSet(path, 1, json.RawMessage(`1`), false))

	var happened WhatHappened
	tree.Subscribe(path, false, func(n Notification) { happened = n.Happened })

	require.NoError(t, tree.MergeSet(path, 2, json.RawMessage(`2`), false))
	require.Equal(t, TimestampUpdated, happened)
}

func TestAncestorSubscriberSeesRemoval(t *testing.T) {
	t.Parallel()

	tree := New()
	path := []string{"services", "foo"}
	require.NoError(t, tree.MergeSet(path, 1, json.RawMessage(`1`), false))

	var happened WhatHappened
	tree.Subscribe([]string{"services"}, false, func(n Notification) { happened = n.Happened })

	require.NoError(t, tree.MergeRemove(path, 2, false))
	require.Equal(t, ChildRemoved, happened)
}
