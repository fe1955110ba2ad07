package publishqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/configtree"
)

func startQueue(t *testing.T) (*Queue, context.CancelFunc) {
	t.Helper()
	q, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = q.Run(ctx)
	}()

	select {
	case <-q.router.Running():
	case <-time.After(time.Second):
		t.Fatal("router did not start")
	}

	t.Cleanup(func() {
		cancel()
		_ = q.Close()
	})
	return q, cancel
}

func TestPushDeliversToSubscriber(t *testing.T) {
	t.Parallel()
	q, _ := startQueue(t)

	received := make(chan Event, 1)
	q.Subscribe(func(e Event) { received <- e })

	err := q.Push(Event{Happened: configtree.ChildChanged, Path: []string{"services", "a"}, Value: json.RawMessage(`1`)})
	require.NoError(t, err)

	select {
	case e := <-received:
		require.Equal(t, configtree.ChildChanged, e.Happened)
		require.Equal(t, []string{"services", "a"}, e.Path)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPushPreservesOrderAcrossEvents(t *testing.T) {
	t.Parallel()
	q, _ := startQueue(t)

	var mu sync.Mutex
	var seen []int

	q.Subscribe(func(e Event) {
		mu.Lock()
		seen = append(seen, int(e.Happened))
		mu.Unlock()
	})

	const n = 20
	for i := 0; i < n; i++ {
		require.NoError(t, q.Push(Event{Happened: configtree.WhatHappened(i % 6)}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == n
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < n; i++ {
		require.Equal(t, i%6, seen[i], "events must be delivered in push order")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	q, _ := startQueue(t)

	calls := 0
	var mu sync.Mutex
	unsubscribe := q.Subscribe(func(Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	unsubscribe()

	require.NoError(t, q.Push(Event{Happened: configtree.Removed}))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 0, calls)
}

func TestMultipleListenersAllReceiveEachEvent(t *testing.T) {
	t.Parallel()
	q, _ := startQueue(t)

	var mu sync.Mutex
	countA, countB := 0, 0
	q.Subscribe(func(Event) {
		mu.Lock()
		countA++
		mu.Unlock()
	})
	q.Subscribe(func(Event) {
		mu.Lock()
		countB++
		mu.Unlock()
	})

	require.NoError(t, q.Push(Event{Happened: configtree.Initialized}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return countA == 1 && countB == 1
	}, time.Second, time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	q, cancel := startQueue(t)
	defer cancel()

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}
