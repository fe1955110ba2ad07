package configtree

import "github.com/goccy/go-json"

// WhatHappened identifies the kind of change a subscriber is being told
// about.
type WhatHappened int

const (
	Initialized WhatHappened = iota
	ChildAdded
	ChildRemoved
	ChildChanged
	Removed
	TimestampUpdated
)

func (w WhatHappened) String() string {
	switch w {
	case Initialized:
		return "initialized"
	case ChildAdded:
		return "childAdded"
	case ChildRemoved:
		return "childRemoved"
	case ChildChanged:
		return "childChanged"
	case Removed:
		return "removed"
	case TimestampUpdated:
		return "timestampUpdated"
	default:
		return "unknown"
	}
}

// Notification is one subscriber callback invocation.
type Notification struct {
	Happened WhatHappened
	Path     []string
	Value    json.RawMessage
}

// Callback is invoked for every notification a subscription matches.
type Callback func(Notification)

// SubscriptionID identifies a registered subscription for Unsubscribe.
type SubscriptionID uint64

type subscription struct {
	id       SubscriptionID
	callback Callback
}

// subscribe registers callback against the node at path, creating
// intermediate containers if the path does not yet resolve, and returns an
// opaque ID for Unsubscribe. If onInit is true, callback is invoked once,
// synchronously, with an Initialized notification carrying the node's
// current value (leaves only; containers pass a nil value).
func (t *Tree) subscribe(path []string, callback Callback, onInit bool) SubscriptionID {
	t.mu.Lock()

	t.nextSubID++
	id := SubscriptionID(t.nextSubID)

	target, ok := t.resolveLocked(path)
	if !ok {
		target = t.ensureContainerPathLocked(path)
	}
	n := t.nodes[target]
	n.subs = append(n.subs, &subscription{id: id, callback: callback})

	var init *Notification
	if onInit {
		var value json.RawMessage
		if n.isLeaf() {
			value = n.value
		}
		init = &Notification{Happened: Initialized, Path: append([]string(nil), path...), Value: value}
	}
	t.mu.Unlock()

	if init != nil {
		callback(*init)
	}
	return id
}

// unsubscribe removes a previously registered subscription. It is a no-op
// if id is unknown (e.g. already removed).
func (t *Tree) unsubscribe(id SubscriptionID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, n := range t.nodes {
		for j, sub := range n.subs {
			if sub.id == id {
				n.subs = append(n.subs[:j], n.subs[j+1:]...)
				return
			}
		}
	}
}

// notifyExact fires happened to every subscriber registered exactly at
// path. Must be called with t.mu NOT held.
func (t *Tree) notifyExact(path []string, happened WhatHappened, value json.RawMessage) {
	t.mu.RLock()
	id, ok := t.resolveLocked(path)
	var callbacks []Callback
	if ok {
		for _, sub := range t.nodes[id].subs {
			callbacks = append(callbacks, sub.callback)
		}
	}
	t.mu.RUnlock()

	t.dispatch(callbacks, path, happened, value)
}

// notifyAncestors fires happened to every subscriber registered on a
// proper ancestor container of path (root through path's direct parent),
// since containers fan out to any descendant's change. Must be called with
// t.mu NOT held.
func (t *Tree) notifyAncestors(path []string, happened WhatHappened, value json.RawMessage) {
	if len(path) == 0 {
		return
	}

	t.mu.RLock()
	var callbacks []Callback
	id := t.root
	callbacks = append(callbacks, subCallbacks(t.nodes[id])...)
	for _, seg := range path[:len(path)-1] {
		next, ok := t.nodes[id].childID(seg)
		if !ok {
			break
		}
		id = next
		callbacks = append(callbacks, subCallbacks(t.nodes[id])...)
	}
	t.mu.RUnlock()

	t.dispatch(callbacks, path, happened, value)
}

func subCallbacks(n *node) []Callback {
	out := make([]Callback, 0, len(n.subs))
	for _, sub := range n.subs {
		out = append(out, sub.callback)
	}
	return out
}

func (t *Tree) dispatch(callbacks []Callback, path []string, happened WhatHappened, value json.RawMessage) {
	if len(callbacks) == 0 {
		return
	}
	n := Notification{Happened: happened, Path: append([]string(nil), path...), Value: value}
	for _, cb := range callbacks {
		cb(n)
	}
}
