package configtree

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/tlog"
)

// Tree is the hierarchical configuration and runtime-state store. Nodes
// live in an arena (nodes, indexed by nodeID); a node's children and
// parent are index references, never Go pointers into another node, so
// the structure carries no GC-visible reference cycles. The zero value is
// not usable; construct with New.
type Tree struct {
	mu    sync.RWMutex
	nodes []*node
	root  nodeID

	nextSubID uint64
}

// New creates an empty Tree with a single root container.
func New() *Tree {
	t := &Tree{}
	t.nodes = append(t.nodes, newContainerNode("", noParent))
	t.root = 0
	return t
}

// resolveLocked walks path from root and returns the terminal node's id.
// Must be called with t.mu held (read or write).
func (t *Tree) resolveLocked(path []string) (nodeID, bool) {
	id := t.root
	for _, seg := range path {
		next, ok := t.nodes[id].childID(seg)
		if !ok {
			return 0, false
		}
		id = next
	}
	return id, true
}

// ensureContainerPathLocked creates any missing containers along path and
// returns the terminal node's id. Must be called with t.mu held for
// writing.
func (t *Tree) ensureContainerPathLocked(path []string) nodeID {
	id := t.root
	for _, seg := range path {
		next, ok := t.nodes[id].childID(seg)
		if !ok {
			t.nodes = append(t.nodes, newContainerNode(seg, id))
			next = nodeID(len(t.nodes) - 1)
			parent := t.nodes[id]
			parent.children[seg] = next
			parent.childOrder = append(parent.childOrder, seg)
		}
		id = next
	}
	return id
}

// Lookup returns the current value at path if it names a leaf, or
// (nil, false) if path names a container, does not exist, or is empty.
func (t *Tree) Lookup(path []string) (json.RawMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.resolveLocked(path)
	if !ok || !t.nodes[id].isLeaf() {
		return nil, false
	}
	return t.nodes[id].value, true
}

// Find reports whether path names any node (leaf or container) and, if so,
// that node's current modtime.
func (t *Tree) Find(path []string) (modtime int64, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.resolveLocked(path)
	if !ok {
		return 0, false
	}
	return t.nodes[id].modtime, true
}

// Children returns the ordered child names of the container at path, or
// (nil, false) if path does not name an existing container.
func (t *Tree) Children(path []string) ([]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.resolveLocked(path)
	if !ok || !t.nodes[id].isContainer() {
		return nil, false
	}
	return append([]string(nil), t.nodes[id].childOrder...), true
}

// SetValidator installs validator on the leaf at path, creating the
// containing path and an empty leaf if needed. A nil validator
// clears any existing one.
func (t *Tree) SetValidator(path []string, validator Validator) error {
	if len(path) == 0 {
		return fmt.Errorf("configtree: cannot set a validator on the root")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	parentID := t.ensureContainerPathLocked(path[:len(path)-1])
	name := path[len(path)-1]
	parent := t.nodes[parentID]

	id, ok := parent.childID(name)
	if !ok {
		t.nodes = append(t.nodes, newLeafNode(name, parentID, 0, nil))
		id = nodeID(len(t.nodes) - 1)
		parent.children[name] = id
		parent.childOrder = append(parent.childOrder, name)
	}
	t.nodes[id].validator = validator
	return nil
}

// Subscribe registers callback against path, creating intermediate
// containers if the path does not yet resolve. If onInit is true, callback
// is invoked once, synchronously and before Subscribe returns, with the
// node's current value.
func (t *Tree) Subscribe(path []string, onInit bool, callback Callback) SubscriptionID {
	return t.subscribe(path, callback, onInit)
}

// Unsubscribe removes a subscription registered with Subscribe. It is a
// no-op if id is unknown.
func (t *Tree) Unsubscribe(id SubscriptionID) {
	t.unsubscribe(id)
}

// MergeSet implements tlog.MergeTarget. Stale writes (ts <= the leaf's
// current modtime, and force is false) are silently dropped, per the
// modtime-gated merge rule that lets deployments and tlog replay interleave
// safely.
func (t *Tree) MergeSet(path []string, ts int64, value json.RawMessage, force bool) error {
	return t.setLeaf(path, ts, value, force)
}

// MergeRemove implements tlog.MergeTarget.
func (t *Tree) MergeRemove(path []string, ts int64, force bool) error {
	return t.removeNode(path, ts, force)
}

func (t *Tree) setLeaf(path []string, ts int64, value json.RawMessage, force bool) error {
	if len(path) == 0 {
		return fmt.Errorf("configtree: cannot set the root")
	}

	t.mu.Lock()
	parentID := t.ensureContainerPathLocked(path[:len(path)-1])
	name := path[len(path)-1]
	parent := t.nodes[parentID]

	id, existed := parent.childID(name)
	isNewLeaf := false
	if !existed {
		t.nodes = append(t.nodes, newLeafNode(name, parentID, ts, nil))
		id = nodeID(len(t.nodes) - 1)
		parent.children[name] = id
		parent.childOrder = append(parent.childOrder, name)
		isNewLeaf = true
	}

	n := t.nodes[id]
	var oldValue json.RawMessage
	if !isNewLeaf {
		if n.isContainer() {
			if len(n.children) > 0 {
				t.mu.Unlock()
				return fmt.Errorf("configtree: %q is a container, cannot set a value", tlog.EncodePath(path))
			}
			// A placeholder container created only to host a
			// pre-registered subscription; it has no real children yet,
			// so it is safe to turn into the leaf being set now.
			n.kind = kindLeaf
			isNewLeaf = true
		} else if !force && ts <= n.modtime {
			t.mu.Unlock()
			return nil
		}
		oldValue = n.value
	}

	newValue := value
	if n.validator != nil {
		v, err := n.validator(oldValue, value)
		if err != nil {
			t.mu.Unlock()
			logging.Warn().Str("path", tlog.EncodePath(path)).Err(err).Msg("configtree: validator vetoed write")
			return nil
		}
		newValue = v
	}

	n.value = newValue
	n.modtime = ts
	t.mu.Unlock()

	t.notifyExact(path, TimestampUpdated, newValue)
	if isNewLeaf {
		t.notifyAncestors(path, ChildAdded, newValue)
	} else {
		t.notifyAncestors(path, ChildChanged, newValue)
	}
	return nil
}

func (t *Tree) removeNode(path []string, ts int64, force bool) error {
	if len(path) == 0 {
		return fmt.Errorf("configtree: cannot remove the root")
	}

	t.mu.Lock()
	parentID, ok := t.resolveLocked(path[:len(path)-1])
	if !ok {
		t.mu.Unlock()
		return nil // nothing to remove
	}
	name := path[len(path)-1]
	parent := t.nodes[parentID]

	id, ok := parent.childID(name)
	if !ok {
		t.mu.Unlock()
		return nil
	}
	n := t.nodes[id]
	if !force && ts <= n.modtime {
		t.mu.Unlock()
		return nil
	}

	delete(parent.children, name)
	parent.childOrder = removeString(parent.childOrder, name)
	parent.modtime = ts
	t.mu.Unlock()

	t.notifyExact(path, Removed, nil)
	t.notifyAncestors(path, ChildRemoved, nil)
	return nil
}

// MergeMap recursively merges m into the tree rooted at path, treating
// every leaf of m as a last-writer-wins set under timestamp ts. predicate,
// if non-nil, excludes paths it returns false for. Map keys are visited in
// sorted order so the resulting notification sequence is deterministic.
func (t *Tree) MergeMap(path []string, ts int64, m map[string]any, predicate func(path []string) bool) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := append(append([]string(nil), path...), k)
		if predicate != nil && !predicate(childPath) {
			continue
		}
		switch v := m[k].(type) {
		case map[string]any:
			if err := t.MergeMap(childPath, ts, v, predicate); err != nil {
				return err
			}
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("configtree: marshal value at %q: %w", tlog.EncodePath(childPath), err)
			}
			if err := t.setLeaf(childPath, ts, raw, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// Snapshot implements tlog.Snapshotter: it dumps every leaf in the tree as
// a tlog.Entry ordered by ascending modtime, suitable for tlog.Dump/Swap.
func (t *Tree) Snapshot() []tlog.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var entries []tlog.Entry
	t.walkLocked(t.root, nil, func(path []string, n *node) {
		if n.isLeaf() {
			entries = append(entries, tlog.Entry{Timestamp: n.modtime, Op: tlog.OpSet, Path: append([]string(nil), path...), Value: n.value})
		}
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return entries
}

func (t *Tree) walkLocked(id nodeID, path []string, visit func(path []string, n *node)) {
	n := t.nodes[id]
	if id != t.root {
		visit(path, n)
	}
	for _, name := range n.childOrder {
		childID, ok := n.children[name]
		if !ok {
			continue
		}
		t.walkLocked(childID, append(path, name), visit)
	}
}

func removeString(ss []string, s string) []string {
	for i, v := range ss {
		if v == s {
			return append(ss[:i], ss[i+1:]...)
		}
	}
	return ss
}
