package depgraph

import (
	"fmt"
	"sync"
)

type nodeID int32

type node struct {
	name  string
	state ServiceState
}

// edge is an index pair: from depends on to reaching at least
// requiredState.
type edge struct {
	from, to      nodeID
	requiredState ServiceState
}

// Graph is the dependency graph over named service instances.
type Graph struct {
	mu     sync.RWMutex
	nodes  []node
	byName map[string]nodeID
	edges  []edge
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{byName: make(map[string]nodeID)}
}

// getOrCreateLocked returns name's nodeID, creating a fresh NEW-state node
// if it doesn't already exist. Must be called with g.mu held for writing.
func (g *Graph) getOrCreateLocked(name string) nodeID {
	if id, ok := g.byName[name]; ok {
		return id
	}
	g.nodes = append(g.nodes, node{name: name, state: StateNew})
	id := nodeID(len(g.nodes) - 1)
	g.byName[name] = id
	return id
}

// AddEdge records that from depends on to reaching at least requiredState.
// Both nodes are created (in state NEW) if they do not already exist. The
// edge is idempotent: adding the same (from, to) pair again overwrites the
// required state rather than duplicating the edge.
func (g *Graph) AddEdge(from, to string, requiredState ServiceState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fromID := g.getOrCreateLocked(from)
	toID := g.getOrCreateLocked(to)

	for i := range g.edges {
		if g.edges[i].from == fromID && g.edges[i].to == toID {
			g.edges[i].requiredState = requiredState
			return
		}
	}
	g.edges = append(g.edges, edge{from: fromID, to: toID, requiredState: requiredState})
}

// RemoveEdge removes the edge (from, to) if present. It is a no-op if
// either node or the edge itself does not exist.
func (g *Graph) RemoveEdge(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fromID, ok := g.byName[from]
	if !ok {
		return
	}
	toID, ok := g.byName[to]
	if !ok {
		return
	}
	for i := range g.edges {
		if g.edges[i].from == fromID && g.edges[i].to == toID {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return
		}
	}
}

// SetState records name's current state, creating the node if it does not
// already exist.
func (g *Graph) SetState(name string, state ServiceState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.getOrCreateLocked(name)
	g.nodes[id].state = state
}

// State returns name's current state, or (StateNew, false) if name is not
// in the graph.
func (g *Graph) State(name string) (ServiceState, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	id, ok := g.byName[name]
	if !ok {
		return StateNew, false
	}
	return g.nodes[id].state, true
}

// snapshot copies the edges, the nodes and the name->id map under a read
// lock; callers then walk the copy without holding the lock.
func (g *Graph) snapshot() ([]edge, []node, map[string]nodeID) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]edge, len(g.edges))
	copy(edges, g.edges)
	nodes := make([]node, len(g.nodes))
	copy(nodes, g.nodes)
	byName := make(map[string]nodeID, len(g.byName))
	for k, v := range g.byName {
		byName[k] = v
	}
	return edges, nodes, byName
}

// Dependents returns the names of every node that depends directly on
// name.
func (g *Graph) Dependents(name string) []string {
	edges, nodes, byName := g.snapshot()
	id, ok := byName[name]
	if !ok {
		return nil
	}
	var out []string
	for _, e := range edges {
		if e.to == id {
			out = append(out, nodes[e.from].name)
		}
	}
	return out
}

// Dependencies returns the names of every node name depends on directly.
func (g *Graph) Dependencies(name string) []string {
	edges, nodes, byName := g.snapshot()
	id, ok := byName[name]
	if !ok {
		return nil
	}
	var out []string
	for _, e := range edges {
		if e.from == id {
			out = append(out, nodes[e.to].name)
		}
	}
	return out
}

// IsSatisfied reports whether every dependency of name has reached at
// least its required state. A name not in the graph is trivially
// satisfied (it has no recorded dependencies).
func (g *Graph) IsSatisfied(name string) bool {
	edges, nodes, byName := g.snapshot()
	id, ok := byName[name]
	if !ok {
		return true
	}
	for _, e := range edges {
		if e.from != id {
			continue
		}
		if !nodes[e.to].state.atLeast(e.requiredState) {
			return false
		}
	}
	return true
}

// ErrCycle reports a set of node names found on a dependency cycle.
type ErrCycle struct {
	Nodes []string
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("depgraph: circular dependency among %v", e.Nodes)
}
