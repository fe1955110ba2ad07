package depgraph

// StartupOrder returns a topological order in which every node appears
// only after all of its dependencies, suitable for bringing services up.
// Nodes are emitted first-in first-out: those with no dependencies in
// insertion order, then each remaining node as soon as its last
// dependency has been emitted, so the result is deterministic for a given
// sequence of AddEdge/SetState calls. Returns *ErrCycle if the graph is
// not a DAG.
func (g *Graph) StartupOrder() ([]string, error) {
	edges, nodes, _ := g.snapshot()

	// indegree[v] = number of dependencies v has (out-degree of v in the
	// original from-depends-on-to graph).
	indegree := make([]int, len(nodes))
	// successors[u] = nodes that depend on u directly (dependents), i.e.
	// nodes that become eligible once u is processed.
	successors := make([][]nodeID, len(nodes))
	for _, e := range edges {
		indegree[e.from]++
		successors[e.to] = append(successors[e.to], e.from)
	}

	ready := make([]bool, len(nodes))
	var queue []nodeID
	for i := range nodes {
		if indegree[i] == 0 {
			queue = append(queue, nodeID(i))
			ready[i] = true
		}
	}

	var order []string
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, nodes[u].name)

		for _, v := range successors[u] {
			indegree[v]--
			if indegree[v] == 0 && !ready[v] {
				ready[v] = true
				queue = append(queue, v)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, g.cyclesFrom(edges, nodes)
	}
	return order, nil
}

// ShutdownOrder is StartupOrder reversed: dependents stop before their
// dependencies.
func (g *Graph) ShutdownOrder() ([]string, error) {
	order, err := g.StartupOrder()
	if err != nil {
		return nil, err
	}
	reversed := make([]string, len(order))
	for i, name := range order {
		reversed[len(order)-1-i] = name
	}
	return reversed, nil
}

// DetectCycles reports every node that participates in at least one
// dependency cycle. Returns nil if the graph is a DAG.
func (g *Graph) DetectCycles() []string {
	edges, nodes, _ := g.snapshot()
	cycleErr := g.cyclesFrom(edges, nodes)
	if cycleErr == nil {
		return nil
	}
	return cycleErr.Nodes
}

// cyclesFrom runs a three-color DFS over edges (white/gray/black) to find
// every node reachable from a back-edge — i.e. every node on some cycle.
func (g *Graph) cyclesFrom(edges []edge, nodes []node) *ErrCycle {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(nodes))
	adj := make([][]nodeID, len(nodes))
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
	}

	onCycle := make(map[nodeID]bool)
	var stack []nodeID

	var visit func(u nodeID)
	visit = func(u nodeID) {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range adj[u] {
			switch color[v] {
			case white:
				visit(v)
			case gray:
				// Back edge found: every node on stack from v's first
				// occurrence to the top is on a cycle.
				for i := len(stack) - 1; i >= 0; i-- {
					onCycle[stack[i]] = true
					if stack[i] == v {
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
	}

	for i := range nodes {
		if color[i] == white {
			visit(nodeID(i))
		}
	}

	if len(onCycle) == 0 {
		return nil
	}
	names := make([]string, 0, len(onCycle))
	for id := range onCycle {
		names = append(names, nodes[id].name)
	}
	return &ErrCycle{Nodes: names}
}
