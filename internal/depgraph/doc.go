// Package depgraph implements the dependency graph between service
// instances: directed edges of the form (from, to, requiredState),
// meaning "from depends on to having reached at least requiredState".
//
// Nodes are held in an arena (a slice, indexed by integer nodeID) and
// edges are index pairs rather than pointers between node structs, so the
// graph carries no Go-GC-visible reference cycles even when the services
// it describes form a cycle. Readers that only need a point-in-time view
// — dependents, dependencies, a topological order — take a brief read
// lock to copy the edge index, then walk that copy lock-free.
package depgraph
