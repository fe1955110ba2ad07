// Package configtree implements the hierarchical key/value store that
// backs every component's configuration and runtime state: an in-memory
// tree of containers and leaves, each leaf carrying a monotonic
// modification timestamp, with subscriptions that fire on descendant
// change and an optional validator that can veto a write.
//
// Nodes live in an arena (a single slice owned by the Tree); children are
// referenced by integer index rather than pointer, and a node's parent is
// likewise an index. This keeps the structure free of Go-GC-visible
// reference cycles and lets a reader walk a path without chasing pointers
// across goroutine-shared memory.
//
// A Tree satisfies tlog.MergeTarget and tlog.Snapshotter, so it can be
// replayed into directly from a transaction log and snapshotted back out
// for compaction, without either package importing the other.
package configtree
