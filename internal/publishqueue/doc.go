// Package publishqueue implements the single-threaded serialized lane that
// drains configuration-tree change notifications to every registered
// listener. Production code has two scheduling domains: a worker pool for
// blocking phase/process work, and exactly one publish thread that carries
// every mutation notification and validator decision in a single total
// order. This package is that second domain.
//
// Built on watermill's in-process gochannel pub/sub wired through a
// single-worker message.Router: one topic, one handler goroutine, so two
// listeners registered on the same queue always see notifications in the
// order they were pushed, and a panicking listener is recovered rather than
// taking the lane down.
package publishqueue
