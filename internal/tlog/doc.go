// Package tlog implements the device-local orchestration core's transaction
// log: an append-only, line-delimited, durable record of every ConfigTree
// mutation.
//
// # Usage
//
//	t, err := tlog.Open(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	if err := t.Append(entry); err != nil {
//	    log.Fatal(err)
//	}
//	if err := t.Flush(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Recovery
//
// On startup, replay the log into an empty tree:
//
//	result, err := tlog.Recover(path, tree)
//
// A truncated final line — the signature of a crash mid-write — is dropped
// silently rather than surfaced as an error.
//
// # Compaction
//
// A Compactor rewrites the live log to a single snapshot once it grows past
// a configured size, keeping replay time bounded:
//
//	compactor := tlog.NewCompactor(t, tree, tlog.DefaultConfig())
//	compactor.Start(ctx)
//	defer compactor.Stop()
package tlog
