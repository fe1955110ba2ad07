package tlog

import "github.com/goccy/go-json"

// MergeTarget is the minimal surface tlog needs from a ConfigTree to replay
// or merge entries into it. Defined here, rather than importing the
// configtree package, so tlog has no dependency on ConfigTree's
// implementation; configtree.Tree satisfies this interface structurally.
type MergeTarget interface {
	// MergeSet applies a set mutation at path with the given timestamp and
	// JSON-encoded value. If force is true, the write is applied regardless
	// of the target's current modtime for that path.
	MergeSet(path []string, ts int64, value json.RawMessage, force bool) error
	// MergeRemove applies a remove mutation at path with the given
	// timestamp, subject to the same force semantics as MergeSet.
	MergeRemove(path []string, ts int64, force bool) error
}

// PathPredicate reports whether an entry's path should be applied during a
// merge. A nil predicate applies every path.
type PathPredicate func(path []string) bool

// MergeInto applies entries to target in order. If forceTimestamp is true,
// every entry is applied regardless of the target's current modtime for
// that path — used during rollback, where the tlog snapshot must win over
// whatever partial state the failed deployment left behind. predicate, if
// non-nil, excludes paths it returns false for (e.g. private runtime state
// that should not be restored from a snapshot).
func MergeInto(target MergeTarget, entries []Entry, forceTimestamp bool, predicate PathPredicate) error {
	for _, e := range entries {
		if predicate != nil && !predicate(e.Path) {
			continue
		}
		var err error
		switch e.Op {
		case OpSet:
			err = target.MergeSet(e.Path, e.Timestamp, e.Value, forceTimestamp)
		case OpRemove:
			err = target.MergeRemove(e.Path, e.Timestamp, forceTimestamp)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
