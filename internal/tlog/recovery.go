package tlog

import (
	"time"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
)

// RecoveryResult reports what happened during a startup recovery pass.
type RecoveryResult struct {
	// Replayed is the number of well-formed entries read from the log.
	Replayed int
	// Applied is the number of entries merged into the target tree.
	Applied int
	// Duration is how long recovery took, end to end.
	Duration time.Duration
}

// Recover opens the transaction log at path, replays it tolerating a
// truncated final line, and merges every recovered entry into target in
// file order. It is the standard startup sequence: call once, on an empty
// tree, before accepting any new deployments or mutations.
func Recover(path string, target MergeTarget) (RecoveryResult, error) {
	start := time.Now()

	entries, err := Replay(path)
	if err != nil {
		return RecoveryResult{}, err
	}

	if err := MergeInto(target, entries, false, nil); err != nil {
		return RecoveryResult{Replayed: len(entries), Duration: time.Since(start)}, err
	}

	result := RecoveryResult{
		Replayed: len(entries),
		Applied:  len(entries),
		Duration: time.Since(start),
	}
	logging.Info().
		Str("tlog", path).
		Int("entries", result.Replayed).
		Dur("duration", result.Duration).
		Msg("tlog recovery complete")
	return result, nil
}
