package activator

import (
	"context"
	"fmt"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
)

// RunBootstrap executes tasks in order starting at fromIndex — the
// persisted cursor from a prior, crash-interrupted attempt, or 0 on a
// fresh run. The cursor is advanced in store after each task commits, so
// a crash between two tasks resumes at the next one rather than
// re-running the whole list; tasks themselves must be idempotent to make
// re-execution of the task in progress at crash time safe.
//
// It returns the highest-severity BootstrapResult observed across every
// task that ran, the index the sequence stopped at, and the first task
// error encountered (if any).
func RunBootstrap(ctx context.Context, store *MetadataStore, deploymentID string, tasks []BootstrapTask, fromIndex int) (BootstrapResult, int, error) {
	result := ResultNoOp

	for i := fromIndex; i < len(tasks); i++ {
		task := tasks[i]

		taskResult, err := task.Run(ctx)
		if err != nil {
			return result, i, fmt.Errorf("activator: bootstrap task %q (index %d): %w", task.Name, i, err)
		}
		result = result.escalate(taskResult)

		if err := store.advanceCursor(deploymentID, i+1); err != nil {
			return result, i, fmt.Errorf("activator: persist bootstrap cursor after %q: %w", task.Name, err)
		}
		logging.Info().
			Str("deployment_id", deploymentID).
			Str("task", task.Name).
			Int("index", i).
			Msg("activator: bootstrap task complete")
	}

	return result, len(tasks), nil
}
