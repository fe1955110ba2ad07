package activator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/bootconfig"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/configtree"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/kernel"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/tlog"
)

// Exiter requests process termination with an exit code. Activator.exit
// defaults to os.Exit; tests substitute a recording stub so the
// kernel-update strategy's restart/reboot request can be observed without
// ending the test binary.
type Exiter func(code int)

// Activator carries out deployment activation against a running core: the
// ConfigTree it mutates, the Kernel whose services it redeploys, and the
// badger-backed metadata store that survives the kernel-update strategy's
// bootstrap sequence across a crash.
//
// The kernel-update strategy is deliberately split into two entry points
// rather than one call that does everything: StageKernelUpdate runs in the
// process that is still on the old distribution (it only stages alts/new
// and requests a restart), and ResumeBootstrap runs in the process that
// comes up afterward, already launched into the new distribution by the
// loader's decision table (§6) flip. Executing the bootstrap tasks in the
// pre-flip process would be wrong whenever a task depends on something
// only the new distribution provides; splitting at the restart boundary is
// what makes alts/old reliably present by the time a failed bootstrap task
// needs to flip back to it (ResolveLaunchTarget's flip step is what
// creates alts/old in the first place).
type Activator struct {
	settings *bootconfig.Settings
	tree     *configtree.Tree
	kernel   *kernel.Kernel
	metadata *MetadataStore
	exit     Exiter
}

// New constructs an Activator. exit defaults to os.Exit.
func New(settings *bootconfig.Settings, tree *configtree.Tree, kern *kernel.Kernel, metadata *MetadataStore) *Activator {
	return &Activator{
		settings: settings,
		tree:     tree,
		kernel:   kern,
		metadata: metadata,
		exit:     os.Exit,
	}
}

// SetExiter overrides the function this Activator calls to end the process
// after a kernel-update activation. Intended for tests.
func (a *Activator) SetExiter(exit Exiter) { a.exit = exit }

// Activate runs the strategy d.RequiresBootstrap selects. For a
// kernel-update deployment this only performs the pre-restart staging
// half of the sequence (see StageKernelUpdate); the bootstrap tasks
// themselves run after restart via ResumeBootstrap.
func (a *Activator) Activate(ctx context.Context, d Deployment, affected []kernel.Recipe, timeout time.Duration) (DeploymentStatus, error) {
	if d.RequiresBootstrap {
		return a.StageKernelUpdate(d)
	}
	return a.activateDefault(ctx, d, affected, timeout)
}

// activateDefault swaps ConfigTree state in place: snapshot, merge the
// config delta, then redeploy every service whose recipe changed through
// its normal lifecycle state machine. A failure past the snapshot point is
// handled per d.Policy.
func (a *Activator) activateDefault(ctx context.Context, d Deployment, affected []kernel.Recipe, timeout time.Duration) (DeploymentStatus, error) {
	depDir := a.settings.DeploymentsDir(d.ID)
	if err := os.MkdirAll(depDir, 0o755); err != nil {
		return StatusFailedNoStateChange, fmt.Errorf("activator: prepare deployment directory: %w", err)
	}

	snapshotPath := depDir + "/pre-deployment.tlog"
	if err := tlog.Dump(snapshotPath, a.tree.Snapshot()); err != nil {
		return StatusFailedNoStateChange, fmt.Errorf("activator: snapshot config tree: %w", err)
	}
	if err := a.metadata.Put(Record{ID: d.ID, Stage: StageDefault, Policy: d.Policy, SnapshotPath: snapshotPath}); err != nil {
		return StatusFailedNoStateChange, fmt.Errorf("activator: persist deployment metadata: %w", err)
	}

	ts := time.Now().UnixMilli()
	if err := a.tree.MergeMap(nil, ts, d.ConfigDelta, nil); err != nil {
		return a.rollbackOrReport(d, snapshotPath, fmt.Errorf("activator: merge config delta: %w", err))
	}

	for _, recipe := range affected {
		if err := a.kernel.Redeploy(ctx, recipe, timeout); err != nil {
			return a.rollbackOrReport(d, snapshotPath, fmt.Errorf("activator: redeploy %s: %w", recipe.Name, err))
		}
	}

	return StatusSuccessful, nil
}

// rollbackOrReport implements the failureHandlingPolicy branch on
// activation failure: rollback replays the pre-deployment snapshot back
// over the tree with forced timestamps (so it wins regardless of whatever
// partial state the failed deployment left); doNothing reports the
// failure and leaves the tree as-is.
func (a *Activator) rollbackOrReport(d Deployment, snapshotPath string, cause error) (DeploymentStatus, error) {
	if d.Policy != PolicyRollback {
		logging.Warn().Str("deployment_id", d.ID).Err(cause).Msg("activator: activation failed, doNothing policy leaves state unchanged")
		return StatusFailedNoStateChange, cause
	}

	entries, err := tlog.Replay(snapshotPath)
	if err != nil {
		return StatusFailedRollbackNotRequested, fmt.Errorf("activator: read rollback snapshot: %w (original failure: %v)", err, cause)
	}
	if err := tlog.MergeInto(a.tree, entries, true, nil); err != nil {
		return StatusFailedRollbackNotRequested, fmt.Errorf("activator: replay rollback snapshot: %w (original failure: %v)", err, cause)
	}

	logging.Warn().Str("deployment_id", d.ID).Err(cause).Msg("activator: activation failed, config tree rolled back")
	return StatusFailedRollbackComplete, cause
}

// StageKernelUpdate runs the pre-restart half of the kernel-update
// strategy (§4.8, steps 1-3 and the first half of step 5): snapshot the
// ConfigTree, stage alts/new, persist the deployment as pending with its
// bootstrap task list not yet executed, and request a restart. The actual
// bootstrap tasks run in ResumeBootstrap, once the loader has flipped
// alts/new to alts/current and relaunched into it.
func (a *Activator) StageKernelUpdate(d Deployment) (DeploymentStatus, error) {
	depDir := a.settings.DeploymentsDir(d.ID)
	if err := os.MkdirAll(depDir, 0o755); err != nil {
		return StatusFailedNoStateChange, fmt.Errorf("activator: prepare deployment directory: %w", err)
	}

	snapshotPath := depDir + "/target.tlog"
	if err := tlog.Dump(snapshotPath, a.tree.Snapshot()); err != nil {
		return StatusFailedNoStateChange, fmt.Errorf("activator: snapshot config tree: %w", err)
	}

	if err := PrepareNew(a.settings.AltsDir(), d.StagedDistribution); err != nil {
		return StatusFailedNoStateChange, fmt.Errorf("activator: stage new distribution: %w", err)
	}

	if err := a.metadata.MarkPending(Record{ID: d.ID, Stage: StageBootstrap, Policy: d.Policy, SnapshotPath: snapshotPath}); err != nil {
		return StatusFailedNoStateChange, fmt.Errorf("activator: persist deployment metadata: %w", err)
	}

	logging.Info().Str("deployment_id", d.ID).Msg("activator: staged new distribution, requesting restart to continue bootstrap")
	a.exit(ExitRestart)
	return StatusSuccessful, nil
}

// ResumeBootstrap runs at process startup, after ResolveLaunchTarget has
// already decided this process is the one to launch. If a kernel-update
// deployment is marked pending, it executes (or resumes, from the
// persisted cursor) that deployment's bootstrap task list. On success it
// clears the pending marker and, if any task demanded it, requests a
// further restart or reboot. On failure it flips alts/current to
// alts/broken, restores alts/old as alts/current, and requests a restart
// so the loader's decision table launches the restored distribution.
//
// If no deployment is pending, ResumeBootstrap is a no-op that reports
// StatusSuccessful.
func (a *Activator) ResumeBootstrap(ctx context.Context, tasks []BootstrapTask) (DeploymentStatus, error) {
	rec, ok, err := a.metadata.GetPending()
	if err != nil {
		return StatusFailedNoStateChange, fmt.Errorf("activator: read pending deployment: %w", err)
	}
	if !ok {
		return StatusSuccessful, nil
	}

	if rec.Stage == StageKernelRollback {
		// A prior boot already completed the rollback flip; this boot is
		// just launching the restored distribution normally.
		if err := a.metadata.ClearPending(); err != nil {
			logging.Warn().Str("deployment_id", rec.ID).Err(err).Msg("activator: failed to clear pending marker after rollback")
		}
		return StatusFailedRollbackComplete, nil
	}

	result, _, bootstrapErr := RunBootstrap(ctx, a.metadata, rec.ID, tasks, rec.Cursor)
	if bootstrapErr != nil {
		return a.rollbackKernelUpdate(rec, bootstrapErr)
	}

	if err := a.metadata.ClearPending(); err != nil {
		logging.Warn().Str("deployment_id", rec.ID).Err(err).Msg("activator: failed to clear pending marker after bootstrap success")
	}

	if result != ResultNoOp {
		exitCode := ExitRestart
		if result == ResultRequestReboot {
			exitCode = ExitReboot
		}
		logging.Info().Str("deployment_id", rec.ID).Int("exit_code", exitCode).Msg("activator: bootstrap complete, requesting process exit")
		a.exit(exitCode)
	}
	return StatusSuccessful, nil
}

// rollbackKernelUpdate implements the bootstrap-failure path: flip
// alts/current to alts/broken, restore alts/old as the new alts/current,
// record the KERNEL_ROLLBACK stage, and request a restart so the loader's
// decision table launches the restored distribution.
func (a *Activator) rollbackKernelUpdate(rec Record, cause error) (DeploymentStatus, error) {
	if flipErr := FlipToBroken(a.settings.AltsDir()); flipErr != nil {
		return StatusFailedRollbackNotRequested, fmt.Errorf("activator: bootstrap failed (%w) and rollback flip failed: %v", cause, flipErr)
	}

	rec.Stage = StageKernelRollback
	if putErr := a.metadata.MarkPending(rec); putErr != nil {
		logging.Warn().Str("deployment_id", rec.ID).Err(putErr).Msg("activator: failed to persist rollback stage")
	}

	logging.Error().Str("deployment_id", rec.ID).Err(cause).Msg("activator: bootstrap failed, rolled back alts and requesting restart")
	a.exit(ExitRestart)
	return StatusFailedRollbackComplete, cause
}
