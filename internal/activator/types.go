package activator

import "context"

// Stage identifies where a deployment is in its activation sequence. It is
// persisted alongside the deployment's metadata so a restart mid-deployment
// knows how to resume.
type Stage string

const (
	StageDefault        Stage = "DEFAULT"
	StageBootstrap      Stage = "BOOTSTRAP"
	StageKernelRollback Stage = "KERNEL_ROLLBACK"
)

// FailureHandlingPolicy selects what happens when activation fails partway
// through.
type FailureHandlingPolicy string

const (
	PolicyRollback  FailureHandlingPolicy = "ROLLBACK"
	PolicyDoNothing FailureHandlingPolicy = "DO_NOTHING"
)

// DeploymentStatus is the user-visible outcome published for a deployment.
type DeploymentStatus string

const (
	StatusSuccessful                 DeploymentStatus = "SUCCESSFUL"
	StatusFailedRollbackComplete     DeploymentStatus = "FAILED_ROLLBACK_COMPLETE"
	StatusFailedRollbackNotRequested DeploymentStatus = "FAILED_ROLLBACK_NOT_REQUESTED"
	StatusFailedNoStateChange        DeploymentStatus = "FAILED_NO_STATE_CHANGE"
	StatusRejected                   DeploymentStatus = "REJECTED"
)

// Process exit codes, per the loader contract: 0 normal, 100 request
// restart, 101 request reboot, 130 interrupted.
const (
	ExitNormal      = 0
	ExitRestart     = 100
	ExitReboot      = 101
	ExitInterrupted = 130
)

// BootstrapResult reports what a bootstrap task, or a whole bootstrap
// sequence, requires of the process once it returns. Ordered by
// increasing severity so the highest value observed across a sequence of
// tasks wins.
type BootstrapResult int

const (
	ResultNoOp BootstrapResult = iota
	ResultRequestRestart
	ResultRequestReboot
)

func (r BootstrapResult) escalate(other BootstrapResult) BootstrapResult {
	if other > r {
		return other
	}
	return r
}

// BootstrapTask is one step of a kernel-update deployment's bootstrap
// sequence. Tasks must be idempotent: RunBootstrap may resume at any index
// after a crash and re-execute that task.
type BootstrapTask struct {
	Name string
	Run  func(ctx context.Context) (BootstrapResult, error)
}

// Deployment describes one activation request.
type Deployment struct {
	ID     string
	Policy FailureHandlingPolicy

	// ConfigDelta is merged into the ConfigTree by the default strategy.
	ConfigDelta map[string]any

	// RequiresBootstrap selects the kernel-update strategy. When true,
	// StagedDistribution and BootstrapTasks must be set.
	RequiresBootstrap  bool
	StagedDistribution string
	BootstrapTasks     []BootstrapTask
}

// Record is a deployment's persisted metadata: enough to resume activation
// after a crash without replaying the whole in-memory deployment request.
type Record struct {
	ID           string                `json:"id"`
	Stage        Stage                 `json:"stage"`
	Policy       FailureHandlingPolicy `json:"policy"`
	SnapshotPath string                `json:"snapshot_path"`
	Cursor       int                   `json:"cursor"`
}
