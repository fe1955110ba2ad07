package activator

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoaderAction names which recovery path ResolveLaunchTarget took, for
// logging and tests.
type LoaderAction string

const (
	ActionLaunchCurrent              LoaderAction = "launch_current"
	ActionFlipAndPreserveOld         LoaderAction = "flip_new_preserve_old"
	ActionLaunchDeploymentInProgress LoaderAction = "launch_deployment_in_progress"
	ActionLaunchPostRollback         LoaderAction = "launch_post_rollback"
	ActionRenameOldToCurrent         LoaderAction = "rename_old_to_current"
	ActionFlipNewNoOld               LoaderAction = "flip_new_no_old"
)

func symlinkExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// ResolveLaunchTarget implements the loader decision table (§6): given the
// four transient symlinks an in-progress or interrupted activation may
// have left in altsDir, it performs whatever symlink flip the layout
// requires and returns the distribution path a process should launch.
//
// At any crash point, exactly one of the six recognized layouts is on
// disk; a layout matching none of them is reported as an error rather than
// guessed at.
func ResolveLaunchTarget(altsDir string) (target string, action LoaderAction, err error) {
	currentPath := filepath.Join(altsDir, "current")
	newPath := filepath.Join(altsDir, "new")
	oldPath := filepath.Join(altsDir, "old")
	brokenPath := filepath.Join(altsDir, "broken")

	hasCurrent := symlinkExists(currentPath)
	hasNew := symlinkExists(newPath)
	hasOld := symlinkExists(oldPath)
	hasBroken := symlinkExists(brokenPath)

	switch {
	case hasCurrent && hasNew && !hasOld && !hasBroken:
		if err := os.Rename(currentPath, oldPath); err != nil {
			return "", "", fmt.Errorf("activator: preserve previous current as old: %w", err)
		}
		if err := os.Rename(newPath, currentPath); err != nil {
			return "", "", fmt.Errorf("activator: flip new to current: %w", err)
		}
		action = ActionFlipAndPreserveOld

	case hasCurrent && hasOld && !hasNew && !hasBroken:
		action = ActionLaunchDeploymentInProgress

	case hasCurrent && hasBroken && !hasNew && !hasOld:
		action = ActionLaunchPostRollback

	case hasCurrent && !hasNew && !hasOld && !hasBroken:
		action = ActionLaunchCurrent

	case !hasCurrent && hasOld && !hasNew && !hasBroken:
		if err := os.Rename(oldPath, currentPath); err != nil {
			return "", "", fmt.Errorf("activator: rename old to current: %w", err)
		}
		action = ActionRenameOldToCurrent

	case !hasCurrent && hasNew && !hasOld && !hasBroken:
		if err := os.Rename(newPath, currentPath); err != nil {
			return "", "", fmt.Errorf("activator: flip new to current: %w", err)
		}
		action = ActionFlipNewNoOld

	default:
		return "", "", fmt.Errorf("activator: unrecognized alts layout in %s (current=%v new=%v old=%v broken=%v)",
			altsDir, hasCurrent, hasNew, hasOld, hasBroken)
	}

	target, err = os.Readlink(currentPath)
	if err != nil {
		return "", action, fmt.Errorf("activator: read alts/current: %w", err)
	}
	return target, action, nil
}

// PrepareNew stages a kernel-update deployment's distribution: asserts
// alts/new is absent, alts/old is absent, and alts/current already points
// at the running distribution, then symlinks alts/new to
// stagedDistribution.
func PrepareNew(altsDir, stagedDistribution string) error {
	currentPath := filepath.Join(altsDir, "current")
	newPath := filepath.Join(altsDir, "new")
	oldPath := filepath.Join(altsDir, "old")

	if !symlinkExists(currentPath) {
		return fmt.Errorf("activator: alts/current is missing, cannot stage a new distribution")
	}
	if symlinkExists(newPath) {
		return fmt.Errorf("activator: alts/new already present, a deployment may already be in progress")
	}
	if symlinkExists(oldPath) {
		return fmt.Errorf("activator: alts/old already present, a deployment may already be in progress")
	}
	if err := os.MkdirAll(altsDir, 0o755); err != nil {
		return fmt.Errorf("activator: create alts directory: %w", err)
	}
	if err := os.Symlink(stagedDistribution, newPath); err != nil {
		return fmt.Errorf("activator: stage alts/new: %w", err)
	}
	return nil
}

// FlipToBroken performs the bootstrap-failure rollback flip: the
// currently-launched (failed) distribution becomes alts/broken, and the
// preserved previous distribution at alts/old becomes the new
// alts/current. Requires alts/old to be present, which it always is by
// this point in the kernel-update sequence (ResolveLaunchTarget's flip
// step preserves it before bootstrap tasks ever run).
func FlipToBroken(altsDir string) error {
	currentPath := filepath.Join(altsDir, "current")
	oldPath := filepath.Join(altsDir, "old")
	brokenPath := filepath.Join(altsDir, "broken")

	if !symlinkExists(oldPath) {
		return fmt.Errorf("activator: cannot roll back, alts/old is absent")
	}
	if err := os.Rename(currentPath, brokenPath); err != nil {
		return fmt.Errorf("activator: flip current to broken: %w", err)
	}
	if err := os.Rename(oldPath, currentPath); err != nil {
		return fmt.Errorf("activator: restore old as current: %w", err)
	}
	return nil
}
