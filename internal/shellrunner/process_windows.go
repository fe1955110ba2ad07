//go:build windows

package shellrunner

import "os/exec"

// configureProcAttr is a no-op on Windows; process-group semantics are
// handled by killProcessGroup directly terminating the child.
func configureProcAttr(cmd *exec.Cmd) {}

// killProcessGroup terminates the child process. Windows has no POSIX
// process-group signal; descendants of a misbehaving child are not
// guaranteed to be reaped here.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
