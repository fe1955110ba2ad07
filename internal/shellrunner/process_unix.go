//go:build !windows

package shellrunner

import (
	"os/exec"
	"syscall"
)

// configureProcAttr puts the child in its own process group so
// killProcessGroup can terminate it along with any descendants it spawns.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to the whole process group. If that fails
// (e.g. the group leader already exited), it falls back to killing just
// the recorded process.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		return syscall.Kill(pid, syscall.SIGKILL)
	}
	return nil
}
