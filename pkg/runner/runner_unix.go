//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the toolchain in its own group so a kill also reaches
// the compiler phases a wrapper script spawns.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) error {
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		if err == syscall.ESRCH {
			return cmd.Process.Kill()
		}
		return err
	}
	return nil
}
