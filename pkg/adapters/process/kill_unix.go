//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// killGroupOnCancel runs the tool in its own process group and kills the whole
// group on cancellation, so children started by a shell die with it.
func killGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
