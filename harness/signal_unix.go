//go:build unix

package harness

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup places the child in its own process group so shutdown
// signals reach the backend and anything it spawned (a Verilator model
// forks helpers).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interruptGroup requests graceful shutdown of the child's process
// group, the same signal a Ctrl-C would deliver.
func interruptGroup(cmd *exec.Cmd) error {
	return unix.Kill(-cmd.Process.Pid, unix.SIGINT)
}

// killGroup forcibly terminates the child's process group.
func killGroup(cmd *exec.Cmd) error {
	return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
}
