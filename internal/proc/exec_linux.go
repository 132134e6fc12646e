//go:build linux

package proc

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func newCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

func asExitError(err error) (int, bool) {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

// killGroup sends sig to the entire process group led by pid.
func killGroup(pid int, sig syscall.Signal) error {
	return unix.Kill(-pid, sig)
}
