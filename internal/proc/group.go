package proc

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"syscall"
)

// Group is a long-running child process whose entire process group can be
// killed in one call — used by the ping aggregator, which must guarantee
// every prober dies when its measurement window expires, even if the
// shelled tool spawned helpers of its own.
type Group struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// StartGroup starts argv in its own process group and returns a line
// scanner over its stdout.
func StartGroup(ctx context.Context, argv []string) (*Group, *bufio.Scanner, error) {
	cmd := newCommand(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return &Group{cmd: cmd, stdout: stdout}, bufio.NewScanner(stdout), nil
}

// Kill terminates the whole process group. Safe to call more than once and
// safe to call after the process has already exited.
func (g *Group) Kill() {
	if g == nil || g.cmd == nil || g.cmd.Process == nil {
		return
	}
	_ = killGroup(g.cmd.Process.Pid, syscall.SIGKILL)
}

// Wait releases the process's resources. Call after Kill to reap the child.
func (g *Group) Wait() error {
	if g == nil || g.cmd == nil {
		return nil
	}
	return g.cmd.Wait()
}
