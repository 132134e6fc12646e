// Package supervisor wraps systemd transient-unit management for the
// long-running helpers the agent launches: relay workers and the routing
// container. Units are created with `systemd-run`, not unit files, so they
// disappear with the host and never need installing/enabling.
package supervisor

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"

	"meshnoded/internal/proc"
)

// Supervisor starts and stops transient systemd units via the shelled
// systemd-run/systemctl binaries.
type Supervisor struct {
	Invoker *proc.Invoker
}

// RunOpts configures a transient unit.
type RunOpts struct {
	UnitName    string
	Description string
	Argv        []string // the command to run under the unit
	Restart     string   // "always", "" to omit
	RestartSec  int      // 0 to omit
	Type        string   // "simple" (default, omit), "forking"
	KillMode    string   // "", "none"
	Collect     bool     // --collect: clean up unit state once stopped
}

// Start launches argv as a transient unit named UnitName. It does not wait
// for the unit to finish; Type "forking" callers are expected to poll
// IsActive or inspect the underlying process themselves.
func (s *Supervisor) Start(ctx context.Context, opts RunOpts) error {
	argv := proc.SudoWrap(append([]string{"systemd-run", "--unit=" + opts.UnitName}, runFlags(opts)...))
	argv = append(argv, "--")
	argv = append(argv, opts.Argv...)
	if _, err := s.Invoker.RunChecked(ctx, argv, nil); err != nil {
		return fmt.Errorf("start unit %s: %w", opts.UnitName, err)
	}
	return nil
}

func runFlags(opts RunOpts) []string {
	var flags []string
	if opts.Description != "" {
		flags = append(flags, "--description="+opts.Description)
	}
	if opts.Restart != "" {
		flags = append(flags, "--property=Restart="+opts.Restart)
	}
	if opts.RestartSec > 0 {
		flags = append(flags, fmt.Sprintf("--property=RestartSec=%d", opts.RestartSec))
	}
	if opts.KillMode != "" {
		flags = append(flags, "--property=KillMode="+opts.KillMode)
	}
	if opts.Type != "" {
		flags = append(flags, "--property=Type="+opts.Type)
	}
	if opts.Collect {
		flags = append(flags, "--collect")
	}
	return flags
}

// Stop stops unitName. Stopping a unit that is already gone is not an
// error: callers treat stop as best-effort per the reconciliation design.
func (s *Supervisor) Stop(ctx context.Context, unitName string) error {
	res, err := s.Invoker.Run(ctx, proc.SudoWrap([]string{"systemctl", "stop", unitName}), nil)
	if err != nil {
		return fmt.Errorf("stop unit %s: %w", unitName, err)
	}
	if res.ExitCode != 0 {
		if clsErr := proc.ClassifyStderr(res); !errdefs.IsNotFound(clsErr) {
			return fmt.Errorf("stop unit %s: %w", unitName, clsErr)
		}
	}
	return nil
}

// IsActive reports whether unitName is currently running.
func (s *Supervisor) IsActive(ctx context.Context, unitName string) bool {
	res, err := s.Invoker.Run(ctx, []string{"systemctl", "is-active", "--quiet", unitName}, nil)
	return err == nil && res.ExitCode == 0
}
