// Package routerctr is the container manager (component H): it drives the
// podman-hosted BIRD routing daemon through the shelled `podman` CLI,
// launching the container itself under a transient systemd unit so it
// survives independently of the agent process.
package routerctr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/containerd/errdefs"

	"meshnoded/internal/proc"
	"meshnoded/internal/supervisor"
)

const image = "bird-router"

// Info is the subset of `podman inspect` the reconciliation loop needs.
type Info struct {
	ID     string
	Status string
	Binds  []string
}

// Manager drives the router container's lifecycle.
type Manager struct {
	Invoker    *proc.Invoker
	Supervisor *supervisor.Supervisor
}

func containerName(ns string) string {
	return ns + "-router"
}

func unitName(ns string) string {
	return "networktools-" + ns + "-router"
}

type inspectEntry struct {
	ID    string `json:"Id"`
	State struct {
		Status string `json:"Status"`
	} `json:"State"`
	HostConfig struct {
		Binds []string `json:"Binds"`
	} `json:"HostConfig"`
}

// Inspect looks up the router container for ns. ok is false if no such
// container exists.
func (m *Manager) Inspect(ctx context.Context, ns string) (Info, bool, error) {
	res, err := m.Invoker.Run(ctx, proc.SudoWrap([]string{"podman", "inspect", containerName(ns)}), nil)
	if err != nil {
		return Info{}, false, fmt.Errorf("podman inspect %s: %w", containerName(ns), err)
	}
	if res.ExitCode != 0 {
		clsErr := proc.ClassifyStderr(res)
		if errdefs.IsNotFound(clsErr) {
			return Info{}, false, nil
		}
		return Info{}, false, fmt.Errorf("podman inspect %s: %w", containerName(ns), clsErr)
	}

	var entries []inspectEntry
	if err := json.Unmarshal([]byte(res.Stdout), &entries); err != nil || len(entries) == 0 {
		return Info{}, false, fmt.Errorf("parse podman inspect output for %s: %w", containerName(ns), err)
	}
	e := entries[0]
	return Info{ID: e.ID, Status: e.State.Status, Binds: e.HostConfig.Binds}, true, nil
}

// Start creates the router container bind-mounting tmpRouterDir read-only
// at /data inside netns ns, then launches it under a forking transient
// unit so podman's own daemonized container process outlives the agent.
func (m *Manager) Start(ctx context.Context, ns, tmpRouterDir string) (string, error) {
	createArgv := proc.SudoWrap([]string{
		"podman", "create",
		"--network", "ns:/var/run/netns/" + ns,
		"--cap-add", "NET_ADMIN,CAP_NET_BIND_SERVICE,NET_RAW,NET_BROADCAST",
		"-v", tmpRouterDir + ":/data:ro",
		"--name", containerName(ns),
		image,
	})
	out, err := m.Invoker.RunChecked(ctx, createArgv, nil)
	if err != nil {
		return "", fmt.Errorf("podman create %s: %w", containerName(ns), err)
	}
	id := strings.TrimSpace(out)

	err = m.Supervisor.Start(ctx, supervisor.RunOpts{
		UnitName: unitName(ns),
		Argv:     proc.SudoWrap([]string{"podman", "start", id}),
		Type:     "forking",
		KillMode: "none",
		Collect:  true,
	})
	if err != nil {
		return "", fmt.Errorf("start unit for router container %s: %w", containerName(ns), err)
	}
	return id, nil
}

// Shutdown stops the supervisor unit (best-effort), force-removes the
// container, and optionally purges the temp bind directory.
func (m *Manager) Shutdown(ctx context.Context, ns string, clearTemp bool, tmpDir string) error {
	if err := m.Supervisor.Stop(ctx, unitName(ns)); err != nil {
		// best-effort: unit may already be gone.
		_ = err
	}

	res, err := m.Invoker.Run(ctx, proc.SudoWrap([]string{"podman", "rm", "-f", containerName(ns)}), nil)
	if err != nil {
		return fmt.Errorf("podman rm -f %s: %w", containerName(ns), err)
	}
	if res.ExitCode != 0 {
		if clsErr := proc.ClassifyStderr(res); !errdefs.IsNotFound(clsErr) {
			return fmt.Errorf("podman rm -f %s: %w", containerName(ns), clsErr)
		}
	}

	if clearTemp && tmpDir != "" {
		if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"rm", "-rf", tmpDir}), nil); err != nil {
			return fmt.Errorf("clear temp dir %s: %w", tmpDir, err)
		}
	}
	return nil
}

// Reload tells the running router container's BIRD instance to reread its
// configuration file.
func (m *Manager) Reload(ctx context.Context, ns string) error {
	_, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"podman", "exec", containerName(ns), "birdc", "configure"}), nil)
	if err != nil {
		return fmt.Errorf("birdc configure in %s: %w", containerName(ns), err)
	}
	return nil
}

// ShowOSPFState returns the raw text of `birdc show ospf state all` from
// the running router container, for the OSPF LSDB parser to consume.
func (m *Manager) ShowOSPFState(ctx context.Context, ns string) (string, error) {
	out, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"podman", "exec", containerName(ns), "birdc", "show", "ospf", "state", "all"}), nil)
	if err != nil {
		return "", fmt.Errorf("birdc show ospf state all in %s: %w", containerName(ns), err)
	}
	return out, nil
}
