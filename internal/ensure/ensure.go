// Package ensure is the ensure layer (component I): idempotent
// create-if-missing setup for the namespace, its iptables scaffolding,
// forwarding sysctls, temp directories, and MSS clamping. Every operation
// here must tolerate being run against state a previous tick already
// built.
package ensure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/containerd/errdefs"

	"meshnoded/internal/iptables"
	"meshnoded/internal/proc"
)

// scaffoldChain is one agent-owned chain and the builtin it is jumped
// from.
type scaffoldChain struct {
	table   string
	builtin string
}

var scaffoldChains = []scaffoldChain{
	{"nat", "POSTROUTING"},
	{"nat", "PREROUTING"},
	{"raw", "PREROUTING"},
	{"mangle", "OUTPUT"},
	{"mangle", "POSTROUTING"},
	{"filter", "FORWARD"},
	{"filter", "INPUT"},
}

// Manager drives the idempotent setup steps.
type Manager struct {
	Invoker *proc.Invoker
}

func (m *Manager) iptablesFor(ns string) *iptables.Manager {
	return &iptables.Manager{Invoker: m.Invoker, Ns: ns}
}

// Namespace creates ns if it does not already exist.
func (m *Manager) Namespace(ctx context.Context, ns string) error {
	res, err := m.Invoker.Run(ctx, proc.SudoWrap([]string{"ip", "netns", "add", ns}), nil)
	if err != nil {
		return fmt.Errorf("create namespace %s: %w", ns, err)
	}
	if res.ExitCode != 0 {
		if clsErr := proc.ClassifyStderr(res); !errdefs.IsAlreadyExists(clsErr) {
			return fmt.Errorf("create namespace %s: %w", ns, clsErr)
		}
	}
	return nil
}

// ChainName returns the agent-owned chain name for ns/builtin, e.g.
// "netA-FORWARD".
func ChainName(ns, builtin string) string {
	return ns + "-" + builtin
}

// IPTablesScaffolding creates the agent-owned chains and jump rules ns
// needs, across nat/raw/mangle/filter.
func (m *Manager) IPTablesScaffolding(ctx context.Context, ns string) error {
	ipt := m.iptablesFor(ns)
	for _, sc := range scaffoldChains {
		chain := ChainName(ns, sc.builtin)
		if err := ipt.CreateChain(ctx, sc.table, chain); err != nil {
			return fmt.Errorf("create chain %s/%s: %w", sc.table, chain, err)
		}
		if err := ipt.AppendIfMissing(ctx, sc.table, sc.builtin, []string{"-j", chain}); err != nil {
			return fmt.Errorf("jump %s/%s -> %s: %w", sc.table, sc.builtin, chain, err)
		}
	}
	return nil
}

// Forwarding enables IPv4 forwarding in both the root namespace and ns.
func (m *Manager) Forwarding(ctx context.Context, ns string) error {
	if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"sysctl", "-w", "net.ipv4.ip_forward=1"}), nil); err != nil {
		return fmt.Errorf("enable forwarding in root namespace: %w", err)
	}
	argv := proc.SudoWrap(proc.NsWrap(ns, []string{"sysctl", "-w", "net.ipv4.ip_forward=1"}))
	if _, err := m.Invoker.RunChecked(ctx, argv, nil); err != nil {
		return fmt.Errorf("enable forwarding in namespace %s: %w", ns, err)
	}
	return nil
}

// TempDirs returns (baseDir, routerDir) for ns. It does not create them;
// EnsureTempDirs does.
func TempDirs(ns string) (string, string) {
	base := filepath.Join("/tmp", "networktools-"+ns)
	return base, filepath.Join(base, "router")
}

// EnsureTempDirs creates the agent's temp-dir tree for ns.
func (m *Manager) EnsureTempDirs(ctx context.Context, ns string) (string, string, error) {
	base, router := TempDirs(ns)
	if err := os.MkdirAll(router, 0o755); err != nil {
		return "", "", fmt.Errorf("create temp dirs for %s: %w", ns, err)
	}
	return base, router, nil
}

const tcpmssTag = "#tcpmss_clamp#"

// TCPMSSClamp ensures the MSS-clamping rule is present in ns's FORWARD
// chain, so TCP sessions through tunnels with smaller MTUs don't black-hole.
func (m *Manager) TCPMSSClamp(ctx context.Context, ns string) error {
	ipt := m.iptablesFor(ns)
	chain := ChainName(ns, "FORWARD")
	ruleArgs := []string{
		"-p", "tcp", "--tcp-flags", "SYN,RST", "SYN",
		"-j", "TCPMSS", "--clamp-mss-to-pmtu",
		"-m", "comment", "--comment", tcpmssTag,
	}
	if err := ipt.AppendIfMissing(ctx, "filter", chain, ruleArgs); err != nil {
		return fmt.Errorf("ensure tcpmss clamp in %s: %w", chain, err)
	}
	return nil
}

// All runs every ensure step for ns in order, returning the temp router
// directory for callers that go on to mount it into the router container.
func (m *Manager) All(ctx context.Context, ns string) (routerDir string, err error) {
	if err := m.Namespace(ctx, ns); err != nil {
		return "", err
	}
	if err := m.IPTablesScaffolding(ctx, ns); err != nil {
		return "", err
	}
	if err := m.Forwarding(ctx, ns); err != nil {
		return "", err
	}
	_, router, err := m.EnsureTempDirs(ctx, ns)
	if err != nil {
		return "", err
	}
	if err := m.TCPMSSClamp(ctx, ns); err != nil {
		return "", err
	}
	return router, nil
}
