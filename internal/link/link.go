// Package link is the link manager (component C): it creates, destroys,
// and inspects WireGuard, veth, dummy, and GRE devices by shelling `ip` and
// `wg` and parsing their textual/JSON output, namespace- and
// privilege-wrapped through the process invoker.
package link

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"meshnoded/internal/proc"
)

const defaultMTU = 1420

// Manager drives link lifecycle through `ip`/`wg`.
type Manager struct {
	Invoker *proc.Invoker
}

func (m *Manager) ip(ns string, args ...string) []string {
	return proc.SudoWrap(proc.NsWrap(ns, append([]string{"ip"}, args...)))
}

func (m *Manager) wg(ns string, args ...string) []string {
	return proc.SudoWrap(proc.NsWrap(ns, append([]string{"wg"}, args...)))
}

// CreateWireguard adds a `type wireguard` link in the root namespace, moves
// it into ns, assigns addrCIDR, and sets mtu.
func (m *Manager) CreateWireguard(ctx context.Context, ns, name, addrCIDR string, mtu int) error {
	if mtu <= 0 {
		mtu = defaultMTU
	}
	if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"ip", "link", "add", name, "type", "wireguard"}), nil); err != nil {
		return fmt.Errorf("create wireguard link %s: %w", name, err)
	}
	if ns != "" {
		if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"ip", "link", "set", name, "netns", ns}), nil); err != nil {
			return fmt.Errorf("move %s into netns %s: %w", name, ns, err)
		}
	}
	if _, err := m.Invoker.RunChecked(ctx, m.ip(ns, "addr", "add", addrCIDR, "dev", name), nil); err != nil {
		return fmt.Errorf("assign address %s to %s: %w", addrCIDR, name, err)
	}
	if _, err := m.Invoker.RunChecked(ctx, m.ip(ns, "link", "set", name, "mtu", fmt.Sprintf("%d", mtu)), nil); err != nil {
		return fmt.Errorf("set mtu on %s: %w", name, err)
	}
	return nil
}

// AssignConfig is the desired configuration for AssignWireguard.
type AssignConfig struct {
	PrivateKey   string
	ListenPort   int // 0 = dynamic
	PeerPublic   string
	Endpoint     string // host:port or [v6]:port, pre-resolution
	Keepalive    int    // seconds, 0 = disabled
	AllowedIPs   []string
}

// AssignWireguard writes cfg.PrivateKey to a one-shot temp file consumed by
// `wg set ... private-key <file>`, resolving Endpoint to a literal IP
// (IPv4 preferred, IPv6 bracketed) first. The temp file is always removed,
// on every return path.
func (m *Manager) AssignWireguard(ctx context.Context, ns, name string, cfg AssignConfig) error {
	if err := ValidateKey(cfg.PrivateKey); err != nil {
		return fmt.Errorf("private key: %w", err)
	}
	if cfg.PeerPublic != "" {
		if err := ValidateKey(cfg.PeerPublic); err != nil {
			return fmt.Errorf("peer public key: %w", err)
		}
	}

	keyFile, err := writeTempKeyFile(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("stage private key: %w", err)
	}
	defer os.Remove(keyFile)

	args := []string{"set", name, "private-key", keyFile}
	if cfg.ListenPort != 0 {
		args = append(args, "listen-port", fmt.Sprintf("%d", cfg.ListenPort))
	}
	if cfg.PeerPublic != "" {
		args = append(args, "peer", cfg.PeerPublic)
		if cfg.Endpoint != "" {
			ep, err := resolveEndpoint(cfg.Endpoint)
			if err != nil {
				return fmt.Errorf("resolve endpoint %q: %w", cfg.Endpoint, err)
			}
			args = append(args, "endpoint", ep)
		}
		if cfg.Keepalive > 0 {
			args = append(args, "persistent-keepalive", fmt.Sprintf("%d", cfg.Keepalive))
		}
		if len(cfg.AllowedIPs) > 0 {
			args = append(args, "allowed-ips", strings.Join(cfg.AllowedIPs, ","))
		}
	}

	if _, err := m.Invoker.RunChecked(ctx, m.wg(ns, args...), nil); err != nil {
		return fmt.Errorf("wg set %s: %w", name, err)
	}
	return nil
}

// SetPeerKeepalive updates only the persistent-keepalive of an existing peer.
func (m *Manager) SetPeerKeepalive(ctx context.Context, ns, name, peerPublic string, keepaliveSec int) error {
	_, err := m.Invoker.RunChecked(ctx, m.wg(ns, "set", name, "peer", peerPublic, "persistent-keepalive", fmt.Sprintf("%d", keepaliveSec)), nil)
	return err
}

// SetPeerEndpoint rewrites the endpoint of name's sole peer, used when a
// relay worker takes over the path and the peer must now dial localhost.
func (m *Manager) SetPeerEndpoint(ctx context.Context, ns, name, endpoint string) error {
	state, err := m.DumpWireguard(ctx, ns, name)
	if err != nil {
		return fmt.Errorf("read peer for %s: %w", name, err)
	}
	for peerPublic := range state.Peers {
		_, err := m.Invoker.RunChecked(ctx, m.wg(ns, "set", name, "peer", peerPublic, "endpoint", endpoint), nil)
		if err != nil {
			return fmt.Errorf("set endpoint on %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("no peer configured on %s", name)
}

// UpWireguard brings the interface administratively up.
func (m *Manager) UpWireguard(ctx context.Context, ns, name string) error {
	_, err := m.Invoker.RunChecked(ctx, m.ip(ns, "link", "set", name, "up"), nil)
	return err
}

// CreateVeth creates a veth pair {baseName}0 (host side) <-> {baseName}1
// (namespace side), assigns host=network+1/30 and ns=network+2/30 from
// cidr, and brings both ends up.
func (m *Manager) CreateVeth(ctx context.Context, ns, baseName, cidr string) error {
	hostName := baseName + "0"
	nsName := baseName + "1"

	hostCIDR, nsCIDR, err := PeerAddrs(cidr)
	if err != nil {
		return err
	}

	if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"ip", "link", "add", hostName, "type", "veth", "peer", "name", nsName}), nil); err != nil {
		return fmt.Errorf("create veth pair %s/%s: %w", hostName, nsName, err)
	}
	if ns != "" {
		if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"ip", "link", "set", nsName, "netns", ns}), nil); err != nil {
			return fmt.Errorf("move %s into netns %s: %w", nsName, ns, err)
		}
	}
	if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"ip", "addr", "add", hostCIDR, "dev", hostName}), nil); err != nil {
		return fmt.Errorf("assign %s to %s: %w", hostCIDR, hostName, err)
	}
	if _, err := m.Invoker.RunChecked(ctx, m.ip(ns, "addr", "add", nsCIDR, "dev", nsName), nil); err != nil {
		return fmt.Errorf("assign %s to %s: %w", nsCIDR, nsName, err)
	}
	if _, err := m.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"ip", "link", "set", hostName, "up"}), nil); err != nil {
		return fmt.Errorf("bring up %s: %w", hostName, err)
	}
	if _, err := m.Invoker.RunChecked(ctx, m.ip(ns, "link", "set", nsName, "up"), nil); err != nil {
		return fmt.Errorf("bring up %s: %w", nsName, err)
	}
	return nil
}

// Exists reports whether an interface by this name is present in ns.
func (m *Manager) Exists(ctx context.Context, ns, name string) (bool, error) {
	res, err := m.Invoker.Run(ctx, m.ip(ns, "link", "show", name), nil)
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

// TryDestroy deletes name in ns iff it is present.
func (m *Manager) TryDestroy(ctx context.Context, ns, name string) error {
	exists, err := m.Exists(ctx, ns, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	_, err = m.Invoker.RunChecked(ctx, m.ip(ns, "link", "del", name), nil)
	return err
}

func writeTempKeyFile(private string) (string, error) {
	path := fmt.Sprintf("/tmp/meshnoded-key-%s", uuid.NewString())
	if err := os.WriteFile(path, []byte(private+"\n"), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// resolveEndpoint turns a host:port (or [v6]:port) endpoint into a literal
// IP:port, preferring IPv4, wrapping IPv6 in brackets.
func resolveEndpoint(endpoint string) (string, error) {
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", err
	}
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return net.JoinHostPort(v4.String(), port), nil
		}
		return net.JoinHostPort(ip.String(), port), nil
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		return "", err
	}
	var v4, v6 string
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}
		if ip.To4() != nil && v4 == "" {
			v4 = ip.String()
		} else if ip.To4() == nil && v6 == "" {
			v6 = ip.String()
		}
	}
	if v4 != "" {
		return net.JoinHostPort(v4, port), nil
	}
	if v6 != "" {
		return net.JoinHostPort(v6, port), nil
	}
	return "", fmt.Errorf("no addresses found for host %q", host)
}

// retryDelay is the pause between a failed JSON parse of `ip -j` output and
// the single retry attempt (spec: "retries once after 3s sleep").
var retryDelay = 3 * time.Second
