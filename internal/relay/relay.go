// Package relay is the relay-worker manager (component G): it starts and
// stops supervised UDP-over-TLS relay processes (gost) that stand in for a
// WireGuard endpoint when the peer is only reachable through a relay.
package relay

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"meshnoded/internal/link"
	"meshnoded/internal/model"
	"meshnoded/internal/supervisor"
)

// UnderlayStore is the persistence surface relay needs from the store
// (component K); kept as an interface here so tests can fake it.
type UnderlayStore interface {
	GetLocalUnderlayState(ctx context.Context, ifname string) (model.LocalUnderlayState, bool, error)
	SetLocalUnderlayState(ctx context.Context, ifname string, st model.LocalUnderlayState) error
	DeleteLocalUnderlayState(ctx context.Context, ifname string) error
}

// Manager starts/stops relay worker units and keeps the store in sync with
// what is actually running.
type Manager struct {
	Supervisor *supervisor.Supervisor
	Link       *link.Manager
	Store      UnderlayStore
	InstallDir string // $INSTALL_DIR, expects bin/gost under it
}

// ClientConfig is the parameters for a client-mode relay worker.
type ClientConfig struct {
	ListenPort int
	DstHost    string
	DstPort    int
}

// ServerConfig is the parameters for a server-mode relay worker.
type ServerConfig struct {
	ListenPort int
}

func (m *Manager) gostBinary() string {
	return filepath.Join(m.InstallDir, "bin", "gost")
}

func unitName(ns string) string {
	return fmt.Sprintf("networktools-%s-worker-%s", ns, uuid.NewString())
}

// StartClient launches a client-mode relay worker for ns/ifname, then
// rewrites the paired WireGuard interface's peer endpoint to the local
// relay socket.
func (m *Manager) StartClient(ctx context.Context, ns, ifname string, cfg ClientConfig) error {
	unit := unitName(ns)
	argv := []string{
		m.gostBinary(),
		fmt.Sprintf("-L=udp://:%d?keepAlive=true&ttl=120", cfg.ListenPort),
		fmt.Sprintf("-F=relay+tls://%s:%d", cfg.DstHost, cfg.DstPort),
	}
	if err := m.Supervisor.Start(ctx, supervisor.RunOpts{
		UnitName:   unit,
		Argv:       argv,
		Restart:    "always",
		RestartSec: 5,
	}); err != nil {
		return fmt.Errorf("start relay client worker for %s: %w", ifname, err)
	}

	if err := m.Link.SetPeerEndpoint(ctx, ns, ifname, fmt.Sprintf("127.0.0.1:%d", cfg.ListenPort)); err != nil {
		return fmt.Errorf("rewrite wireguard endpoint for %s: %w", ifname, err)
	}

	return m.Store.SetLocalUnderlayState(ctx, ifname, model.LocalUnderlayState{
		Mode:       model.UnderlayClient,
		UnitName:   unit,
		ListenPort: cfg.ListenPort,
		ServerIP:   cfg.DstHost,
		ServerPort: cfg.DstPort,
	})
}

// StartServer launches a server-mode relay worker for ns/ifname, relaying
// into the live WireGuard listen port read from kernel state.
func (m *Manager) StartServer(ctx context.Context, ns, ifname string, cfg ServerConfig) error {
	state, err := m.Link.DumpWireguard(ctx, ns, ifname)
	if err != nil {
		return fmt.Errorf("read wireguard listen port for %s: %w", ifname, err)
	}

	unit := unitName(ns)
	argv := []string{
		m.gostBinary(),
		fmt.Sprintf("-L=relay+tls://:%d/127.0.0.1:%d", cfg.ListenPort, state.ListenPort),
	}
	if err := m.Supervisor.Start(ctx, supervisor.RunOpts{
		UnitName:   unit,
		Argv:       argv,
		Restart:    "always",
		RestartSec: 5,
	}); err != nil {
		return fmt.Errorf("start relay server worker for %s: %w", ifname, err)
	}

	return m.Store.SetLocalUnderlayState(ctx, ifname, model.LocalUnderlayState{
		Mode:       model.UnderlayServer,
		UnitName:   unit,
		ListenPort: cfg.ListenPort,
	})
}

// Stop stops the relay worker for ifname (best-effort) and removes its
// store record. Calling Stop for an ifname with no recorded worker is a
// no-op.
func (m *Manager) Stop(ctx context.Context, ifname string) error {
	st, ok, err := m.Store.GetLocalUnderlayState(ctx, ifname)
	if err != nil {
		return fmt.Errorf("load underlay state for %s: %w", ifname, err)
	}
	if !ok {
		return nil
	}
	if err := m.Supervisor.Stop(ctx, st.UnitName); err != nil {
		return fmt.Errorf("stop relay worker %s: %w", st.UnitName, err)
	}
	return m.Store.DeleteLocalUnderlayState(ctx, ifname)
}
