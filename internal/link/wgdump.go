package link

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"meshnoded/internal/model"
)

// DumpAllWireguard runs `wg show all dump` in ns and parses its
// tab-separated output into one ObservedWireGuardState per interface.
//
// Per-interface first line (5 fields incl. interface name):
//
//	iface  private-key  public-key  listen-port  fwmark
//
// Subsequent lines for that interface (9 fields, peers):
//
//	iface  public-key  preshared-key  endpoint  allowed-ips  latest-handshake  rx  tx  keepalive
func (m *Manager) DumpAllWireguard(ctx context.Context, ns string) (map[string]model.ObservedWireGuardState, error) {
	out, err := m.Invoker.RunChecked(ctx, m.wg(ns, "show", "all", "dump"), nil)
	if err != nil {
		return nil, fmt.Errorf("wg show all dump: %w", err)
	}
	return parseAllDump(out), nil
}

// DumpWireguard returns the single-interface variant for name: the first
// line has 4 fields (no leading interface column), subsequent lines are
// peers with 8 fields.
func (m *Manager) DumpWireguard(ctx context.Context, ns, name string) (model.ObservedWireGuardState, error) {
	out, err := m.Invoker.RunChecked(ctx, m.wg(ns, "show", name, "dump"), nil)
	if err != nil {
		return model.ObservedWireGuardState{}, fmt.Errorf("wg show %s dump: %w", name, err)
	}
	return parseSingleDump(name, out), nil
}

func parseAllDump(out string) map[string]model.ObservedWireGuardState {
	states := make(map[string]model.ObservedWireGuardState)
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		f := strings.Split(line, "\t")
		iface := f[0]
		st, ok := states[iface]
		if !ok {
			st = model.ObservedWireGuardState{Interface: iface, Peers: map[string]model.ObservedWireGuardPeer{}}
		}
		switch len(f) {
		case 5:
			st.PrivateKey = noneEmpty(f[1])
			st.PublicKey = noneEmpty(f[2])
			st.ListenPort, _ = strconv.Atoi(f[3])
			st.FwMark = parseFwMark(f[4])
		case 9:
			peer := parsePeerFields(f[1], f[2], f[3], f[4], f[5], f[6], f[7], f[8])
			st.Peers[peer.PublicKey] = peer
		}
		states[iface] = st
	}
	return states
}

func parseSingleDump(name, out string) model.ObservedWireGuardState {
	st := model.ObservedWireGuardState{Interface: name, Peers: map[string]model.ObservedWireGuardPeer{}}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		f := strings.Split(line, "\t")
		if i == 0 && len(f) == 4 {
			st.PrivateKey = noneEmpty(f[0])
			st.PublicKey = noneEmpty(f[1])
			st.ListenPort, _ = strconv.Atoi(f[2])
			st.FwMark = parseFwMark(f[3])
			continue
		}
		if len(f) == 8 {
			peer := parsePeerFields(f[0], f[1], f[2], f[3], f[4], f[5], f[6], f[7])
			st.Peers[peer.PublicKey] = peer
		}
	}
	return st
}

func parsePeerFields(pub, psk, endpoint, allowedIPs, handshake, rx, tx, keepalive string) model.ObservedWireGuardPeer {
	p := model.ObservedWireGuardPeer{
		PublicKey:    pub,
		PresharedKey: noneEmpty(psk),
		Endpoint:     noneEmpty(endpoint),
	}
	if allowedIPs != "" && allowedIPs != "(none)" {
		p.AllowedIPs = strings.Split(allowedIPs, ",")
	}
	if hs, err := strconv.ParseInt(handshake, 10, 64); err == nil && hs > 0 {
		p.LatestHandshake = time.Unix(hs, 0)
	}
	p.RxBytes, _ = strconv.ParseInt(rx, 10, 64)
	p.TxBytes, _ = strconv.ParseInt(tx, 10, 64)
	if keepalive != "off" {
		p.KeepaliveSec, _ = strconv.Atoi(keepalive)
	}
	return p
}

func noneEmpty(s string) string {
	if s == "(none)" || s == "off" {
		return ""
	}
	return s
}

func parseFwMark(s string) int {
	if s == "off" {
		return 0
	}
	if strings.HasPrefix(s, "0x") {
		n, _ := strconv.ParseInt(strings.TrimPrefix(s, "0x"), 16, 64)
		return int(n)
	}
	// fwmark is also reported in decimal by some wg versions.
	dec, _ := strconv.Atoi(s)
	return dec
}
