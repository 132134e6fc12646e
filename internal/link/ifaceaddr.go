package link

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meshnoded/internal/model"
)

type ipAddrInfo struct {
	Local     string `json:"local"`
	PrefixLen int    `json:"prefixlen"`
	Family    string `json:"family"`
}

type ipLinkJSON struct {
	IfName   string       `json:"ifname"`
	MTU      int          `json:"mtu"`
	AddrInfo []ipAddrInfo `json:"addr_info"`
}

// GetInterfaceState parses `ip -j addr show <name>` in ns. On JSON parse
// failure it retries once after a 3s sleep before giving up.
func (m *Manager) GetInterfaceState(ctx context.Context, ns, name string) (model.ObservedInterfaceState, error) {
	st, err := m.getInterfaceStateOnce(ctx, ns, name)
	if err == nil {
		return st, nil
	}

	select {
	case <-time.After(retryDelay):
	case <-ctx.Done():
		return model.ObservedInterfaceState{}, ctx.Err()
	}
	return m.getInterfaceStateOnce(ctx, ns, name)
}

func (m *Manager) getInterfaceStateOnce(ctx context.Context, ns, name string) (model.ObservedInterfaceState, error) {
	out, err := m.Invoker.RunChecked(ctx, m.ip(ns, "-j", "addr", "show", name), nil)
	if err != nil {
		return model.ObservedInterfaceState{}, err
	}

	var links []ipLinkJSON
	if err := json.Unmarshal([]byte(out), &links); err != nil {
		return model.ObservedInterfaceState{}, fmt.Errorf("parse ip -j addr show %s: %w", name, err)
	}
	if len(links) == 0 {
		return model.ObservedInterfaceState{}, fmt.Errorf("interface %s not found", name)
	}

	l := links[0]
	st := model.ObservedInterfaceState{Name: l.IfName, MTU: l.MTU}
	for _, a := range l.AddrInfo {
		if a.Family == "inet" {
			st.Addr = a.Local
			st.PrefixLen = a.PrefixLen
			break
		}
	}
	return st, nil
}
