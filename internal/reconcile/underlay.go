package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"meshnoded/internal/controller"
	"meshnoded/internal/model"
	"meshnoded/internal/relay"
)

// reconcileUnderlay drives the relay worker paired with ifname toward the
// peer's declared underlay request, if any (spec step 8, four-state
// machine over (local, remote) in {(∅,∅), (∅,set), (set,∅), (set,set)}).
func (c *Controller) reconcileUnderlay(ctx context.Context, ns, ifname string, peer controller.RemotePeerInfo) error {
	local, ok, err := c.Store.GetLocalUnderlayState(ctx, ifname)
	if err != nil {
		return fmt.Errorf("load underlay state for %s: %w", ifname, err)
	}

	var desired *controller.PeerExtraUnderlay
	if peer.Extra != nil {
		desired = peer.Extra.Underlay
	}

	switch {
	case !ok && desired == nil:
		return nil
	case !ok && desired != nil:
		return c.createUnderlay(ctx, ns, ifname, peer, *desired)
	case ok && desired == nil:
		return c.Relay.Stop(ctx, ifname)
	default:
		if !underlayNeedsRecreate(local, *desired) {
			return nil
		}
		if err := c.Relay.Stop(ctx, ifname); err != nil {
			return fmt.Errorf("stop underlay worker for %s before recreate: %w", ifname, err)
		}
		return c.createUnderlay(ctx, ns, ifname, peer, *desired)
	}
}

// underlayWireConfig is the shape of extra.underlay.config the controller
// sends over the wire.
type underlayWireConfig struct {
	ListenPort int    `json:"listenPort"`
	ServerAddr string `json:"serverAddr"`
	ServerPort int    `json:"serverPort"`
}

func decodeUnderlayConfig(raw json.RawMessage) underlayWireConfig {
	var cfg underlayWireConfig
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &cfg)
	}
	return cfg
}

// underlayNeedsRecreate implements the (set,set) transition rule: recreate
// iff mode changed, relevant ports changed, or (client mode only) a
// non-empty server_addr changed.
func underlayNeedsRecreate(local model.LocalUnderlayState, desired controller.PeerExtraUnderlay) bool {
	cfg := decodeUnderlayConfig(desired.Config)
	wantsClient := desired.Provider == controller.ProviderGostRelayClient

	if wantsClient && local.Mode != model.UnderlayClient {
		return true
	}
	if !wantsClient && local.Mode != model.UnderlayServer {
		return true
	}
	if cfg.ListenPort != 0 && cfg.ListenPort != local.ListenPort {
		return true
	}
	if wantsClient && cfg.ServerPort != 0 && cfg.ServerPort != local.ServerPort {
		return true
	}
	if wantsClient && cfg.ServerAddr != "" && cfg.ServerAddr != local.ServerIP {
		return true
	}
	return false
}

func (c *Controller) createUnderlay(ctx context.Context, ns, ifname string, peer controller.RemotePeerInfo, desired controller.PeerExtraUnderlay) error {
	cfg := decodeUnderlayConfig(desired.Config)
	if cfg.ListenPort == 0 {
		return fmt.Errorf("underlay config for %s has no listenPort", ifname)
	}

	switch desired.Provider {
	case controller.ProviderGostRelayClient:
		host := cfg.ServerAddr
		if host == "" {
			h, _, err := net.SplitHostPort(peer.Endpoint)
			if err != nil {
				return fmt.Errorf("derive relay server host from endpoint %q: %w", peer.Endpoint, err)
			}
			resolved, err := resolveHostIPv4First(ctx, h)
			if err != nil {
				return fmt.Errorf("resolve relay server host %q: %w", h, err)
			}
			host = resolved
		}
		return c.Relay.StartClient(ctx, ns, ifname, relay.ClientConfig{
			ListenPort: cfg.ListenPort,
			DstHost:    host,
			DstPort:    cfg.ServerPort,
		})
	case controller.ProviderGostRelayServer:
		return c.Relay.StartServer(ctx, ns, ifname, relay.ServerConfig{ListenPort: cfg.ListenPort})
	default:
		return fmt.Errorf("unknown underlay provider %q for %s", desired.Provider, ifname)
	}
}
