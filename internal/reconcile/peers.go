package reconcile

import (
	"context"
	"fmt"
	"strconv"

	"meshnoded/internal/check"
	"meshnoded/internal/controller"
	"meshnoded/internal/ensure"
	"meshnoded/internal/link"
)

func peerIfname(ns string, id int64) string {
	return ns + "-" + strconv.FormatInt(id, 10)
}

func peerTag(ifname string) string {
	return "#peer_" + ifname + "#"
}

// reconcilePeers drives every remote peer's WireGuard interface and
// underlay relay toward the desired state, then destroys any observed
// interface not claimed by the current peer set (spec step 7, invariant 1).
func (c *Controller) reconcilePeers(ctx context.Context, ns string, peers []controller.RemotePeerInfo) error {
	keyPairs, err := c.Store.GetAllWireGuardKeys(ctx)
	if err != nil {
		return fmt.Errorf("load wireguard key pool: %w", err)
	}
	privateByPublic := make(map[string]string, len(keyPairs))
	for _, p := range keyPairs {
		privateByPublic[p.Public] = p.Private
	}

	observed, err := c.Link.DumpAllWireguard(ctx, ns)
	if err != nil {
		return fmt.Errorf("dump wireguard interfaces: %w", err)
	}

	claimed := make(map[string]bool, len(peers))
	for _, peer := range peers {
		ifname := peerIfname(ns, peer.ID)
		claimed[ifname] = true

		private, ok := privateByPublic[peer.PublicKey]
		if !ok {
			check.Assertf(false, "no local private key for declared peer public key %s", peer.PublicKey)
			return fmt.Errorf("no local private key for peer %d public key %s", peer.ID, peer.PublicKey)
		}

		if _, exists := observed[ifname]; !exists {
			if err := c.createPeerInterface(ctx, ns, ifname, private, peer); err != nil {
				return err
			}
		} else if err := c.syncPeerKeepalive(ctx, ns, ifname, peer); err != nil {
			return err
		}

		if err := c.reconcileUnderlay(ctx, ns, ifname, peer); err != nil {
			return err
		}
	}

	for ifname := range observed {
		if claimed[ifname] {
			continue
		}
		if err := c.destroyStalePeer(ctx, ns, ifname); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) createPeerInterface(ctx context.Context, ns, ifname, private string, peer controller.RemotePeerInfo) error {
	if err := c.Link.CreateWireguard(ctx, ns, ifname, peer.AddressCIDR, peer.MTU); err != nil {
		return fmt.Errorf("create wireguard interface %s: %w", ifname, err)
	}

	cfg := link.AssignConfig{
		PrivateKey: private,
		ListenPort: peer.ListenPort,
		PeerPublic: peer.PeerPublicKey,
		Endpoint:   peer.Endpoint,
		Keepalive:  peer.Keepalive,
		AllowedIPs: []string{"0.0.0.0/0"},
	}
	if err := c.Link.AssignWireguard(ctx, ns, ifname, cfg); err != nil {
		return fmt.Errorf("assign wireguard interface %s: %w", ifname, err)
	}
	if err := c.Link.UpWireguard(ctx, ns, ifname); err != nil {
		return fmt.Errorf("bring up wireguard interface %s: %w", ifname, err)
	}

	if peer.ListenPort != 0 {
		ipt := c.iptables(ns)
		chain := ensure.ChainName(ns, "INPUT")
		ruleArgs := []string{
			"-p", "udp", "--dport", strconv.Itoa(peer.ListenPort), "-j", "ACCEPT",
			"-m", "comment", "--comment", peerTag(ifname),
		}
		if err := ipt.AppendIfMissing(ctx, "filter", chain, ruleArgs); err != nil {
			return fmt.Errorf("open listen port for %s: %w", ifname, err)
		}
	}
	return nil
}

// syncPeerKeepalive issues `wg set peer ... persistent-keepalive` only when
// it differs from the kernel's current value, and only when no underlay is
// desired — Open Question 4 is resolved here by skipping the sync entirely
// whenever the peer declares an underlay.
func (c *Controller) syncPeerKeepalive(ctx context.Context, ns, ifname string, peer controller.RemotePeerInfo) error {
	if peer.Extra != nil && peer.Extra.Underlay != nil {
		return nil
	}
	state, err := c.Link.DumpWireguard(ctx, ns, ifname)
	if err != nil {
		return fmt.Errorf("read wireguard state for %s: %w", ifname, err)
	}
	current, ok := state.Peers[peer.PeerPublicKey]
	if !ok || current.KeepaliveSec == peer.Keepalive {
		return nil
	}
	if err := c.Link.SetPeerKeepalive(ctx, ns, ifname, peer.PeerPublicKey, peer.Keepalive); err != nil {
		return fmt.Errorf("sync keepalive for %s: %w", ifname, err)
	}
	return nil
}

func (c *Controller) destroyStalePeer(ctx context.Context, ns, ifname string) error {
	if err := c.Link.TryDestroy(ctx, ns, ifname); err != nil {
		return fmt.Errorf("destroy stale peer interface %s: %w", ifname, err)
	}
	if err := c.Relay.Stop(ctx, ifname); err != nil {
		return fmt.Errorf("stop stale underlay worker for %s: %w", ifname, err)
	}
	chain := ensure.ChainName(ns, "INPUT")
	if err := c.iptables(ns).DeleteRulesByTag(ctx, "filter", chain, peerTag(ifname)); err != nil {
		return fmt.Errorf("purge rules for stale peer %s: %w", ifname, err)
	}
	return nil
}
