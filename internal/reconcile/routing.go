package reconcile

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/google/uuid"

	"meshnoded/internal/birdconf"
	"meshnoded/internal/check"
	"meshnoded/internal/controller"
	"meshnoded/internal/proc"
)

const (
	ospfAreaZero  = "0"
	bfdIntervalMs = 1000
	bfdIdleMs     = 5000
	bfdMultiplier = 5
)

// reconcileRouting recomputes OSPF link costs from a fresh ping pass,
// renders the routing-daemon configuration, writes it atomically into the
// container bind mount, and reloads the container (spec step 9).
func (c *Controller) reconcileRouting(ctx context.Context, nodeID int64, ns string, node controller.RemoteNodeInfo, peers []controller.RemotePeerInfo, routerDir string) error {
	ifnames := make([]string, 0, len(peers))
	for _, peer := range peers {
		ifnames = append(ifnames, peerIfname(ns, peer.ID))
	}
	measured := c.Ping.Measure(ctx, ns, ifnames)

	localInterfaceCIDRs := make([]string, 0, len(peers))
	ospfIfaces := make(map[string]birdconf.OSPFIfaceConfig, len(peers))
	bfdIfaces := make(map[string]birdconf.BFDIfaceConfig, len(peers))
	directIfaces := make([]string, 0, len(peers))

	for _, peer := range peers {
		ifname := peerIfname(ns, peer.ID)
		_, ipnet, err := net.ParseCIDR(peer.AddressCIDR)
		if err != nil {
			return fmt.Errorf("parse address CIDR for peer %d: %w", peer.ID, err)
		}
		ones, bits := ipnet.Mask.Size()
		if ones == bits {
			check.Assertf(false, "peer %d address CIDR %s is a /32", peer.ID, peer.AddressCIDR)
			return fmt.Errorf("peer %d address CIDR %s must not be /32", peer.ID, peer.AddressCIDR)
		}
		localInterfaceCIDRs = append(localInterfaceCIDRs, ipnet.String())
		directIfaces = append(directIfaces, ifname)

		input := peerCostInput{}
		auth := ""
		if peer.Extra != nil && peer.Extra.OSPF != nil {
			input = peerCostInput{baseCost: peer.Extra.OSPF.Cost, offset: peer.Extra.OSPF.Offset}
			auth = peer.Extra.OSPF.Auth
		}
		cost := c.peerCost(input, measured, ifname)

		ospfIfaces[ifname] = birdconf.OSPFIfaceConfig{Cost: &cost, Type: "ptp", Auth: auth}
		bfdIfaces[ifname] = birdconf.BFDIfaceConfig{
			IntervalMs: intPtr(bfdIntervalMs),
			IdleMs:     intPtr(bfdIdleMs),
			Multiplier: intPtr(bfdMultiplier),
		}
	}

	areaConfig := map[string]map[string]birdconf.OSPFIfaceConfig{ospfAreaZero: ospfIfaces}
	if node.VethCIDR != "" && node.OSPF != nil {
		vethIface := vethBaseName(ns) + "1"
		directIfaces = append(directIfaces, vethIface)
		area := areaConfig[node.OSPF.Area]
		if area == nil {
			area = map[string]birdconf.OSPFIfaceConfig{}
			areaConfig[node.OSPF.Area] = area
		}
		cost := node.OSPF.Cost
		area[vethIface] = birdconf.OSPFIfaceConfig{Cost: &cost, Auth: node.OSPF.Auth}
	}

	rendered := birdconf.Render(birdconf.Input{
		RouterID:               syntheticRouterID(nodeID),
		DirectInterfaceNames:   directIfaces,
		OSPFImportExcludeCIDRs: localInterfaceCIDRs,
		OSPFAreaConfig:         areaConfig,
		BFDConfig:              bfdIfaces,
	})

	if err := c.writeRouterConfigAtomic(ctx, routerDir, rendered); err != nil {
		return err
	}

	if err := c.ensureRouterRunning(ctx, ns, routerDir); err != nil {
		return err
	}
	if err := c.Router.Reload(ctx, ns); err != nil {
		return fmt.Errorf("reload router container: %w", err)
	}
	return nil
}

// writeRouterConfigAtomic renders to a uniquely named temp file, then
// privileged-moves it into place so the router container never observes a
// partially written bird.conf.
func (c *Controller) writeRouterConfigAtomic(ctx context.Context, routerDir, rendered string) error {
	tmpPath := "/tmp/" + uuid.NewString()
	if err := os.WriteFile(tmpPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("stage router config: %w", err)
	}
	dest := routerDir + "/bird.conf"
	if _, err := c.Invoker.RunChecked(ctx, proc.SudoWrap([]string{"mv", tmpPath, dest}), nil); err != nil {
		return fmt.Errorf("move router config into place: %w", err)
	}
	return nil
}

func (c *Controller) ensureRouterRunning(ctx context.Context, ns, routerDir string) error {
	info, ok, err := c.Router.Inspect(ctx, ns)
	if err != nil {
		return fmt.Errorf("inspect router container: %w", err)
	}
	if ok && info.Status == "running" {
		return nil
	}
	if _, err := c.Router.Start(ctx, ns, routerDir); err != nil {
		return fmt.Errorf("start router container: %w", err)
	}
	return nil
}

// syntheticRouterID derives a stable, synthetic dotted-quad OSPF router ID
// from the node's cluster-assigned integer ID — a decision made because
// the node has no natural IPv4 address of its own to use as a router ID.
func syntheticRouterID(nodeID int64) string {
	u := uint32(nodeID)
	return fmt.Sprintf("%d.%d.%d.%d", byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

func intPtr(v int) *int { return &v }
