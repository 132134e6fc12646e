package reconcile

import (
	"context"
	"fmt"

	"meshnoded/internal/controller"
	"meshnoded/internal/model"
	"meshnoded/internal/ospf"
)

// reportTelemetry runs a fresh ping pass over every peer interface and
// reports link telemetry, then — if the router container is up — parses
// its live OSPF LSDB and reports router telemetry (spec step 10).
func (c *Controller) reportTelemetry(ctx context.Context, ns string, peers []controller.RemotePeerInfo) error {
	ifnames := make([]string, 0, len(peers))
	byIfname := make(map[string]controller.RemotePeerInfo, len(peers))
	for _, peer := range peers {
		ifname := peerIfname(ns, peer.ID)
		ifnames = append(ifnames, ifname)
		byIfname[ifname] = peer
	}
	measured := c.Ping.Measure(ctx, ns, ifnames)

	observed, err := c.Link.DumpAllWireguard(ctx, ns)
	if err != nil {
		return fmt.Errorf("dump wireguard interfaces for telemetry: %w", err)
	}

	var links []controller.LinkTelemetry
	for ifname, peer := range byIfname {
		state, ok := observed[ifname]
		if !ok {
			continue
		}
		ping := -1.0
		if m, ok := measured[ifname]; ok && m != nil {
			ping = *m
		}
		var rx, tx int64
		if peerState, ok := state.Peers[peer.PeerPublicKey]; ok {
			rx, tx = peerState.RxBytes, peerState.TxBytes
		}
		links = append(links, controller.LinkTelemetry{ID: peer.ID, Ping: ping, Rx: rx, Tx: tx})
	}
	if err := c.Client.ReportLinkTelemetry(ctx, links); err != nil {
		return fmt.Errorf("report link telemetry: %w", err)
	}

	info, ok, err := c.Router.Inspect(ctx, ns)
	if err != nil {
		return fmt.Errorf("inspect router container for telemetry: %w", err)
	}
	if !ok || info.Status != "running" {
		return nil
	}

	raw, err := c.Router.ShowOSPFState(ctx, ns)
	if err != nil {
		return fmt.Errorf("read ospf state for telemetry: %w", err)
	}
	parsed := ospf.Parse(raw)

	areaRouters := make(map[string][]controller.RouterTelemetryEntry, len(parsed.AreaRouters))
	for area, routers := range parsed.AreaRouters {
		areaRouters[area] = routersToWire(routers)
	}
	otherASBRs := routersToWire(parsed.OtherASBRs)

	if err := c.Client.ReportRouterTelemetry(ctx, areaRouters, otherASBRs); err != nil {
		return fmt.Errorf("report router telemetry: %w", err)
	}
	return nil
}

func routersToWire(routers []model.RouterInfo) []controller.RouterTelemetryEntry {
	out := make([]controller.RouterTelemetryEntry, 0, len(routers))
	for _, r := range routers {
		out = append(out, controller.RouterTelemetryEntry{
			RouterID:      r.RouterID,
			Distance:      r.Distance,
			VLinks:        metricEntriesToWire(r.VLinks),
			Routers:       metricEntriesToWire(r.Routers),
			StubNets:      metricEntriesToWire(r.StubNets),
			XNetworks:     metricEntriesToWire(r.XNetworks),
			XRouters:      metricEntriesToWire(r.XRouters),
			Externals:     externalEntriesToWire(r.Externals),
			NSSAExternals: externalEntriesToWire(r.NSSAExternals),
		})
	}
	return out
}

func metricEntriesToWire(entries []model.MetricEntry) []controller.MetricEntryWire {
	if len(entries) == 0 {
		return nil
	}
	out := make([]controller.MetricEntryWire, 0, len(entries))
	for _, e := range entries {
		out = append(out, controller.MetricEntryWire{Network: e.Network, Metric: e.Metric})
	}
	return out
}

func externalEntriesToWire(entries []model.ExternalEntry) []controller.ExternalEntryWire {
	if len(entries) == 0 {
		return nil
	}
	out := make([]controller.ExternalEntryWire, 0, len(entries))
	for _, e := range entries {
		out = append(out, controller.ExternalEntryWire{
			Network:    e.Network,
			Metric:     e.Metric,
			MetricType: e.MetricType,
			Via:        e.Via,
			Tag:        e.Tag,
		})
	}
	return out
}
