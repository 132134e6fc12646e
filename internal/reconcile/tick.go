package reconcile

import (
	"context"
	"fmt"

	"meshnoded/internal/controller"
	"meshnoded/internal/model"
	"meshnoded/internal/telemetry"
)

var tickPlan = telemetry.Plan{Steps: []telemetry.PlannedStep{
	{ID: "load-settings", Title: "load node settings"},
	{ID: "ensure", Title: "ensure prerequisites"},
	{ID: "key-pool", Title: "sync wireguard key pool"},
	{ID: "fetch", Title: "fetch desired state"},
	{ID: "exit-node", Title: "reconcile exit-node rule"},
	{ID: "veth", Title: "reconcile exit veth"},
	{ID: "peers", Title: "reconcile peer interfaces"},
	{ID: "routing", Title: "regenerate routing config"},
	{ID: "telemetry", Title: "report telemetry"},
}}

// DoSyncOnce runs one reconciliation tick end to end, aborting at the
// first error. Every stage is idempotent, so the next tick restarts
// cleanly from step 1 regardless of how far this one got (spec §4.L, §7).
func (c *Controller) DoSyncOnce(ctx context.Context) error {
	tick, err := telemetry.StartTick(ctx, c.Tracer, "sync", tickPlan)
	if err != nil {
		return fmt.Errorf("start tick: %w", err)
	}

	var settings model.NodeSettings
	var routerDir string
	var node controller.RemoteNodeInfo
	var peers []controller.RemotePeerInfo

	err = tick.Stage(ctx, "load-settings", func(ctx context.Context) error {
		s, err := c.Store.GetNodeSettings(ctx)
		if err != nil {
			return err
		}
		settings = s
		return nil
	})

	if err == nil {
		err = tick.Stage(ctx, "ensure", func(ctx context.Context) error {
			dir, err := c.Ensure.All(ctx, settings.Namespace)
			if err != nil {
				return err
			}
			routerDir = dir
			return nil
		})
	}

	if err == nil {
		err = tick.Stage(ctx, "key-pool", func(ctx context.Context) error {
			return c.syncKeyPool(ctx)
		})
	}

	if err == nil {
		err = tick.Stage(ctx, "fetch", func(ctx context.Context) error {
			n, ferr := c.Client.GetNodeConfig(ctx)
			if ferr != nil {
				return ferr
			}
			p, ferr := c.Client.GetNodePeers(ctx)
			if ferr != nil {
				return ferr
			}
			node, peers = n, p
			return nil
		})
	}

	if err == nil {
		err = tick.Stage(ctx, "exit-node", func(ctx context.Context) error {
			return c.reconcileExitNode(ctx, settings.Namespace, settings.EthName, node.ExitNode)
		})
	}

	if err == nil {
		err = tick.Stage(ctx, "veth", func(ctx context.Context) error {
			return c.reconcileVeth(ctx, settings.Namespace, node.VethCIDR)
		})
	}

	if err == nil {
		err = tick.Stage(ctx, "peers", func(ctx context.Context) error {
			return c.reconcilePeers(ctx, settings.Namespace, peers)
		})
	}

	if err == nil {
		err = tick.Stage(ctx, "routing", func(ctx context.Context) error {
			return c.reconcileRouting(ctx, settings.NodeID, settings.Namespace, node, peers, routerDir)
		})
	}

	if err == nil {
		err = tick.Stage(ctx, "telemetry", func(ctx context.Context) error {
			return c.reportTelemetry(ctx, settings.Namespace, peers)
		})
	}

	tick.End(err)
	return err
}
