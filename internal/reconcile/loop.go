package reconcile

import (
	"context"
	"log/slog"
	"time"

	"meshnoded/internal/ensure"
)

const (
	startupDelay        = 1 * time.Second
	defaultTickInterval = 60 * time.Second
)

// Run performs the startup cleanup sweep, then loops DoSyncOnce at
// tickInterval (0 = default 60s) until ctx is cancelled. Node settings
// missing at startup is a fatal configuration error and is returned
// directly (spec §7: "process exits non-zero"); errors inside a tick are
// logged and the loop continues.
func (c *Controller) Run(ctx context.Context, tickInterval time.Duration) error {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}

	settings, err := c.Store.GetNodeSettings(ctx)
	if err != nil {
		return err
	}

	if err := c.cleanupSweep(ctx, settings.Namespace); err != nil {
		slog.Error("startup cleanup sweep failed", "err", err)
	}

	select {
	case <-time.After(startupDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		if err := c.DoSyncOnce(ctx); err != nil {
			slog.Error("reconciliation tick failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

var cleanupChains = []struct{ table, builtin string }{
	{"nat", "POSTROUTING"},
	{"nat", "PREROUTING"},
	{"raw", "PREROUTING"},
	{"mangle", "OUTPUT"},
	{"mangle", "POSTROUTING"},
	{"filter", "FORWARD"},
	{"filter", "INPUT"},
}

// cleanupSweep destroys every kernel object this agent might have left
// behind from a previous run, so the first tick's idempotent create-steps
// start from a known-empty baseline.
func (c *Controller) cleanupSweep(ctx context.Context, ns string) error {
	observed, err := c.Link.DumpAllWireguard(ctx, ns)
	if err != nil {
		return err
	}
	for ifname := range observed {
		if err := c.Link.TryDestroy(ctx, ns, ifname); err != nil {
			return err
		}
	}

	if err := c.Link.TryDestroy(ctx, "", vethHostName(ns)); err != nil {
		return err
	}

	ipt := c.iptables(ns)
	for _, cc := range cleanupChains {
		ipt.Flush(ctx, cc.table, ensure.ChainName(ns, cc.builtin))
	}
	ipt.Flush(ctx, "filter", "FORWARD")

	base, _ := ensure.TempDirs(ns)
	return c.Router.Shutdown(ctx, ns, true, base)
}
