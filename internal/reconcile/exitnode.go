package reconcile

import (
	"context"
	"fmt"

	"meshnoded/internal/ensure"
)

// reconcileExitNode appends or deletes the MASQUERADE rule in the agent's
// POSTROUTING chain to match the remote's desired exitNode flag (spec
// step 5).
func (c *Controller) reconcileExitNode(ctx context.Context, ns, eth string, exitNode bool) error {
	ipt := c.iptables(ns)
	chain := ensure.ChainName(ns, "POSTROUTING")
	ruleArgs := []string{"-o", eth, "-j", "MASQUERADE"}

	if exitNode {
		if err := ipt.AppendIfMissing(ctx, "nat", chain, ruleArgs); err != nil {
			return fmt.Errorf("append exit-node masquerade rule: %w", err)
		}
		return nil
	}
	if err := ipt.DeleteIfPresent(ctx, "nat", chain, ruleArgs); err != nil {
		return fmt.Errorf("delete exit-node masquerade rule: %w", err)
	}
	return nil
}
