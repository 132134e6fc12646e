package reconcile

import (
	"context"
	"fmt"
	"strings"

	"meshnoded/internal/ensure"
	"meshnoded/internal/link"
)

// localVethTag marks every iptables rule this file authors, confined to
// the three chains the cleanup scan below purges (spec invariant 5).
const localVethTag = "#local_veth#"

func vethBaseName(ns string) string {
	return ns + "-veth"
}

func vethHostName(ns string) string {
	return vethBaseName(ns) + "0"
}

// reconcileVeth creates or destroys the namespace's exit veth pair and its
// tagged iptables rules to match the desired vethCIDR (spec step 6). An
// empty cidr means "no veth desired" (Open Question 2: empty string and
// absence are treated identically throughout).
func (c *Controller) reconcileVeth(ctx context.Context, ns, cidr string) error {
	hostName := vethHostName(ns)
	observed, err := c.Link.Exists(ctx, "", hostName)
	if err != nil {
		return fmt.Errorf("check veth presence: %w", err)
	}
	desired := cidr != ""

	switch {
	case observed && !desired:
		return c.destroyVeth(ctx, ns, hostName)
	case !observed && desired:
		return c.createVeth(ctx, ns, cidr)
	default:
		return nil
	}
}

func (c *Controller) destroyVeth(ctx context.Context, ns, hostName string) error {
	if err := c.Link.TryDestroy(ctx, "", hostName); err != nil {
		return fmt.Errorf("destroy veth %s: %w", hostName, err)
	}

	postrouting := ensure.ChainName(ns, "POSTROUTING")
	forward := ensure.ChainName(ns, "FORWARD")
	input := ensure.ChainName(ns, "INPUT")
	ipt := c.iptables(ns)

	if err := ipt.DeleteRulesByTag(ctx, "nat", postrouting, localVethTag); err != nil {
		return fmt.Errorf("purge local_veth rules in nat/%s: %w", postrouting, err)
	}
	if err := ipt.DeleteRulesByTag(ctx, "filter", forward, localVethTag); err != nil {
		return fmt.Errorf("purge local_veth rules in filter/%s: %w", forward, err)
	}
	if err := ipt.DeleteRulesByTag(ctx, "filter", input, localVethTag); err != nil {
		return fmt.Errorf("purge local_veth rules in filter/%s: %w", input, err)
	}
	return nil
}

func (c *Controller) createVeth(ctx context.Context, ns, cidr string) error {
	if err := c.Link.CreateVeth(ctx, ns, vethBaseName(ns), cidr); err != nil {
		return fmt.Errorf("create veth for %s: %w", cidr, err)
	}

	hostCIDR, _, err := link.PeerAddrs(cidr)
	if err != nil {
		return fmt.Errorf("derive veth host address: %w", err)
	}
	hostIP := strings.SplitN(hostCIDR, "/", 2)[0]

	postrouting := ensure.ChainName(ns, "POSTROUTING")
	forward := ensure.ChainName(ns, "FORWARD")
	input := ensure.ChainName(ns, "INPUT")
	ipt := c.iptables(ns)

	tagArgs := []string{"-m", "comment", "--comment", localVethTag}
	rules := []struct {
		table, chain string
		args         []string
	}{
		{"nat", postrouting, concatArgs([]string{"-s", cidr, "-d", cidr, "-j", "ACCEPT"}, tagArgs)},
		{"nat", postrouting, concatArgs([]string{"-s", cidr, "!", "-d", "224.0.0.0/4", "-j", "SNAT", "--to-source", hostIP}, tagArgs)},
		{"filter", forward, concatArgs([]string{"-s", cidr, "-j", "ACCEPT"}, tagArgs)},
		{"filter", forward, concatArgs([]string{"-d", cidr, "-j", "ACCEPT"}, tagArgs)},
		{"filter", input, concatArgs([]string{"-p", "89", "-j", "ACCEPT"}, tagArgs)},
	}
	for _, r := range rules {
		if err := ipt.AppendIfMissing(ctx, r.table, r.chain, r.args); err != nil {
			return fmt.Errorf("install local_veth rule in %s/%s: %w", r.table, r.chain, err)
		}
	}
	return nil
}

func concatArgs(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
