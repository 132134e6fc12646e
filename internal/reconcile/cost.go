package reconcile

import "math"

const (
	minOSPFCost = 1
	maxOSPFCost = 65535
)

// clampCost computes floor(base + offset) clamped to [1, 65535] (spec §8
// "cost clamp").
func clampCost(base float64, offset int) int {
	v := int(math.Floor(base + float64(offset)))
	if v < minOSPFCost {
		return minOSPFCost
	}
	if v > maxOSPFCost {
		return maxOSPFCost
	}
	return v
}

// peerCost resolves the OSPF cost for one peer interface: a measured ping
// sample overrides the declared base cost (default 1000), then offset is
// applied and the result clamped.
func (c *Controller) peerCost(peer peerCostInput, measured map[string]*float64, ifname string) int {
	base := 1000.0
	offset := 0
	if peer.baseCost != 0 {
		base = float64(peer.baseCost)
	}
	offset = peer.offset

	if m, ok := measured[ifname]; ok && m != nil {
		base = *m
	}
	return clampCost(base, offset)
}

// peerCostInput is the minimal shape peerCost needs, kept separate from
// controller.RemotePeerInfo so cost.go has no dependency on the wire types.
type peerCostInput struct {
	baseCost int
	offset   int
}
