package reconcile

import "testing"

func TestClampCostWithinRange(t *testing.T) {
	if got := clampCost(500, 50); got != 550 {
		t.Fatalf("clampCost(500, 50) = %d, want 550", got)
	}
}

func TestClampCostFloorsFractional(t *testing.T) {
	if got := clampCost(10.7, 0); got != 10 {
		t.Fatalf("clampCost(10.7, 0) = %d, want 10", got)
	}
}

func TestClampCostLowerBound(t *testing.T) {
	if got := clampCost(5, -100); got != minOSPFCost {
		t.Fatalf("clampCost(5, -100) = %d, want %d", got, minOSPFCost)
	}
}

func TestClampCostUpperBound(t *testing.T) {
	if got := clampCost(100000, 0); got != maxOSPFCost {
		t.Fatalf("clampCost(100000, 0) = %d, want %d", got, maxOSPFCost)
	}
}

func TestPeerCostPrefersMeasuredPing(t *testing.T) {
	c := &Controller{}
	measured := map[string]*float64{"netA-7": floatPtr(42.0)}
	got := c.peerCost(peerCostInput{baseCost: 1000, offset: 0}, measured, "netA-7")
	if got != 42 {
		t.Fatalf("peerCost with measured ping = %d, want 42", got)
	}
}

func TestPeerCostFallsBackToBase(t *testing.T) {
	c := &Controller{}
	got := c.peerCost(peerCostInput{baseCost: 200, offset: 10}, nil, "netA-7")
	if got != 210 {
		t.Fatalf("peerCost with no measurement = %d, want 210", got)
	}
}

func TestPeerCostDefaultBaseWhenUnset(t *testing.T) {
	c := &Controller{}
	got := c.peerCost(peerCostInput{}, nil, "netA-7")
	if got != 1000 {
		t.Fatalf("peerCost with unset base = %d, want 1000", got)
	}
}

func floatPtr(v float64) *float64 { return &v }
