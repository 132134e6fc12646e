// Package reconcile is the reconciliation controller (component L): the
// single idempotent tick that drives every other component toward the
// state the controller describes, plus the service loop that schedules it.
package reconcile

import (
	"go.opentelemetry.io/otel/trace"

	"meshnoded/internal/controller"
	"meshnoded/internal/ensure"
	"meshnoded/internal/iptables"
	"meshnoded/internal/link"
	"meshnoded/internal/ping"
	"meshnoded/internal/proc"
	"meshnoded/internal/relay"
	"meshnoded/internal/routerctr"
	"meshnoded/internal/store"
	"meshnoded/internal/supervisor"
)

// Controller wires every component one reconciliation tick depends on.
type Controller struct {
	Store      *store.Store
	Client     *controller.Client
	Ensure     *ensure.Manager
	Link       *link.Manager
	Ping       *ping.Aggregator
	Relay      *relay.Manager
	Router     *routerctr.Manager
	Supervisor *supervisor.Supervisor
	Invoker    *proc.Invoker
	Tracer     trace.Tracer

	// KeyPoolSize is the target size of the pre-generated WireGuard key
	// pool (spec step 3's N).
	KeyPoolSize int
}

func (c *Controller) iptables(ns string) *iptables.Manager {
	return &iptables.Manager{Invoker: c.Invoker, Ns: ns}
}
