// Package model holds the data types persisted or observed by the agent:
// node identity, the WireGuard key pool, locally supervised underlay
// workers, and the kernel-observed interface/WireGuard/OSPF state.
package model

import "time"

// NodeSettings is the persistent per-node identity. Mutated only by the
// init flow; read by the controller client and every reconciliation pass.
type NodeSettings struct {
	Namespace    string // Linux netns name
	EthName      string // host uplink interface
	PrivateKey   string // PEM, Ed25519
	NodeID       int64  // assigned on cluster join
	DomainPrefix string // controller base URL
}

// WireGuardKeyPair is a pre-generated member of the local key pool. The
// controller selects which public keys are used for peers; the agent must
// already own the matching private half.
type WireGuardKeyPair struct {
	Private string
	Public  string
}

// UnderlayMode distinguishes the two LocalUnderlayState shapes.
type UnderlayMode string

const (
	UnderlayClient UnderlayMode = "client"
	UnderlayServer UnderlayMode = "server"
)

// LocalUnderlayState is a locally supervised relay worker paired with a
// WireGuard interface. Exactly one of the Client/Server-specific fields is
// meaningful, selected by Mode.
type LocalUnderlayState struct {
	Mode UnderlayMode

	UnitName   string
	ListenPort int

	// client-only
	ServerIP   string
	ServerPort int
}

// ObservedInterfaceState is the kernel-observed state of a link, parsed from
// `ip -j addr show`.
type ObservedInterfaceState struct {
	Name       string
	MTU        int
	Addr       string // primary IPv4 address
	PrefixLen  int
}

// ObservedWireGuardPeer is one peer row from `wg show ... dump`.
type ObservedWireGuardPeer struct {
	PublicKey       string
	PresharedKey    string
	Endpoint        string // empty if "(none)"
	AllowedIPs      []string
	LatestHandshake time.Time
	RxBytes         int64
	TxBytes         int64
	KeepaliveSec    int // 0 if "off"
}

// ObservedWireGuardState is the kernel-observed state of one WireGuard
// interface, parsed from `wg show <iface> dump` or one entry of
// `wg show all dump`.
type ObservedWireGuardState struct {
	Interface  string
	PrivateKey string
	PublicKey  string
	ListenPort int
	FwMark     int // 0 if "off"
	Peers      map[string]ObservedWireGuardPeer
}

// RouterInfo is one parsed OSPF LSDB router entry.
type RouterInfo struct {
	RouterID      string
	Distance      int
	VLinks        []MetricEntry
	Routers       []MetricEntry
	StubNets      []MetricEntry
	XNetworks     []MetricEntry
	XRouters      []MetricEntry
	Externals     []ExternalEntry
	NSSAExternals []ExternalEntry
}

// MetricEntry is a network/router reference with a metric, as produced for
// vlink/router/stubnet/xnetwork/xrouter lines.
type MetricEntry struct {
	Network string // router id for "router"/"vlink" lines, CIDR otherwise
	Metric  int
}

// ExternalEntry is an external/nssa-ext route entry.
type ExternalEntry struct {
	Network    string
	Metric     int
	MetricType int // 1 or 2
	Via        string
	Tag        string
}
