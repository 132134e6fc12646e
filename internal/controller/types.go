package controller

import "encoding/json"

// RemoteNodeInfo is the desired per-node configuration fetched each tick.
type RemoteNodeInfo struct {
	ExitNode bool           `json:"exitNode"`
	VethCIDR string         `json:"vethCIDR,omitempty"`
	OSPF     *NodeOSPFConfig `json:"ospf,omitempty" validate:"omitempty"`
}

// NodeOSPFConfig is the node-level OSPF area the controller wants the
// veth1 interface attached to, when it specifies one.
type NodeOSPFConfig struct {
	Area string `json:"area" validate:"required"`
	Cost int    `json:"cost"`
	Auth string `json:"auth,omitempty"`
}

// rawPeerResponse is the wire shape of GET /api/v1/node/peers.
type rawPeerResponse struct {
	Peers []rawPeer `json:"peers"`
}

type rawPeer struct {
	ID            int64           `json:"id" validate:"required"`
	PublicKey     string          `json:"publicKey" validate:"required"`
	PeerPublicKey string          `json:"peerPublicKey" validate:"required"`
	AddressCIDR   string          `json:"addressCIDR" validate:"required"`
	ListenPort    int             `json:"listenPort"`
	MTU           int             `json:"mtu"`
	Keepalive     int             `json:"keepalive"`
	Endpoint      string          `json:"endpoint,omitempty"`
	Extra         json.RawMessage `json:"extra,omitempty"`
}

// RemotePeerInfo is the per-peer desired state the reconciliation loop
// consumes. Extra is nil when the peer declared none, or when it declared
// one that failed to parse — a malformed extra blob on one peer must not
// invalidate the rest of the batch.
type RemotePeerInfo struct {
	ID            int64
	PublicKey     string
	PeerPublicKey string
	AddressCIDR   string
	ListenPort    int
	MTU           int
	Keepalive     int
	Endpoint      string
	Extra         *PeerExtra
}

// PeerExtra is the tagged-union payload a peer may declare: OSPF link
// parameters, an underlay relay request, or both.
type PeerExtra struct {
	OSPF     *PeerExtraOSPF     `json:"ospf,omitempty"`
	Underlay *PeerExtraUnderlay `json:"underlay,omitempty"`
}

// PeerExtraOSPF carries per-link OSPF cost inputs (spec invariant 7:
// cost = clamp(1, floor(baseCost + offset), 65535)).
type PeerExtraOSPF struct {
	Cost   int    `json:"cost"`
	Ping   bool   `json:"ping"`
	Offset int    `json:"offset"`
	Auth   string `json:"auth,omitempty"`
}

// UnderlayProvider names the relay worker mode a peer requests.
type UnderlayProvider string

const (
	ProviderGostRelayClient UnderlayProvider = "gost_relay_client"
	ProviderGostRelayServer UnderlayProvider = "gost_relay_server"
)

// PeerExtraUnderlay requests a relay worker (component G) be set up for
// this link, instead of a direct WireGuard endpoint.
type PeerExtraUnderlay struct {
	Provider UnderlayProvider `json:"provider"`
	Config   json.RawMessage  `json:"config,omitempty"`
}

// LinkTelemetry is one entry of POST /api/v1/node/link_telemetry.
type LinkTelemetry struct {
	ID   int64   `json:"id"`
	Ping float64 `json:"ping"` // -1 when no sample was available
	Rx   int64   `json:"rx"`
	Tx   int64   `json:"tx"`
}

// RouterTelemetryEntry is the remote schema's snake_case rendering of an
// internal model.RouterInfo.
type RouterTelemetryEntry struct {
	RouterID      string                 `json:"router_id"`
	Distance      int                    `json:"distance"`
	VLinks        []MetricEntryWire      `json:"vlinks,omitempty"`
	Routers       []MetricEntryWire      `json:"routers,omitempty"`
	StubNets      []MetricEntryWire      `json:"stubnets,omitempty"`
	XNetworks     []MetricEntryWire      `json:"xnetworks,omitempty"`
	XRouters      []MetricEntryWire      `json:"xrouters,omitempty"`
	Externals     []ExternalEntryWire    `json:"externals,omitempty"`
	NSSAExternals []ExternalEntryWire    `json:"nssa_externals,omitempty"`
}

type MetricEntryWire struct {
	Network string `json:"network"`
	Metric  int    `json:"metric"`
}

type ExternalEntryWire struct {
	Network    string `json:"network"`
	Metric     int    `json:"metric"`
	MetricType int    `json:"metric_type"`
	Via        string `json:"via,omitempty"`
	Tag        string `json:"tag,omitempty"`
}

// JoinRequest is the body of the initial cluster-join call.
type JoinRequest struct {
	PublicKey string `json:"publicKey" validate:"required"`
}

// JoinResponse carries the node ID assigned by the controller.
type JoinResponse struct {
	NodeID int64 `json:"nodeId"`
}
