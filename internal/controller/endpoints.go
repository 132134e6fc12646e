package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

const (
	pathNodeConfig     = "/api/v1/node/config"
	pathNodePeers      = "/api/v1/node/peers"
	pathSyncWGKeys     = "/api/v1/node/sync_wireguard_keys"
	pathLinkTelemetry  = "/api/v1/node/link_telemetry"
	pathRouterTelem    = "/api/v1/node/router_telemetry"
	pathJoin           = "/api/v1/node/join"
)

type nodeConfigResponse struct {
	Config string `json:"config"`
}

// GetNodeConfig fetches and decodes the node's desired configuration.
func (c *Client) GetNodeConfig(ctx context.Context) (RemoteNodeInfo, error) {
	data, err := c.get(ctx, pathNodeConfig, url.Values{})
	if err != nil {
		return RemoteNodeInfo{}, err
	}
	var wrapper nodeConfigResponse
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return RemoteNodeInfo{}, fmt.Errorf("decode node/config envelope: %w", err)
	}
	var info RemoteNodeInfo
	if err := json.Unmarshal([]byte(wrapper.Config), &info); err != nil {
		return RemoteNodeInfo{}, fmt.Errorf("decode node/config payload: %w", err)
	}
	if info.OSPF != nil {
		if err := c.validate.Struct(info.OSPF); err != nil {
			return RemoteNodeInfo{}, fmt.Errorf("validate node/config ospf: %w", err)
		}
	}
	return info, nil
}

// GetNodePeers fetches the desired peer set. A peer whose extra field
// fails to parse is returned with Extra == nil rather than dropping the
// peer or failing the whole batch.
func (c *Client) GetNodePeers(ctx context.Context) ([]RemotePeerInfo, error) {
	data, err := c.get(ctx, pathNodePeers, url.Values{})
	if err != nil {
		return nil, err
	}
	var wrapper rawPeerResponse
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode node/peers envelope: %w", err)
	}

	peers := make([]RemotePeerInfo, 0, len(wrapper.Peers))
	for _, raw := range wrapper.Peers {
		if err := c.validate.Struct(raw); err != nil {
			return nil, fmt.Errorf("validate peer %d: %w", raw.ID, err)
		}
		if _, err := wgtypes.ParseKey(raw.PublicKey); err != nil {
			return nil, fmt.Errorf("peer %d publicKey: %w", raw.ID, err)
		}
		if _, err := wgtypes.ParseKey(raw.PeerPublicKey); err != nil {
			return nil, fmt.Errorf("peer %d peerPublicKey: %w", raw.ID, err)
		}
		peers = append(peers, RemotePeerInfo{
			ID:            raw.ID,
			PublicKey:     raw.PublicKey,
			PeerPublicKey: raw.PeerPublicKey,
			AddressCIDR:   raw.AddressCIDR,
			ListenPort:    raw.ListenPort,
			MTU:           raw.MTU,
			Keepalive:     raw.Keepalive,
			Endpoint:      raw.Endpoint,
			Extra:         parseExtra(raw.ID, raw.Extra),
		})
	}
	return peers, nil
}

func parseExtra(peerID int64, raw json.RawMessage) *PeerExtra {
	if len(raw) == 0 {
		return nil
	}
	var extra PeerExtra
	if err := json.Unmarshal(raw, &extra); err != nil {
		slog.Warn("controller: peer extra failed to parse, treating as absent", "peer", peerID, "err", err)
		return nil
	}
	return &extra
}

// SyncWireGuardKeys reports the agent's current public-key pool.
func (c *Client) SyncWireGuardKeys(ctx context.Context, publicKeys []string) error {
	_, err := c.post(ctx, pathSyncWGKeys, map[string]any{"keys": publicKeys})
	return err
}

// ReportLinkTelemetry reports per-link ping/rx/tx samples.
func (c *Client) ReportLinkTelemetry(ctx context.Context, links []LinkTelemetry) error {
	_, err := c.post(ctx, pathLinkTelemetry, map[string]any{"links": links})
	return err
}

type routerTelemetryPayload struct {
	AreaRouters map[string][]RouterTelemetryEntry `json:"area_routers"`
	OtherASBRs  []RouterTelemetryEntry             `json:"other_asbrs"`
}

// ReportRouterTelemetry reports the parsed OSPF LSDB state.
func (c *Client) ReportRouterTelemetry(ctx context.Context, areaRouters map[string][]RouterTelemetryEntry, otherASBRs []RouterTelemetryEntry) error {
	_, err := c.post(ctx, pathRouterTelem, routerTelemetryPayload{
		AreaRouters: areaRouters,
		OtherASBRs:  otherASBRs,
	})
	return err
}

// Join registers this node's public key with the controller and returns
// the assigned node ID.
func (c *Client) Join(ctx context.Context, publicKey string) (int64, error) {
	data, err := c.post(ctx, pathJoin, JoinRequest{PublicKey: publicKey})
	if err != nil {
		return 0, err
	}
	var resp JoinResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("decode join response: %w", err)
	}
	return resp.NodeID, nil
}
