package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"meshnoded/internal/model"
)

const (
	keyNamespace    = "namespace"
	keyEthName      = "ethName"
	keyPrivateKey   = "privateKey"
	keyNodeID       = "nodeId"
	keyDomainPrefix = "domainPrefix"
)

// ErrNoNodeSettings is returned when no node settings have been persisted
// yet — the reconciliation loop treats this as a hard failure (spec step
// 1: "hard fail if missing").
var ErrNoNodeSettings = errors.New("store: node settings not found")

// GetNodeSettings loads the full NodeSettings row set. It fails if
// namespace (the one field every settings write must include) is absent.
func (s *Store) GetNodeSettings(ctx context.Context) (model.NodeSettings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM nodeconfig`)
	if err != nil {
		return model.NodeSettings{}, fmt.Errorf("load node settings: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return model.NodeSettings{}, fmt.Errorf("scan node settings: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return model.NodeSettings{}, fmt.Errorf("iterate node settings: %w", err)
	}

	ns, ok := values[keyNamespace]
	if !ok || ns == "" {
		return model.NodeSettings{}, ErrNoNodeSettings
	}

	var nodeID int64
	if raw, ok := values[keyNodeID]; ok && raw != "" {
		nodeID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.NodeSettings{}, fmt.Errorf("parse nodeId: %w", err)
		}
	}

	return model.NodeSettings{
		Namespace:    ns,
		EthName:      values[keyEthName],
		PrivateKey:   values[keyPrivateKey],
		NodeID:       nodeID,
		DomainPrefix: values[keyDomainPrefix],
	}, nil
}

// SetNodeSettings performs a partial upsert: only non-zero fields of ns
// are written, leaving previously stored fields untouched.
func (s *Store) SetNodeSettings(ctx context.Context, ns model.NodeSettings) error {
	updates := map[string]string{}
	if ns.Namespace != "" {
		updates[keyNamespace] = ns.Namespace
	}
	if ns.EthName != "" {
		updates[keyEthName] = ns.EthName
	}
	if ns.PrivateKey != "" {
		updates[keyPrivateKey] = ns.PrivateKey
	}
	if ns.NodeID != 0 {
		updates[keyNodeID] = strconv.FormatInt(ns.NodeID, 10)
	}
	if ns.DomainPrefix != "" {
		updates[keyDomainPrefix] = ns.DomainPrefix
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin node settings update: %w", err)
	}
	defer tx.Rollback()

	for k, v := range updates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nodeconfig (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("upsert nodeconfig[%s]: %w", k, err)
		}
	}
	return tx.Commit()
}

// CreateWireGuardKey persists a newly generated key pair, ignoring the
// write if the public key is already present.
func (s *Store) CreateWireGuardKey(ctx context.Context, pair model.WireGuardKeyPair) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wgkey (private, public) VALUES (?, ?)
		 ON CONFLICT(public) DO NOTHING`, pair.Private, pair.Public)
	if err != nil {
		return fmt.Errorf("create wireguard key: %w", err)
	}
	return nil
}

// GetAllWireGuardKeys returns every pre-generated key pair in the pool.
func (s *Store) GetAllWireGuardKeys(ctx context.Context) ([]model.WireGuardKeyPair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT private, public FROM wgkey`)
	if err != nil {
		return nil, fmt.Errorf("load wireguard keys: %w", err)
	}
	defer rows.Close()

	var pairs []model.WireGuardKeyPair
	for rows.Next() {
		var p model.WireGuardKeyPair
		if err := rows.Scan(&p.Private, &p.Public); err != nil {
			return nil, fmt.Errorf("scan wireguard key: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
