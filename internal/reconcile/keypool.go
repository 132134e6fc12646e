package reconcile

import (
	"context"
	"fmt"
)

const defaultKeyPoolSize = 20

// syncKeyPool tops up the local WireGuard key pool to KeyPoolSize and
// reports every public key the pool now holds (spec step 3).
func (c *Controller) syncKeyPool(ctx context.Context) error {
	if err := c.growKeyPool(ctx); err != nil {
		return err
	}

	pairs, err := c.Store.GetAllWireGuardKeys(ctx)
	if err != nil {
		return fmt.Errorf("load wireguard key pool: %w", err)
	}
	publicKeys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		publicKeys = append(publicKeys, p.Public)
	}

	if err := c.Client.SyncWireGuardKeys(ctx, publicKeys); err != nil {
		return fmt.Errorf("sync wireguard keys: %w", err)
	}
	return nil
}

// growKeyPool generates key pairs one at a time, persisting each before
// generating the next, until the pool reaches KeyPoolSize.
func (c *Controller) growKeyPool(ctx context.Context) error {
	target := c.KeyPoolSize
	if target <= 0 {
		target = defaultKeyPoolSize
	}
	for {
		pairs, err := c.Store.GetAllWireGuardKeys(ctx)
		if err != nil {
			return fmt.Errorf("load wireguard key pool: %w", err)
		}
		if len(pairs) >= target {
			return nil
		}
		pair, err := c.Link.GenerateKeyPair(ctx)
		if err != nil {
			return fmt.Errorf("generate wireguard key pair: %w", err)
		}
		if err := c.Store.CreateWireGuardKey(ctx, pair); err != nil {
			return fmt.Errorf("persist wireguard key pair: %w", err)
		}
	}
}
