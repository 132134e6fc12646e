package link

import (
	"context"
	"fmt"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"meshnoded/internal/model"
)

// GenerateKeyPair mints a new WireGuard key pair for the key pool.
// Key generation and derivation are pure curve25519 math with no kernel
// or device state involved, so this goes through wgtypes rather than
// shelling `wg genkey`/`wg pubkey` — device mutation itself still goes
// through the process invoker (see AssignWireguard), but minting key
// material does not touch a device at all.
func (m *Manager) GenerateKeyPair(ctx context.Context) (model.WireGuardKeyPair, error) {
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return model.WireGuardKeyPair{}, fmt.Errorf("generate wireguard key: %w", err)
	}
	return model.WireGuardKeyPair{Private: priv.String(), Public: priv.PublicKey().String()}, nil
}

// ValidateKey confirms s decodes as a well-formed WireGuard key, the
// same base64(32 bytes) shape `wg` itself accepts, without depending on
// the `wg` binary being on PATH.
func ValidateKey(s string) error {
	if _, err := wgtypes.ParseKey(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("invalid wireguard key: %w", err)
	}
	return nil
}
