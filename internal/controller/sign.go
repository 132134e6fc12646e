package controller

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
)

// signingString builds "{path}\n{nonce}\n{qsOrBody}" — the exact byte
// sequence that gets Ed25519-signed on every request.
func signingString(path, nonce, qsOrBody string) string {
	return path + "\n" + nonce + "\n" + qsOrBody
}

// sign returns the hex-encoded Ed25519 signature of signingString(...)
// under priv.
func sign(priv ed25519.PrivateKey, path, nonce, qsOrBody string) string {
	msg := []byte(signingString(path, nonce, qsOrBody))
	return hex.EncodeToString(ed25519.Sign(priv, msg))
}

// newNonce returns 8 random bytes, hex-encoded.
func newNonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// clientID is the SHA-256 hex digest of the SPKI-DER encoding of pub —
// the X-Client-Id header value that identifies this node to the
// controller without transmitting the key material itself.
func clientID(pub ed25519.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:]), nil
}
