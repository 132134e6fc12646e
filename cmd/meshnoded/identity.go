package main

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

const pemBlockType = "PRIVATE KEY"

// generateIdentity mints a fresh Ed25519 node identity, PEM-encoded the
// way model.NodeSettings.PrivateKey expects to store it.
func generateIdentity() (string, ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return "", nil, fmt.Errorf("generate node identity: %w", err)
	}
	pemStr, err := encodePrivateKeyPEM(priv)
	if err != nil {
		return "", nil, err
	}
	return pemStr, priv, nil
}

func encodePrivateKeyPEM(priv ed25519.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("marshal node identity: %w", err)
	}
	block := &pem.Block{Type: pemBlockType, Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// decodePrivateKeyPEM parses the PEM text stored in NodeSettings.PrivateKey
// back into an Ed25519 signing key.
func decodePrivateKeyPEM(pemStr string) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("decode node identity: no PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse node identity: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("node identity is not an Ed25519 key")
	}
	return priv, nil
}

// identityPublicKeyHex hex-encodes the raw 32-byte Ed25519 public half of
// priv, the form sent to the controller's join endpoint.
func identityPublicKeyHex(priv ed25519.PrivateKey) string {
	return hex.EncodeToString(priv.Public().(ed25519.PublicKey))
}
