package main

import "testing"

func TestGenerateIdentityRoundTrips(t *testing.T) {
	pemStr, priv, err := generateIdentity()
	if err != nil {
		t.Fatalf("generateIdentity: %v", err)
	}
	if pemStr == "" {
		t.Fatal("expected non-empty PEM")
	}

	decoded, err := decodePrivateKeyPEM(pemStr)
	if err != nil {
		t.Fatalf("decodePrivateKeyPEM: %v", err)
	}
	if decoded.Equal(priv) == false {
		t.Fatal("decoded private key does not match generated key")
	}
}

func TestDecodePrivateKeyPEMRejectsGarbage(t *testing.T) {
	if _, err := decodePrivateKeyPEM("not a pem block"); err == nil {
		t.Fatal("expected error decoding non-PEM text")
	}
}

func TestIdentityPublicKeyHexIsStable(t *testing.T) {
	_, priv, err := generateIdentity()
	if err != nil {
		t.Fatalf("generateIdentity: %v", err)
	}
	a := identityPublicKeyHex(priv)
	b := identityPublicKeyHex(priv)
	if a != b || len(a) != 64 {
		t.Fatalf("identityPublicKeyHex not stable/sized: %q vs %q", a, b)
	}
}
