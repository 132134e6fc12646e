package controller

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"testing"
)

func TestSignIsStableForSameKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	a := sign(priv, "/path", "N", "{}")
	b := sign(priv, "/path", "N", "{}")
	if a != b {
		t.Fatalf("sign is not stable: %q != %q", a, b)
	}
}

func TestSignDiffersWithNonce(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	a := sign(priv, "/path", "N1", "{}")
	b := sign(priv, "/path", "N2", "{}")
	if a == b {
		t.Fatal("expected different signatures for different nonces")
	}
}

func TestClientIDMatchesSHA256OfSPKIDER(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	got, err := clientID(pub)
	if err != nil {
		t.Fatalf("clientID: %v", err)
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	sum := sha256.Sum256(der)
	want := hex.EncodeToString(sum[:])

	if got != want {
		t.Fatalf("clientID = %q, want %q", got, want)
	}
}

func TestSigningStringShape(t *testing.T) {
	got := signingString("/path", "N", "{}")
	want := "/path\nN\n{}"
	if got != want {
		t.Fatalf("signingString = %q, want %q", got, want)
	}
}
