package link

import (
	"context"
	"testing"
)

func TestGenerateKeyPairProducesValidKeys(t *testing.T) {
	m := &Manager{}
	pair, err := m.GenerateKeyPair(context.Background())
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if err := ValidateKey(pair.Private); err != nil {
		t.Errorf("generated private key failed validation: %v", err)
	}
	if err := ValidateKey(pair.Public); err != nil {
		t.Errorf("generated public key failed validation: %v", err)
	}
}

func TestValidateKeyRejectsGarbage(t *testing.T) {
	if err := ValidateKey("not a wireguard key"); err == nil {
		t.Fatal("expected error for malformed key")
	}
}
