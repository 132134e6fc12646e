package store

import (
	"context"
	"path/filepath"
	"testing"

	"meshnoded/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNodeSettingsMissingIsError(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetNodeSettings(context.Background()); err != ErrNoNodeSettings {
		t.Fatalf("GetNodeSettings on empty store = %v, want ErrNoNodeSettings", err)
	}
}

func TestNodeSettingsPartialUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetNodeSettings(ctx, model.NodeSettings{Namespace: "netA", EthName: "eth0"}); err != nil {
		t.Fatalf("SetNodeSettings: %v", err)
	}
	got, err := s.GetNodeSettings(ctx)
	if err != nil {
		t.Fatalf("GetNodeSettings: %v", err)
	}
	if got.Namespace != "netA" || got.EthName != "eth0" {
		t.Fatalf("unexpected settings: %+v", got)
	}

	if err := s.SetNodeSettings(ctx, model.NodeSettings{NodeID: 7}); err != nil {
		t.Fatalf("SetNodeSettings partial: %v", err)
	}
	got, err = s.GetNodeSettings(ctx)
	if err != nil {
		t.Fatalf("GetNodeSettings: %v", err)
	}
	if got.Namespace != "netA" || got.NodeID != 7 {
		t.Fatalf("partial upsert dropped existing fields: %+v", got)
	}
}

func TestWireGuardKeyPoolDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pair := model.WireGuardKeyPair{Private: "PRIV", Public: "PUB"}
	if err := s.CreateWireGuardKey(ctx, pair); err != nil {
		t.Fatalf("CreateWireGuardKey: %v", err)
	}
	if err := s.CreateWireGuardKey(ctx, pair); err != nil {
		t.Fatalf("CreateWireGuardKey (dup): %v", err)
	}

	keys, err := s.GetAllWireGuardKeys(ctx)
	if err != nil {
		t.Fatalf("GetAllWireGuardKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected exactly 1 key after duplicate insert, got %d", len(keys))
	}
}

func TestLocalUnderlayStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetLocalUnderlayState(ctx, "netA-7"); err != nil || ok {
		t.Fatalf("expected no record initially, got ok=%v err=%v", ok, err)
	}

	st := model.LocalUnderlayState{Mode: model.UnderlayClient, UnitName: "networktools-netA-worker-x", ListenPort: 1080, ServerIP: "1.2.3.4", ServerPort: 443}
	if err := s.SetLocalUnderlayState(ctx, "netA-7", st); err != nil {
		t.Fatalf("SetLocalUnderlayState: %v", err)
	}

	got, ok, err := s.GetLocalUnderlayState(ctx, "netA-7")
	if err != nil || !ok {
		t.Fatalf("GetLocalUnderlayState: ok=%v err=%v", ok, err)
	}
	if got != st {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, st)
	}

	if err := s.DeleteLocalUnderlayState(ctx, "netA-7"); err != nil {
		t.Fatalf("DeleteLocalUnderlayState: %v", err)
	}
	if _, ok, err := s.GetLocalUnderlayState(ctx, "netA-7"); err != nil || ok {
		t.Fatalf("expected record gone after delete, got ok=%v err=%v", ok, err)
	}
}
