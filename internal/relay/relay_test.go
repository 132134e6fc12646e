package relay

import (
	"context"
	"testing"

	"meshnoded/internal/model"
)

type fakeStore struct {
	states map[string]model.LocalUnderlayState
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: map[string]model.LocalUnderlayState{}}
}

func (f *fakeStore) GetLocalUnderlayState(ctx context.Context, ifname string) (model.LocalUnderlayState, bool, error) {
	st, ok := f.states[ifname]
	return st, ok, nil
}

func (f *fakeStore) SetLocalUnderlayState(ctx context.Context, ifname string, st model.LocalUnderlayState) error {
	f.states[ifname] = st
	return nil
}

func (f *fakeStore) DeleteLocalUnderlayState(ctx context.Context, ifname string) error {
	delete(f.states, ifname)
	return nil
}

func TestStopNoRecordIsNoop(t *testing.T) {
	store := newFakeStore()
	m := &Manager{Store: store}
	if err := m.Stop(context.Background(), "netA-7"); err != nil {
		t.Fatalf("Stop with no record should be a no-op, got %v", err)
	}
}

func TestGostBinaryPath(t *testing.T) {
	m := &Manager{InstallDir: "/opt/meshnoded"}
	if got := m.gostBinary(); got != "/opt/meshnoded/bin/gost" {
		t.Errorf("gostBinary() = %q, want /opt/meshnoded/bin/gost", got)
	}
}

func TestUnitNameShape(t *testing.T) {
	name := unitName("netA")
	if len(name) < len("networktools-netA-worker-") {
		t.Fatalf("unitName too short: %q", name)
	}
	want := "networktools-netA-worker-"
	if name[:len(want)] != want {
		t.Errorf("unitName(%q) = %q, want prefix %q", "netA", name, want)
	}
}
