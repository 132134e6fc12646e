package routerctr

import (
	"encoding/json"
	"testing"

	"github.com/containerd/errdefs"

	"meshnoded/internal/proc"
)

func TestContainerAndUnitNames(t *testing.T) {
	if got := containerName("netA"); got != "netA-router" {
		t.Errorf("containerName = %q, want netA-router", got)
	}
	if got := unitName("netA"); got != "networktools-netA-router" {
		t.Errorf("unitName = %q, want networktools-netA-router", got)
	}
}

func TestClassifyStderrNotFound(t *testing.T) {
	cases := map[string]bool{
		"Error: no such container netA-router": true,
		"No such container: netA-router":       true,
		"permission denied":                    false,
	}
	for stderr, want := range cases {
		got := errdefs.IsNotFound(proc.ClassifyStderr(proc.Result{Stderr: stderr}))
		if got != want {
			t.Errorf("IsNotFound(ClassifyStderr(%q)) = %v, want %v", stderr, got, want)
		}
	}
}

func TestInspectParsesOutput(t *testing.T) {
	var entries []inspectEntry
	raw := `[{"Id":"abc123","State":{"Status":"running"},"HostConfig":{"Binds":["/tmp/x:/data:ro"]}}]`
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "abc123" || entries[0].State.Status != "running" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
