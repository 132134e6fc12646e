package supervisor

import (
	"testing"

	"github.com/containerd/errdefs"

	"meshnoded/internal/proc"
)

func TestRunFlags(t *testing.T) {
	flags := runFlags(RunOpts{
		Description: "relay worker",
		Restart:     "always",
		RestartSec:  5,
		Collect:     true,
	})
	want := []string{
		"--description=relay worker",
		"--property=Restart=always",
		"--property=RestartSec=5",
		"--collect",
	}
	if len(flags) != len(want) {
		t.Fatalf("runFlags = %v, want %v", flags, want)
	}
	for i := range want {
		if flags[i] != want[i] {
			t.Errorf("flags[%d] = %q, want %q", i, flags[i], want[i])
		}
	}
}

func TestClassifyStderrNotFound(t *testing.T) {
	cases := map[string]bool{
		"Unit networktools-netA-worker-x.service not loaded.": true,
		"Failed to stop: No such file or directory":           true,
		"permission denied":                                   false,
	}
	for stderr, want := range cases {
		got := errdefs.IsNotFound(proc.ClassifyStderr(proc.Result{Stderr: stderr}))
		if got != want {
			t.Errorf("IsNotFound(ClassifyStderr(%q)) = %v, want %v", stderr, got, want)
		}
	}
}
