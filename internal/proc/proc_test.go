package proc

import (
	"testing"

	"github.com/containerd/errdefs"
)

func TestClassifyStderrAlreadyExists(t *testing.T) {
	cases := []string{
		"RTNETLINK answers: File exists",
		"Cannot create namespace file \"/var/run/netns/netA\": File exists",
		"chain already exists",
	}
	for _, stderr := range cases {
		err := ClassifyStderr(Result{Stderr: stderr})
		if !errdefs.IsAlreadyExists(err) {
			t.Errorf("ClassifyStderr(%q) not classified as already-exists: %v", stderr, err)
		}
	}
}

func TestClassifyStderrNotFound(t *testing.T) {
	cases := []string{
		"Error: no such container netA-router",
		"Cannot remove namespace file \"/var/run/netns/netA\": No such file or directory",
		"Unit networktools-netA-router.service not loaded.",
	}
	for _, stderr := range cases {
		err := ClassifyStderr(Result{Stderr: stderr})
		if !errdefs.IsNotFound(err) {
			t.Errorf("ClassifyStderr(%q) not classified as not-found: %v", stderr, err)
		}
	}
}

func TestClassifyStderrUnrecognized(t *testing.T) {
	err := ClassifyStderr(Result{Stderr: "permission denied"})
	if errdefs.IsAlreadyExists(err) || errdefs.IsNotFound(err) {
		t.Fatalf("ClassifyStderr should not classify unrelated stderr, got %v", err)
	}
}
