package birdconf

import (
	"strings"
	"testing"
)

func sampleInput() Input {
	cost := 1000
	interval := 1000
	idle := 5000
	mult := 5
	return Input{
		RouterID:             "1.1.1.1",
		DirectInterfaceNames: []string{"netA-7"},
		OSPFAreaConfig: map[string]map[string]OSPFIfaceConfig{
			"0": {
				"netA-7": {Cost: &cost, Type: "ptp"},
			},
		},
		BFDConfig: map[string]BFDIfaceConfig{
			"netA-7": {IntervalMs: &interval, IdleMs: &idle, Multiplier: &mult},
		},
		GitVersion: "v1",
		Timestamp:  "fixed",
	}
}

func TestRenderDeterministic(t *testing.T) {
	a := Render(sampleInput())
	b := Render(sampleInput())
	if a != b {
		t.Fatalf("Render is not deterministic:\n--- a ---\n%s\n--- b ---\n%s", a, b)
	}
}

func TestRenderContainsExpectedInterfaceBlock(t *testing.T) {
	out := Render(sampleInput())
	for _, want := range []string{
		`interface "netA-7" {`,
		"cost 1000;",
		"type ptp;",
		"bfd yes;",
		"area 0 {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered config missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptyExcludesUsesAll(t *testing.T) {
	in := sampleInput()
	out := Render(in)
	if !strings.Contains(out, "import all;") || !strings.Contains(out, "export all;") {
		t.Errorf("expected implicit all import/export with no excludes:\n%s", out)
	}
}

func TestRenderNamedExcludeSet(t *testing.T) {
	in := sampleInput()
	in.OSPFImportExcludeCIDRs = []string{"10.0.0.0/8", "192.168.0.0/16"}
	out := Render(in)
	if !strings.Contains(out, "define OSPF_IMPORT_EXCLUDE = [") {
		t.Errorf("expected named exclude set definition:\n%s", out)
	}
	if !strings.Contains(out, "import filter ospf_import;") {
		t.Errorf("expected import to reference the named filter:\n%s", out)
	}
}

func TestReformatIndentsByBraceDepth(t *testing.T) {
	out := reformat([]string{"protocol ospf v2 {", "area 0 {", "cost 10;", "};", "}"})
	want := "protocol ospf v2 {\n  area 0 {\n    cost 10;\n  };\n}\n"
	if out != want {
		t.Fatalf("reformat =\n%q\nwant\n%q", out, want)
	}
}
