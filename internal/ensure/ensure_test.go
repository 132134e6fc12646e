package ensure

import "testing"

func TestChainName(t *testing.T) {
	if got := ChainName("netA", "FORWARD"); got != "netA-FORWARD" {
		t.Errorf("ChainName = %q, want netA-FORWARD", got)
	}
}

func TestTempDirs(t *testing.T) {
	base, router := TempDirs("netA")
	if base != "/tmp/networktools-netA" {
		t.Errorf("base = %q, want /tmp/networktools-netA", base)
	}
	if router != "/tmp/networktools-netA/router" {
		t.Errorf("router = %q, want /tmp/networktools-netA/router", router)
	}
}

func TestScaffoldChainsCoverage(t *testing.T) {
	want := map[string]string{
		"nat":    "POSTROUTING",
		"raw":    "PREROUTING",
		"mangle": "OUTPUT",
		"filter": "FORWARD",
	}
	found := map[string]bool{}
	for _, sc := range scaffoldChains {
		found[sc.table+"/"+sc.builtin] = true
	}
	for table, builtin := range want {
		if !found[table+"/"+builtin] {
			t.Errorf("missing scaffold chain %s/%s", table, builtin)
		}
	}
	if len(scaffoldChains) != 7 {
		t.Errorf("expected 7 scaffold chains, got %d", len(scaffoldChains))
	}
}
