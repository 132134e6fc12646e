package link

import "testing"

func TestPeerAddrs(t *testing.T) {
	host, ns, err := PeerAddrs("10.0.0.0/30")
	if err != nil {
		t.Fatalf("PeerAddrs: %v", err)
	}
	if host != "10.0.0.1/30" {
		t.Errorf("host = %q, want 10.0.0.1/30", host)
	}
	if ns != "10.0.0.2/30" {
		t.Errorf("ns = %q, want 10.0.0.2/30", ns)
	}
}

func TestPeerAddrsRejectsNon30(t *testing.T) {
	if _, _, err := PeerAddrs("10.0.0.0/29"); err == nil {
		t.Fatal("expected error for non-/30 cidr")
	}
}

func TestComplement(t *testing.T) {
	got, err := Complement("10.0.0.1/30")
	if err != nil {
		t.Fatalf("Complement: %v", err)
	}
	if got != "10.0.0.2/30" {
		t.Errorf("Complement(host) = %q, want 10.0.0.2/30", got)
	}

	got, err = Complement("10.0.0.2/30")
	if err != nil {
		t.Fatalf("Complement: %v", err)
	}
	if got != "10.0.0.1/30" {
		t.Errorf("Complement(ns) = %q, want 10.0.0.1/30", got)
	}
}

func TestResolveEndpointIPv4Literal(t *testing.T) {
	got, err := resolveEndpoint("198.51.100.9:51820")
	if err != nil {
		t.Fatalf("resolveEndpoint: %v", err)
	}
	if got != "198.51.100.9:51820" {
		t.Errorf("resolveEndpoint = %q, want 198.51.100.9:51820", got)
	}
}

func TestResolveEndpointIPv6Literal(t *testing.T) {
	got, err := resolveEndpoint("[2001:db8::1]:51820")
	if err != nil {
		t.Fatalf("resolveEndpoint: %v", err)
	}
	if got != "[2001:db8::1]:51820" {
		t.Errorf("resolveEndpoint = %q, want [2001:db8::1]:51820", got)
	}
}

func TestParseAllDump(t *testing.T) {
	out := "netA-7\tPRIVKEY\tPUBKEY\t51820\toff\n" +
		"netA-7\tPEERPUB\t(none)\t198.51.100.9:51820\t0.0.0.0/0\t1700000000\t100\t200\t25\n"

	states := parseAllDump(out)
	st, ok := states["netA-7"]
	if !ok {
		t.Fatal("expected netA-7 in parsed dump")
	}
	if st.PrivateKey != "PRIVKEY" || st.PublicKey != "PUBKEY" || st.ListenPort != 51820 || st.FwMark != 0 {
		t.Fatalf("unexpected device fields: %+v", st)
	}
	peer, ok := st.Peers["PEERPUB"]
	if !ok {
		t.Fatal("expected peer PEERPUB")
	}
	if peer.Endpoint != "198.51.100.9:51820" || peer.KeepaliveSec != 25 || peer.RxBytes != 100 || peer.TxBytes != 200 {
		t.Fatalf("unexpected peer fields: %+v", peer)
	}
}

func TestParseSingleDump(t *testing.T) {
	out := "PRIVKEY\tPUBKEY\t51820\toff\n" +
		"PEERPUB\t(none)\t(none)\t0.0.0.0/0\t0\t0\t0\toff\n"
	st := parseSingleDump("netA-7", out)
	if st.PrivateKey != "PRIVKEY" {
		t.Fatalf("unexpected private key: %+v", st)
	}
	peer := st.Peers["PEERPUB"]
	if peer.Endpoint != "" || peer.KeepaliveSec != 0 {
		t.Fatalf("expected absent endpoint/keepalive, got %+v", peer)
	}
}
