package ospf

import "testing"

const sampleState = "area 0.0.0.0\n" +
	"\trouter 1.1.1.1\n" +
	"\t\tdistance 10\n" +
	"\t\tstubnet 10.0.0.0/30 metric 100\n" +
	"\t\texternal 0.0.0.0/0 metric 20 metric2 via 1.1.1.2 tag 7\n"

func TestParseAreaRouterFixture(t *testing.T) {
	st := Parse(sampleState)

	routers, ok := st.AreaRouters["0.0.0.0"]
	if !ok || len(routers) != 1 {
		t.Fatalf("expected one router in area 0.0.0.0, got %+v", st.AreaRouters)
	}
	r := routers[0]
	if r.RouterID != "1.1.1.1" {
		t.Errorf("RouterID = %q, want 1.1.1.1", r.RouterID)
	}
	if r.Distance != 10 {
		t.Errorf("Distance = %d, want 10", r.Distance)
	}
	if len(r.StubNets) != 1 || r.StubNets[0].Network != "10.0.0.0/30" || r.StubNets[0].Metric != 100 {
		t.Fatalf("unexpected stubnets: %+v", r.StubNets)
	}
	if len(r.Externals) != 1 {
		t.Fatalf("expected one external, got %+v", r.Externals)
	}
	ext := r.Externals[0]
	if ext.Network != "0.0.0.0/0" || ext.Metric != 20 || ext.MetricType != 2 || ext.Via != "1.1.1.2" || ext.Tag != "7" {
		t.Fatalf("unexpected external: %+v", ext)
	}
}

func TestParseOtherASBRs(t *testing.T) {
	text := "other ASBRs\n" +
		"\trouter 2.2.2.2\n" +
		"\t\tdistance 5\n"
	st := Parse(text)
	if len(st.OtherASBRs) != 1 || st.OtherASBRs[0].RouterID != "2.2.2.2" || st.OtherASBRs[0].Distance != 5 {
		t.Fatalf("unexpected other ASBRs: %+v", st.OtherASBRs)
	}
}

func TestParseMultipleAreasAndRouters(t *testing.T) {
	text := "area 0.0.0.0\n" +
		"\trouter 1.1.1.1\n" +
		"\t\tdistance 10\n" +
		"\trouter 1.1.1.2\n" +
		"\t\tdistance 20\n" +
		"area 0.0.0.1\n" +
		"\trouter 1.1.1.3\n" +
		"\t\tdistance 30\n"
	st := Parse(text)
	if len(st.AreaRouters["0.0.0.0"]) != 2 {
		t.Fatalf("expected 2 routers in area 0.0.0.0, got %+v", st.AreaRouters["0.0.0.0"])
	}
	if len(st.AreaRouters["0.0.0.1"]) != 1 {
		t.Fatalf("expected 1 router in area 0.0.0.1, got %+v", st.AreaRouters["0.0.0.1"])
	}
}

func TestParseExternalMetricType1(t *testing.T) {
	ext := parseExternalEntry([]string{"10.1.0.0/16", "metric", "5"})
	if ext.MetricType != 1 {
		t.Errorf("MetricType = %d, want 1 (default)", ext.MetricType)
	}
	if ext.Via != "" || ext.Tag != "" {
		t.Errorf("expected no via/tag, got %+v", ext)
	}
}
