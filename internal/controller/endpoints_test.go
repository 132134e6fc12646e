package controller

import (
	"encoding/json"
	"testing"
)

func TestParseExtraValid(t *testing.T) {
	raw := json.RawMessage(`{"ospf":{"cost":1000,"ping":true,"offset":5}}`)
	extra := parseExtra(7, raw)
	if extra == nil || extra.OSPF == nil {
		t.Fatalf("expected parsed ospf extra, got %+v", extra)
	}
	if extra.OSPF.Cost != 1000 || !extra.OSPF.Ping || extra.OSPF.Offset != 5 {
		t.Fatalf("unexpected ospf extra: %+v", extra.OSPF)
	}
}

func TestParseExtraMalformedIsAbsentNotFatal(t *testing.T) {
	raw := json.RawMessage(`{not valid json`)
	extra := parseExtra(7, raw)
	if extra != nil {
		t.Fatalf("expected nil extra on parse failure, got %+v", extra)
	}
}

func TestParseExtraEmptyIsAbsent(t *testing.T) {
	if extra := parseExtra(7, nil); extra != nil {
		t.Fatalf("expected nil extra for empty input, got %+v", extra)
	}
}

func TestParseExtraUnderlay(t *testing.T) {
	raw := json.RawMessage(`{"underlay":{"provider":"gost_relay_client","config":{"dstHost":"1.2.3.4","dstPort":443}}}`)
	extra := parseExtra(7, raw)
	if extra == nil || extra.Underlay == nil {
		t.Fatalf("expected parsed underlay extra, got %+v", extra)
	}
	if extra.Underlay.Provider != ProviderGostRelayClient {
		t.Fatalf("Provider = %q, want %q", extra.Underlay.Provider, ProviderGostRelayClient)
	}
}
