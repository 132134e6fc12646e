package ping

import "testing"

func TestTrimmedMeanTenSamples(t *testing.T) {
	samples := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 100}
	got := trimmedMean(samples)
	if got == nil {
		t.Fatal("expected a result")
	}
	if *got != 1.0 {
		t.Fatalf("trimmedMean = %v, want 1.0", *got)
	}
}

func TestTrimmedMeanSmallSample(t *testing.T) {
	got := trimmedMean([]float64{10, 20})
	if got == nil || *got != 15 {
		t.Fatalf("trimmedMean([10,20]) = %v, want 15", got)
	}

	got = trimmedMean([]float64{42})
	if got == nil || *got != 42 {
		t.Fatalf("trimmedMean([42]) = %v, want 42", got)
	}
}

func TestTrimmedMeanEmpty(t *testing.T) {
	if got := trimmedMean(nil); got != nil {
		t.Fatalf("trimmedMean(nil) = %v, want nil", got)
	}
}

func TestParsePingLine(t *testing.T) {
	ms, ok := parsePingLine("[1700000000.123456] 64 bytes from 10.0.0.2: icmp_seq=1 ttl=64 time=27.3 ms")
	if !ok || ms != 27.3 {
		t.Fatalf("parsePingLine = (%v, %v), want (27.3, true)", ms, ok)
	}

	if _, ok := parsePingLine("PING 10.0.0.2 (10.0.0.2) 56(84) bytes of data."); ok {
		t.Fatal("expected no match on header line")
	}
}
