package lobby

import "testing"

func TestParseEnvelopeString(t *testing.T) {
	e, err := ParseEnvelope("0 6 S S 5 _  hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Target != TargetSystem || e.Type != 5 || e.Binary || e.Text != "hello" {
		t.Fatalf("got %+v", e)
	}
}

func TestParseEnvelopeBinary(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	enc := DWCEncode(data)
	raw := "0 6 B A 9 _  " + enc
	e, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Binary || e.Target != TargetApp || e.Type != 9 {
		t.Fatalf("got %+v", e)
	}
	if string(e.Data) != string(data) {
		t.Fatalf("data mismatch: got %x want %x", e.Data, data)
	}
}

func TestParseEnvelopeRejectsBadTokenCount(t *testing.T) {
	if _, err := ParseEnvelope("0 6 S S 5 _"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseEnvelopeRejectsBadConstants(t *testing.T) {
	if _, err := ParseEnvelope("1 6 S S 5 _  x"); err == nil {
		t.Fatal("expected error for bad leading constant")
	}
}

func TestEnvelopeFormatRoundTrip(t *testing.T) {
	e := Envelope{Target: TargetSystem, Type: 3, Text: "hi"}
	parsed, err := ParseEnvelope(e.Format())
	if err != nil {
		t.Fatalf("round trip parse: %v", err)
	}
	if parsed.Text != "hi" || parsed.Type != 3 {
		t.Fatalf("got %+v", parsed)
	}
}
