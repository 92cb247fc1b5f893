package actor

import (
	"errors"
	"testing"
)

func TestParseIDRoundTrip(t *testing.T) {
	id := NamedID("owner")
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("round trip mismatch: %s != %s", parsed, id)
	}
}

func TestParseIDRejectsShortInput(t *testing.T) {
	if _, err := ParseID("0xabcd"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestResolveIDFallsBackToLabel(t *testing.T) {
	if ResolveID("store") != NamedID("store") {
		t.Fatalf("expected label resolution")
	}
	hex := NamedID("x").String()
	if ResolveID(hex) != NamedID("x") {
		t.Fatalf("expected hex resolution")
	}
}

func TestZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatalf("zero id should report IsZero")
	}
	if NamedID("a").IsZero() {
		t.Fatalf("named id should not be zero")
	}
}

func TestReservationIDWidthAndText(t *testing.T) {
	a, b := NewReservationID(), NewReservationID()
	if len(a) != 32 || a == b {
		t.Fatalf("expected distinct 32-byte handles, got %s and %s", a, b)
	}
	text, err := a.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ReservationID
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal %s: %v", text, err)
	}
	if back != a {
		t.Fatalf("text round trip mismatch: %s != %s", back, a)
	}
}
