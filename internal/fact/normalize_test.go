package fact

import (
	"errors"
	"testing"
	"time"

	"factored/internal/ingesterr"
)

func TestNormalizeRejectsNilPayload(t *testing.T) {
	_, err := Normalize(InboundMessage{T: 10, D: nil}, nil)
	if !errors.Is(err, ingesterr.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestNormalizeAssignsClockAndType(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }

	f, err := Normalize(InboundMessage{T: 42, D: map[string]any{"a": 1}}, clock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.T != 42 {
		t.Errorf("T = %d, want 42", f.T)
	}
	if !f.C.Equal(fixed) {
		t.Errorf("C = %v, want %v", f.C, fixed)
	}
	if f.ID.Version() != 7 {
		t.Errorf("ID version = %d, want 7 (UUIDv7)", f.ID.Version())
	}
}

func TestNormalizeDefaultsToRealClock(t *testing.T) {
	before := time.Now().UTC()
	f, err := Normalize(InboundMessage{T: 1, D: map[string]any{}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := time.Now().UTC()
	if f.C.Before(before) || f.C.After(after) {
		t.Errorf("C = %v, want between %v and %v", f.C, before, after)
	}
}

func TestNormalizeGeneratesUniqueIDs(t *testing.T) {
	f1, _ := Normalize(InboundMessage{T: 1, D: map[string]any{}}, nil)
	f2, _ := Normalize(InboundMessage{T: 1, D: map[string]any{}}, nil)
	if f1.ID == f2.ID {
		t.Error("expected distinct ids across calls")
	}
}
