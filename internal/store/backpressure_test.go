package store

import (
	"testing"
	"time"
)

func TestBackpressureGateTripsAfterSustainedSaturation(t *testing.T) {
	gate := NewBackpressureGate(10, 5, 2*time.Second)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	gate.Sample(PoolStats{CheckedOut: 12}, base)
	if !gate.Allow() {
		t.Fatal("gate should not trip on first saturated sample")
	}

	gate.Sample(PoolStats{CheckedOut: 12}, base.Add(1*time.Second))
	if !gate.Allow() {
		t.Fatal("gate should not trip before sustainFor elapses")
	}

	gate.Sample(PoolStats{CheckedOut: 12}, base.Add(3*time.Second))
	if gate.Allow() {
		t.Fatal("gate should trip once saturated for longer than sustainFor")
	}
}

func TestBackpressureGateResetsAtLowWaterMark(t *testing.T) {
	gate := NewBackpressureGate(10, 5, time.Second)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	gate.Sample(PoolStats{CheckedOut: 12}, base)
	gate.Sample(PoolStats{CheckedOut: 12}, base.Add(2*time.Second))
	if gate.Allow() {
		t.Fatal("gate should be tripped")
	}

	gate.Sample(PoolStats{CheckedOut: 4}, base.Add(3*time.Second))
	if !gate.Allow() {
		t.Fatal("gate should reset once checked-out falls to low water mark")
	}
}

func TestBackpressureGateDisabledWhenMarksInverted(t *testing.T) {
	gate := NewBackpressureGate(5, 10, time.Second)
	gate.Sample(PoolStats{CheckedOut: 100}, time.Now())
	if !gate.Allow() {
		t.Error("gate with high <= low water mark should never trip")
	}
}
