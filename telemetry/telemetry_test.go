package telemetry

import (
	"testing"
	"time"
)

func floatPtr(f float64) *float64 { return &f }

func TestFlattenOBDFuelWinsOverRoot(t *testing.T) {
	raw := RawSample{
		TripID:    "trip-1",
		Timestamp: time.Now(),
		OBD: &RawOBD{
			FuelConsumptionRate: floatPtr(1.5),
		},
		FuelConsumptionRateRoot: floatPtr(9.9),
	}
	s := Flatten(raw)
	if s.FuelConsumptionRateMLs == nil || *s.FuelConsumptionRateMLs != 1.5 {
		t.Fatalf("expected OBD fuel rate to win, got %v", s.FuelConsumptionRateMLs)
	}
}

func TestFlattenRootFallback(t *testing.T) {
	raw := RawSample{
		TripID:                  "trip-1",
		Timestamp:               time.Now(),
		FuelConsumptionRateRoot: floatPtr(2.2),
	}
	s := Flatten(raw)
	if s.FuelConsumptionRateMLs == nil || *s.FuelConsumptionRateMLs != 2.2 {
		t.Fatalf("expected root fallback fuel rate, got %v", s.FuelConsumptionRateMLs)
	}
}

func TestFlattenNoFuelIsNil(t *testing.T) {
	raw := RawSample{TripID: "trip-1", Timestamp: time.Now()}
	s := Flatten(raw)
	if s.FuelConsumptionRateMLs != nil {
		t.Fatalf("expected nil fuel rate, got %v", *s.FuelConsumptionRateMLs)
	}
}

func TestManifestAllTripIDsDedupesUnion(t *testing.T) {
	m := Manifest{
		TrainTripIDs: []string{"a", "b"},
		ValTripIDs:   []string{"b", "c"},
	}
	got := m.AllTripIDs()
	if len(got) != 3 {
		t.Fatalf("expected 3 unique trip ids, got %d (%v)", len(got), got)
	}
}
