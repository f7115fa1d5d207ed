package fitimport

import (
	"testing"
	"time"

	"github.com/kosssst/fleetms/fitimport/export"
)

func TestToSamplesMapsSpeedAndTripID(t *testing.T) {
	speed := 10.0 // m/s
	cadence := 90.0
	canonical := []export.CanonicalSample{
		{Timestamp: time.Unix(0, 0).UTC(), SpeedMPS: &speed, CadenceRPM: &cadence},
	}

	samples := ToSamples("trip-1", canonical)
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	s := samples[0]
	if s.TripID != "trip-1" {
		t.Fatalf("expected tripId trip-1, got %s", s.TripID)
	}
	if s.VehicleSpeedKmh == nil || *s.VehicleSpeedKmh != 36.0 {
		t.Fatalf("expected 36 km/h, got %v", s.VehicleSpeedKmh)
	}
	if s.Latitude != nil || s.Longitude != nil {
		t.Fatalf("expected no GPS fix from a power-meter FIT file")
	}
}
