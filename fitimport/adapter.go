package fitimport

import (
	"github.com/kosssst/fleetms/fitimport/export"
	"github.com/kosssst/fleetms/telemetry"
)

// ToSamples bridges the retained FIT-file tooling's CanonicalSample rows
// into the telemetry domain's Sample view, under tripID. Power-meter FIT
// files carry no GPS fix, so Latitude/Longitude are always nil here — the
// Feature Pipeline's normalize step drops such rows, which is expected:
// this adapter exists to exercise the retained tooling from the new
// domain, not to claim cycling telemetry is a substitute for vehicle
// telemetry with real GPS.
func ToSamples(tripID string, canonical []export.CanonicalSample) []telemetry.Sample {
	out := make([]telemetry.Sample, len(canonical))
	for i, c := range canonical {
		s := telemetry.Sample{
			TripID:    tripID,
			Timestamp: c.Timestamp,
			Altitude:  c.AltitudeM,
		}
		if c.SpeedMPS != nil {
			kmh := *c.SpeedMPS * 3.6
			s.VehicleSpeedKmh = &kmh
		}
		if c.CadenceRPM != nil {
			s.EngineRPM = c.CadenceRPM
		}
		if c.TemperatureC != nil {
			s.IntakeAirTempC = c.TemperatureC
		}
		out[i] = s
	}
	return out
}
