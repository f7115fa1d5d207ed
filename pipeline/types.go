package pipeline

import (
	"math"
	"time"

	"github.com/kosssst/fleetms/telemetry"
)

// Frame is the model-ready table FP emits: exactly
// ["tripId","timestamp"] + FeatureColumns + ["y"], row order preserved.
type Frame struct {
	TripID    []string
	Timestamp []time.Time
	Features  [][]float64 // len(Features) == len(TripID); each row has len(FeatureColumns) columns
	Y         []float64   // NaN where no target (inference mode)
}

// NumRows reports how many rows the frame holds.
func (f Frame) NumRows() int { return len(f.TripID) }

// Row returns the feature vector for row i in FeatureColumns order.
func (f Frame) Row(i int) []float64 { return f.Features[i] }

// row is the pipeline's internal per-sample working state threaded through
// every step. One row per input sample that survives normalization; rows
// are grouped contiguously by trip and ordered by timestamp within a trip.
type row struct {
	tripID    string
	timestamp time.Time
	tSeconds  float64 // seconds since the trip's first sample, for dt arithmetic
	lat       float64
	lon       float64
	hasLatLon bool
	altitude  float64
	hasAlt    bool

	obdSpeedKmh     float64
	hasOBDSpeed     bool
	rpm             float64
	hasRPM          bool
	throttle        float64
	hasThrottle     bool
	coolantC        float64
	hasCoolantC     bool
	intakeC         float64
	hasIntakeC      bool
	fuelMLs         float64
	hasFuel         bool

	gpsSpeedRaw    float64 // plateau-backfilled or step-differenced, pre-smoothing
	hasGPSSpeedRaw bool
	gpsSpeedSmooth float64 // post robust_rolling, post physics rejection
	hasGPSSpeedSmooth bool

	speedKmh    float64
	hasSpeedKmh bool

	accelMs2    float64
	hasAccel    bool

	grade    float64
	hasGrade bool

	droppedIdle bool
}

func ptrOr(p *float64, fallback float64) (float64, bool) {
	if p == nil {
		return fallback, false
	}
	return *p, true
}

func samplesToRows(samples []telemetry.Sample) []row {
	rows := make([]row, 0, len(samples))
	for _, s := range samples {
		r := row{tripID: s.TripID, timestamp: s.Timestamp}
		if s.Latitude != nil && s.Longitude != nil {
			r.lat, r.hasLatLon = *s.Latitude, true
			r.lon = *s.Longitude
		}
		if s.Altitude != nil {
			r.altitude, r.hasAlt = *s.Altitude, true
		}
		if v, ok := ptrOr(s.VehicleSpeedKmh, 0); ok {
			r.obdSpeedKmh, r.hasOBDSpeed = v, true
		}
		if v, ok := ptrOr(s.EngineRPM, 0); ok {
			r.rpm, r.hasRPM = v, true
		}
		if v, ok := ptrOr(s.AcceleratorPosition, 0); ok {
			r.throttle, r.hasThrottle = v, true
		}
		if v, ok := ptrOr(s.EngineCoolantTempC, 0); ok {
			r.coolantC, r.hasCoolantC = v, true
		}
		if v, ok := ptrOr(s.IntakeAirTempC, 0); ok {
			r.intakeC, r.hasIntakeC = v, true
		}
		if v, ok := ptrOr(s.FuelConsumptionRateMLs, 0); ok {
			r.fuelMLs, r.hasFuel = v, true
		}
		rows = append(rows, r)
	}
	return rows
}

func naf(has bool, v float64) float64 {
	if !has {
		return math.NaN()
	}
	return v
}
