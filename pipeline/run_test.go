package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/kosssst/fleetms/telemetry"
)

func f(v float64) *float64 { return &v }

func TestTwoSampleConstantSpeedTrip(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []telemetry.Sample{
		{
			TripID: "trip-1", Timestamp: t0,
			Latitude: f(50.0), Longitude: f(30.0),
			VehicleSpeedKmh: f(36), EngineRPM: f(1500), AcceleratorPosition: f(20),
			EngineCoolantTempC: f(90), IntakeAirTempC: f(25),
			FuelConsumptionRateMLs: f(1.0),
		},
		{
			TripID: "trip-1", Timestamp: t0.Add(10 * time.Second),
			Latitude: f(50.0009), Longitude: f(30.0), // ~100m north
			VehicleSpeedKmh: f(36), EngineRPM: f(1500), AcceleratorPosition: f(20),
			EngineCoolantTempC: f(90), IntakeAirTempC: f(25),
			FuelConsumptionRateMLs: f(1.0),
		},
	}
	frame, _ := Run(samples, DefaultConfig())
	if frame.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", frame.NumRows())
	}
	for i := 0; i < 2; i++ {
		speed := frame.Row(i)[0]
		if math.Abs(speed-36) > 2 {
			t.Fatalf("row %d: expected speedKmh ~36, got %v", i, speed)
		}
	}
}

func TestPlateauBackfillAssignsAverageSpeed(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lat, lon := 50.0, 30.0
	samples := make([]telemetry.Sample, 0, 6)
	for i := 0; i < 5; i++ {
		samples = append(samples, telemetry.Sample{
			TripID: "trip-1", Timestamp: t0.Add(time.Duration(i) * time.Second),
			Latitude: f(lat), Longitude: f(lon),
			FuelConsumptionRateMLs: f(0.5),
		})
	}
	// ~10m away at t=5s
	samples = append(samples, telemetry.Sample{
		TripID: "trip-1", Timestamp: t0.Add(5 * time.Second),
		Latitude: f(lat + 0.00009), Longitude: f(lon),
		FuelConsumptionRateMLs: f(0.5),
	})

	cfg := DefaultConfig()
	rows, groups := sharedSteps(samples, cfg)
	if len(groups) != 1 {
		t.Fatalf("expected one trip group, got %d", len(groups))
	}
	for i := 1; i < 6; i++ {
		if !rows[i].hasGPSSpeedRaw {
			t.Fatalf("row %d: expected plateau-backfilled raw GPS speed", i)
		}
		if math.Abs(rows[i].gpsSpeedRaw-7.2) > 0.5 {
			t.Fatalf("row %d: expected ~7.2 km/h, got %v", i, rows[i].gpsSpeedRaw)
		}
	}
}

func TestPhysicsRejectionFallsBackToOBD(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// OBD holds 50 km/h while GPS moves 0.0003° of latitude (~33 m) each
	// second, an implied ~120 km/h. Four samples give the robust smoother
	// (min_periods 2) enough finite values to yield a smoothed GPS speed.
	samples := make([]telemetry.Sample, 0, 4)
	for i := 0; i < 4; i++ {
		samples = append(samples, telemetry.Sample{
			TripID: "trip-1", Timestamp: t0.Add(time.Duration(i) * time.Second),
			Latitude: f(50.0 + 0.0003*float64(i)), Longitude: f(30.0),
			VehicleSpeedKmh: f(50),
		})
	}
	cfg := DefaultConfig()
	rows, _ := sharedSteps(samples, cfg)
	// admissible upper bound: 50 + 6*3.6 + 5 = 76.6; GPS implied speed ~120 should be rejected.
	if rows[1].hasGPSSpeedSmooth {
		t.Fatalf("expected GPS speed to be physics-rejected, got %v", rows[1].gpsSpeedSmooth)
	}
	if math.Abs(rows[1].speedKmh-50) > 0.01 {
		t.Fatalf("expected fusion to fall back to OBD speed 50, got %v", rows[1].speedKmh)
	}
}

func TestMismatchEscalatesAlpha(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	rows := []row{
		{tripID: "t", timestamp: t0, obdSpeedKmh: 100, hasOBDSpeed: true, gpsSpeedSmooth: 60, hasGPSSpeedSmooth: true},
	}
	fuseSpeed(rows, cfg)
	want := 0.75*100 + 0.25*60
	if math.Abs(rows[0].speedKmh-want) > 1e-9 {
		t.Fatalf("expected fused speed %v, got %v", want, rows[0].speedKmh)
	}
}

func TestFeatureFrameHasNoNaNAfterImputation(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []telemetry.Sample{
		{TripID: "trip-1", Timestamp: t0, Latitude: f(50), Longitude: f(30), FuelConsumptionRateMLs: f(1.0)},
		{TripID: "trip-1", Timestamp: t0.Add(2 * time.Second), Latitude: f(50.00002), Longitude: f(30), FuelConsumptionRateMLs: f(1.1)},
		{TripID: "trip-1", Timestamp: t0.Add(4 * time.Second), Latitude: f(50.00004), Longitude: f(30), FuelConsumptionRateMLs: f(1.2)},
	}
	frame, cols := Run(samples, DefaultConfig())
	if len(cols) != len(FeatureColumns) {
		t.Fatalf("expected %d feature columns, got %d", len(FeatureColumns), len(cols))
	}
	for i := 0; i < frame.NumRows(); i++ {
		for _, v := range frame.Row(i) {
			if math.IsNaN(v) {
				t.Fatalf("row %d: unexpected NaN after imputation: %v", i, frame.Row(i))
			}
		}
	}
}

func TestSpeedClippedAtVMax(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	rows := []row{
		{tripID: "t", timestamp: t0, obdSpeedKmh: 300, hasOBDSpeed: true},
	}
	fuseSpeed(rows, cfg)
	if rows[0].speedKmh > cfg.VMaxKmh {
		t.Fatalf("expected speed clipped at %v, got %v", cfg.VMaxKmh, rows[0].speedKmh)
	}
}

func TestInferenceModeNeverDropsRows(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []telemetry.Sample{
		// no fuel target at all; training mode would drop every row here.
		{TripID: "trip-1", Timestamp: t0, Latitude: f(50), Longitude: f(30)},
		{TripID: "trip-1", Timestamp: t0.Add(1 * time.Second), Latitude: f(50.00001), Longitude: f(30)},
	}
	frame, _ := RunInference(samples, DefaultInferenceConfig(), FeatureColumns)
	if frame.NumRows() != 2 {
		t.Fatalf("expected inference mode to retain all rows, got %d", frame.NumRows())
	}
	for i := 0; i < frame.NumRows(); i++ {
		for _, v := range frame.Row(i) {
			if math.IsNaN(v) {
				t.Fatalf("row %d: expected zero-fill, got NaN", i)
			}
		}
	}
}

func TestInferenceModeMissingFeatureColumnWarns(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []telemetry.Sample{
		{TripID: "trip-1", Timestamp: t0, Latitude: f(50), Longitude: f(30)},
	}
	wantCols := append(append([]string(nil), FeatureColumns...), "unknown_future_feature")
	_, warnings := RunInference(samples, DefaultInferenceConfig(), wantCols)
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning for the unknown column, got %v", warnings)
	}
}

func TestSingleSampleTripAccelImputed(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []telemetry.Sample{
		{TripID: "trip-1", Timestamp: t0, Latitude: f(50), Longitude: f(30), FuelConsumptionRateMLs: f(0.3)},
	}
	frame, _ := Run(samples, DefaultConfig())
	if frame.NumRows() != 1 {
		t.Fatalf("expected 1 row, got %d", frame.NumRows())
	}
	if math.IsNaN(frame.Row(0)[1]) {
		t.Fatalf("expected accel to be imputed (non-NaN), got NaN")
	}
}

func TestDuplicateTimestampsNoDivideByZero(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []telemetry.Sample{
		{TripID: "trip-1", Timestamp: t0, Latitude: f(50), Longitude: f(30), VehicleSpeedKmh: f(40), FuelConsumptionRateMLs: f(1.0)},
		{TripID: "trip-1", Timestamp: t0, Latitude: f(50), Longitude: f(30), VehicleSpeedKmh: f(40), FuelConsumptionRateMLs: f(1.0)},
	}
	frame, _ := Run(samples, DefaultConfig())
	for i := 0; i < frame.NumRows(); i++ {
		for _, v := range frame.Row(i) {
			if math.IsInf(v, 0) {
				t.Fatalf("row %d: unexpected Inf from zero dt", i)
			}
		}
	}
}
