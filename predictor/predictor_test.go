package predictor

import (
	"math"
	"testing"
	"time"

	"github.com/kosssst/fleetms/telemetry"
)

func TestIntegrateZeroFirstDt(t *testing.T) {
	base := time.Unix(0, 0).UTC()
	timestamps := []time.Time{base, base.Add(1 * time.Second), base.Add(2 * time.Second)}
	yPred := []float64{10, 10, 10} // constant 10 mL/s

	summary := integrate(timestamps, yPred)

	// dt = [0,1,1]; fuel_mL = 10*0 + 10*1 + 10*1 = 20 mL = 0.02 L
	if math.Abs(summary.FuelUsedL-0.02) > 1e-9 {
		t.Fatalf("expected 0.02 L, got %v", summary.FuelUsedL)
	}
	// avg rate = mean(10,10,10)*3.6 = 36
	if math.Abs(summary.AvgFuelRateLph-36.0) > 1e-9 {
		t.Fatalf("expected 36 L/h, got %v", summary.AvgFuelRateLph)
	}
}

func TestIntegrateEmptyYieldsZero(t *testing.T) {
	summary := integrate(nil, nil)
	if summary.FuelUsedL != 0 || summary.AvgFuelRateLph != 0 {
		t.Fatalf("expected zero summary for no predictions, got %+v", summary)
	}
}

func TestGroundTruthMetricsMatchesByTimestamp(t *testing.T) {
	base := time.Unix(100, 0).UTC()
	fuel1, fuel2 := 5.0, 7.0
	samples := []telemetry.Sample{
		{Timestamp: base, FuelConsumptionRateMLs: &fuel1},
		{Timestamp: base.Add(time.Second), FuelConsumptionRateMLs: &fuel2},
	}
	timestamps := []time.Time{base, base.Add(time.Second)}
	yPred := []float64{5, 7}

	mae, rmse, r2, ok := groundTruthMetrics(samples, timestamps, yPred)
	if !ok {
		t.Fatalf("expected ground truth available")
	}
	if mae != 0 || rmse != 0 || r2 != 1 {
		t.Fatalf("expected perfect metrics for identical predictions, got mae=%v rmse=%v r2=%v", mae, rmse, r2)
	}
}

func TestGroundTruthMetricsFalseWhenNoFuelField(t *testing.T) {
	base := time.Unix(0, 0).UTC()
	samples := []telemetry.Sample{{Timestamp: base}}
	_, _, _, ok := groundTruthMetrics(samples, []time.Time{base}, []float64{1})
	if ok {
		t.Fatalf("expected no ground truth when fuelConsumptionRate is absent")
	}
}
