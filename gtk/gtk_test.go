package gtk

import (
	"math"
	"testing"
)

func TestHaversineZeroDistance(t *testing.T) {
	d := Haversine(50.45, 30.52, 50.45, 30.52)
	if math.Abs(d) > 1e-9 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}

func TestHaversineNaNPropagates(t *testing.T) {
	d := Haversine(math.NaN(), 30.52, 50.45, 30.52)
	if !math.IsNaN(d) {
		t.Fatalf("expected NaN, got %v", d)
	}
}

func TestHaversineMetersKnownSpan(t *testing.T) {
	// ~111.2 m per 0.001 degree of latitude near the equator.
	d := HaversineMeters(0, 0, 0.001, 0)
	if d < 100 || d > 120 {
		t.Fatalf("expected ~111m, got %v", d)
	}
}

func TestRollingMeanPreservesLength(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	out := RollingMean(series, 5)
	if len(out) != len(series) {
		t.Fatalf("expected length %d, got %d", len(series), len(out))
	}
	if math.Abs(out[2]-3) > 1e-9 {
		t.Fatalf("expected centered mean 3 at index 2, got %v", out[2])
	}
}

func TestRollingStdSingleObservationIsNaN(t *testing.T) {
	series := []float64{5}
	out := RollingStd(series, 5)
	if !math.IsNaN(out[0]) {
		t.Fatalf("expected NaN for single-observation window, got %v", out[0])
	}
}

func TestRobustRollingPreservesLength(t *testing.T) {
	series := []float64{1, 100, 2, 3, 4, 5, 6}
	out := RobustRolling(series, 5)
	if len(out) != len(series) {
		t.Fatalf("expected length %d, got %d", len(series), len(out))
	}
}

func TestIrregularDiffFirstElementNaN(t *testing.T) {
	values := []float64{1, 2, 4}
	times := []float64{0, 1, 3}
	out := IrregularDiff(values, times)
	if !math.IsNaN(out[0]) {
		t.Fatalf("expected NaN at index 0, got %v", out[0])
	}
	if math.Abs(out[1]-1) > 1e-9 {
		t.Fatalf("expected rate 1 at index 1, got %v", out[1])
	}
	if math.Abs(out[2]-1) > 1e-9 {
		t.Fatalf("expected rate 1 at index 2, got %v", out[2])
	}
}

func TestIrregularDiffZeroDtNoDivideByZero(t *testing.T) {
	values := []float64{1, 2}
	times := []float64{0, 0}
	out := IrregularDiff(values, times)
	if !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN for zero dt, got %v", out[1])
	}
}
