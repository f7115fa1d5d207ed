// Package gtk provides the Geo/Time Kernel: pure numerical primitives shared
// by the feature pipeline. Every function here is allocation-light, NaN-in
// NaN-out, and free of I/O.
package gtk

import (
	"math"
	"sort"
)

// EarthRadiusKm is the great-circle radius used by Haversine.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// lat/lon points. NaN in any input propagates to NaN out.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	if math.IsNaN(lat1) || math.IsNaN(lon1) || math.IsNaN(lat2) || math.IsNaN(lon2) {
		return math.NaN()
	}
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// HaversineMeters is Haversine expressed in meters, the unit most plateau
// backfill and grade computations want.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return Haversine(lat1, lon1, lat2, lon2) * 1000
}

// RobustRolling applies a centered rolling median of window w followed by a
// centered rolling mean of window w, both with min_periods = max(1, w/2).
// Length is preserved; NaNs in the input are excluded from both windows.
func RobustRolling(series []float64, w int) []float64 {
	if w < 1 {
		w = 1
	}
	minPeriods := w / 2
	if minPeriods < 1 {
		minPeriods = 1
	}
	med := rollingCentered(series, w, minPeriods, median)
	return rollingCentered(med, w, minPeriods, mean)
}

// RollingMedian computes a centered rolling median with window w,
// min_periods = max(1, w/2).
func RollingMedian(series []float64, w int) []float64 {
	if w < 1 {
		w = 1
	}
	minPeriods := w / 2
	if minPeriods < 1 {
		minPeriods = 1
	}
	return rollingCentered(series, w, minPeriods, median)
}

// RollingMean computes a centered rolling mean with window w, min_periods=1.
func RollingMean(series []float64, w int) []float64 {
	return rollingCentered(series, w, 1, mean)
}

// RollingStd computes a centered rolling sample standard deviation with
// window w, min_periods=1. A window with fewer than two finite observations
// yields NaN, matching a single-observation std being undefined.
func RollingStd(series []float64, w int) []float64 {
	return rollingCentered(series, w, 1, stddev)
}

// IrregularDiff returns (values[i]-values[i-1])/(times[i]-times[i-1]) for
// each i>0; values[0] is NaN. Callers are responsible for masking out gaps
// they consider too large (e.g. dt > gap_s).
func IrregularDiff(values []float64, times []float64) []float64 {
	out := make([]float64, len(values))
	if len(out) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(values); i++ {
		dt := times[i] - times[i-1]
		if dt == 0 || math.IsNaN(values[i]) || math.IsNaN(values[i-1]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (values[i] - values[i-1]) / dt
	}
	return out
}

func rollingCentered(series []float64, w, minPeriods int, agg func([]float64) float64) []float64 {
	n := len(series)
	out := make([]float64, n)
	half := w / 2
	for i := 0; i < n; i++ {
		lo := i - half
		hi := i + (w - half) - 1
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}
		window := make([]float64, 0, hi-lo+1)
		for j := lo; j <= hi; j++ {
			if !math.IsNaN(series[j]) {
				window = append(window, series[j])
			}
		}
		if len(window) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = agg(window)
	}
	return out
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}
