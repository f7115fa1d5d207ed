package pipeline

import (
	"math"
	"sort"
)

// buildFeatureMatrix assembles the FeatureColumns-ordered matrix for rows,
// given the rolling mean/std sets already computed over the same rows.
func buildFeatureMatrix(rows []row, rolling map[string]rollingSet) [][]float64 {
	matrix := make([][]float64, len(rows))
	for i, r := range rows {
		matrix[i] = []float64{
			naf(r.hasSpeedKmh, r.speedKmh),
			naf(r.hasAccel, r.accelMs2),
			naf(r.hasRPM, r.rpm),
			naf(r.hasThrottle, r.throttle),
			naf(r.hasCoolantC, r.coolantC),
			naf(r.hasIntakeC, r.intakeC),
			rolling["speedKmh"].mean[i],
			rolling["speedKmh"].std[i],
			rolling["accel_ms2"].mean[i],
			rolling["accel_ms2"].std[i],
			rolling["obd_rpm"].mean[i],
			rolling["obd_rpm"].std[i],
			rolling["obd_throttle"].mean[i],
			rolling["obd_throttle"].std[i],
			naf(r.hasGrade, r.grade),
		}
	}
	return matrix
}

// imputeMedian is step 11 (training mode only): drop rows where y is
// missing or every feature is missing, then fill remaining NaN feature
// values with the column-wide median across the whole input corpus.
func imputeMedian(rows []row, matrix [][]float64, y []float64) ([]row, [][]float64, []float64) {
	keptRows := make([]row, 0, len(rows))
	keptMatrix := make([][]float64, 0, len(matrix))
	keptY := make([]float64, 0, len(y))
	for i := range rows {
		if math.IsNaN(y[i]) || allNaN(matrix[i]) {
			continue
		}
		keptRows = append(keptRows, rows[i])
		keptMatrix = append(keptMatrix, matrix[i])
		keptY = append(keptY, y[i])
	}

	nCols := len(FeatureColumns)
	medians := make([]float64, nCols)
	for c := 0; c < nCols; c++ {
		col := make([]float64, 0, len(keptMatrix))
		for _, r := range keptMatrix {
			if !math.IsNaN(r[c]) {
				col = append(col, r[c])
			}
		}
		medians[c] = median(col)
	}
	for _, r := range keptMatrix {
		for c := 0; c < nCols; c++ {
			if math.IsNaN(r[c]) {
				r[c] = medians[c]
			}
		}
	}
	return keptRows, keptMatrix, keptY
}

// zeroFillInference is the inference-mode imputation boundary (§4.2 and
// §4.3): missing feature values become 0.0 at the X-matrix boundary, rows
// are never dropped.
func zeroFillInference(matrix [][]float64) {
	for _, r := range matrix {
		for c := range r {
			if math.IsNaN(r[c]) {
				r[c] = 0.0
			}
		}
	}
}

func allNaN(xs []float64) bool {
	for _, x := range xs {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
