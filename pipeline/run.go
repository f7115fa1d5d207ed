package pipeline

import (
	"math"
	"time"

	"github.com/kosssst/fleetms/telemetry"
)

// sharedSteps runs steps 1-5, common to both training and inference mode:
// normalize, GPS plateau backfill + fallback/smoothing + physics rejection,
// and complementary fusion. Splitting training from inference here (rather
// than reimplementing FP twice) is what keeps serving skew impossible by
// construction.
func sharedSteps(samples []telemetry.Sample, cfg Config) ([]row, [][2]int) {
	rows := samplesToRows(samples)
	rows = normalize(rows)
	groups := tripGroups(rows)
	stampRelativeSeconds(rows, groups)
	reconstructGPSSpeed(rows, groups, cfg)
	fuseSpeed(rows, cfg)
	return rows, groups
}

// Run executes the full training-mode pipeline (steps 1-12) and returns the
// Feature Frame plus the fixed feature_cols list.
func Run(samples []telemetry.Sample, cfg Config) (Frame, []string) {
	rows, _ := sharedSteps(samples, cfg)

	rows = prepareTarget(rows, cfg)
	groups := tripGroups(rows)

	computeAccel(rows, groups, cfg)
	rolling := computeRollingFeatures(rows, groups)
	computeGrade(rows, groups)

	matrix := buildFeatureMatrix(rows, rolling)
	y := extractY(rows)

	// Step 10: min-speed row filter operates on the already-computed
	// feature matrix, not a recomputation — rolling windows were formed
	// over the pre-filter trip sequence per spec step order (8 before 10).
	rows, matrix, y = applyMinSpeedFilter(rows, matrix, y, cfg)

	keptRows, keptMatrix, keptY := imputeMedian(rows, matrix, y)

	frame := Frame{
		TripID:    make([]string, len(keptRows)),
		Timestamp: make([]time.Time, len(keptRows)),
		Features:  keptMatrix,
		Y:         keptY,
	}
	for i, r := range keptRows {
		frame.TripID[i] = r.tripID
		frame.Timestamp[i] = r.timestamp
	}
	return frame, append([]string(nil), FeatureColumns...)
}

// RunInference executes the inference-mode variant (steps 1-5, 7-9, no
// target, no row drop, no median imputation). featureColumns is the MA's
// feature_columns.json order; any name in it that Run doesn't produce is
// filled with zero and reported as a warning.
func RunInference(samples []telemetry.Sample, cfg Config, featureColumns []string) (Frame, []string) {
	rows, groups := sharedSteps(samples, cfg)

	computeAccel(rows, groups, cfg)
	clampAccelInference(rows, cfg)
	rolling := computeRollingFeatures(rows, groups)
	computeGrade(rows, groups)

	matrix := buildFeatureMatrix(rows, rolling)
	zeroFillInference(matrix)

	ordered, warnings := reorderColumns(matrix, FeatureColumns, featureColumns)

	frame := Frame{
		TripID:    make([]string, len(rows)),
		Timestamp: make([]time.Time, len(rows)),
		Features:  ordered,
		Y:         make([]float64, len(rows)),
	}
	for i, r := range rows {
		frame.TripID[i] = r.tripID
		frame.Timestamp[i] = r.timestamp
		frame.Y[i] = math.NaN()
	}
	return frame, warnings
}

func extractY(rows []row) []float64 {
	y := make([]float64, len(rows))
	for i, r := range rows {
		y[i] = naf(r.hasFuel, r.fuelMLs)
	}
	return y
}

// applyMinSpeedFilter is step 10: keep rows with fused speed >= MinSpeedKmh
// or a non-null target, selecting matching entries out of rows/matrix/y in
// lockstep so already-computed feature values survive untouched.
func applyMinSpeedFilter(rows []row, matrix [][]float64, y []float64, cfg Config) ([]row, [][]float64, []float64) {
	if cfg.MinSpeedKmh <= 0 {
		return rows, matrix, y
	}
	keptRows := make([]row, 0, len(rows))
	keptMatrix := make([][]float64, 0, len(matrix))
	keptY := make([]float64, 0, len(y))
	for i, r := range rows {
		if (r.hasSpeedKmh && r.speedKmh >= cfg.MinSpeedKmh) || r.hasFuel {
			keptRows = append(keptRows, r)
			keptMatrix = append(keptMatrix, matrix[i])
			keptY = append(keptY, y[i])
		}
	}
	return keptRows, keptMatrix, keptY
}

// reorderColumns maps a matrix computed in producedCols order into
// wantCols order, zero-filling and warning for any column wantCols names
// that producedCols doesn't have. Extra columns in producedCols not named
// in wantCols are dropped.
func reorderColumns(matrix [][]float64, producedCols, wantCols []string) ([][]float64, []string) {
	index := make(map[string]int, len(producedCols))
	for i, c := range producedCols {
		index[c] = i
	}
	var warnings []string
	missingWarned := make(map[string]bool)
	out := make([][]float64, len(matrix))
	for r := range matrix {
		row := make([]float64, len(wantCols))
		for c, name := range wantCols {
			if idx, ok := index[name]; ok {
				row[c] = matrix[r][idx]
			} else {
				row[c] = 0.0
				if !missingWarned[name] {
					missingWarned[name] = true
					warnings = append(warnings, "missing feature column "+name+": filled with zero")
				}
			}
		}
		out[r] = row
	}
	return out, warnings
}
