package model

import "gonum.org/v1/gonum/stat"

// Standardizer holds the per-column mean/std learned at fit time and
// applies (x-mean)/std to new feature matrices, the transform both TR and
// PR apply ahead of the regressor.
type Standardizer struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitStandardizer computes column-wise mean/std over X (rows=samples,
// cols=features). A zero std is kept as 1 to avoid a division blowing up a
// constant column.
func FitStandardizer(x [][]float64) Standardizer {
	if len(x) == 0 {
		return Standardizer{}
	}
	nCols := len(x[0])
	mean := make([]float64, nCols)
	std := make([]float64, nCols)
	col := make([]float64, len(x))
	for c := 0; c < nCols; c++ {
		for r := range x {
			col[r] = x[r][c]
		}
		m, s := stat.MeanStdDev(col, nil)
		if s == 0 {
			s = 1
		}
		mean[c] = m
		std[c] = s
	}
	return Standardizer{Mean: mean, Std: std}
}

// Transform applies the learned standardization to a matrix, returning a
// new matrix (input is left untouched).
func (s Standardizer) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for r := range x {
		row := make([]float64, len(x[r]))
		for c := range row {
			row[c] = (x[r][c] - s.Mean[c]) / s.Std[c]
		}
		out[r] = row
	}
	return out
}
