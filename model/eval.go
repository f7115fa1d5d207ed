package model

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Evaluate computes MAE, RMSE and R² between predicted and actual values,
// the triple persisted to metrics.txt and reported in manifest.metrics.
func Evaluate(predicted, actual []float64) Metrics {
	n := len(actual)
	if n == 0 {
		return Metrics{}
	}
	var absSum, sqSum float64
	for i := 0; i < n; i++ {
		d := predicted[i] - actual[i]
		absSum += abs(d)
		sqSum += d * d
	}
	mae := absSum / float64(n)
	rmse := math.Sqrt(sqSum / float64(n))

	mean := stat.Mean(actual, nil)
	var ssTot float64
	for _, v := range actual {
		d := v - mean
		ssTot += d * d
	}
	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - sqSum/ssTot
	}
	return Metrics{MAE: mae, RMSE: rmse, R2: r2}
}

func abs(v float64) float64 {
	return math.Abs(v)
}
