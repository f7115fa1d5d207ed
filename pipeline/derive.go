package pipeline

import (
	"math"

	"github.com/kosssst/fleetms/gtk"
)

func haversineMetersRow(a, b row) float64 {
	return gtk.HaversineMeters(a.lat, a.lon, b.lat, b.lon)
}

func rollingMedian(series []float64, w int) []float64 {
	return gtk.RollingMedian(series, w)
}

// computeAccel is step 7: per trip, speedKmh -> m/s, differenced against the
// previous sample, divided by dt. First sample per trip and samples with
// dt > gap_s are NaN.
func computeAccel(rows []row, groups [][2]int, cfg Config) {
	for _, g := range groups {
		for k := g[0]; k < g[1]; k++ {
			if k == g[0] || !rows[k].hasSpeedKmh || !rows[k-1].hasSpeedKmh {
				continue
			}
			dt := rows[k].tSeconds - rows[k-1].tSeconds
			if dt <= 0 || dt > cfg.GapS {
				continue
			}
			vPrevMs := rows[k-1].speedKmh / 3.6
			vMs := rows[k].speedKmh / 3.6
			rows[k].accelMs2 = (vMs - vPrevMs) / dt
			rows[k].hasAccel = true
		}
	}
}

// clampAccelInference hard-clamps acceleration to [-a_decel_max,
// +a_accel_max], the inference-mode-only divergence from step 7.
func clampAccelInference(rows []row, cfg Config) {
	for k := range rows {
		if !rows[k].hasAccel {
			continue
		}
		if rows[k].accelMs2 > cfg.AAccelMaxMs2 {
			rows[k].accelMs2 = cfg.AAccelMaxMs2
		}
		if rows[k].accelMs2 < -cfg.ADecelMaxMs2 {
			rows[k].accelMs2 = -cfg.ADecelMaxMs2
		}
	}
}

// computeGrade is step 9: per trip, pointwise grade dh/d between
// consecutive GPS fixes for d > 1e-3 m, then a per-trip rolling median of
// window 5.
func computeGrade(rows []row, groups [][2]int) {
	const minSpanM = 1e-3
	for _, g := range groups {
		n := g[1] - g[0]
		pointwise := make([]float64, n)
		pointwise[0] = math.NaN()
		for k := 1; k < n; k++ {
			a, b := g[0]+k-1, g[0]+k
			if !rows[a].hasAlt || !rows[b].hasAlt {
				pointwise[k] = math.NaN()
				continue
			}
			dist := haversineMetersRow(rows[a], rows[b])
			if dist <= minSpanM {
				pointwise[k] = math.NaN()
				continue
			}
			pointwise[k] = (rows[b].altitude - rows[a].altitude) / dist
		}
		smoothed := rollingMedian(pointwise, 5)
		for k := 0; k < n; k++ {
			if math.IsNaN(smoothed[k]) {
				continue
			}
			rows[g[0]+k].grade, rows[g[0]+k].hasGrade = smoothed[k], true
		}
	}
}
