package pipeline

import "github.com/kosssst/fleetms/gtk"

// rollingSet holds the per-row rolling mean/std for one base signal.
type rollingSet struct {
	mean []float64
	std  []float64
}

// computeRollingFeatures is step 8: per-trip trailing rolling mean and std
// (window 5, min_periods=1) for speedKmh, accel_ms2, obd_rpm, obd_throttle. _std5
// intentionally evaluates to NaN on the first sample per group.
func computeRollingFeatures(rows []row, groups [][2]int) map[string]rollingSet {
	extract := map[string]func(row) (float64, bool){
		"speedKmh":     func(r row) (float64, bool) { return r.speedKmh, r.hasSpeedKmh },
		"accel_ms2":    func(r row) (float64, bool) { return r.accelMs2, r.hasAccel },
		"obd_rpm":      func(r row) (float64, bool) { return r.rpm, r.hasRPM },
		"obd_throttle": func(r row) (float64, bool) { return r.throttle, r.hasThrottle },
	}

	result := make(map[string]rollingSet, len(extract))
	for name, get := range extract {
		mean := make([]float64, len(rows))
		std := make([]float64, len(rows))
		for _, g := range groups {
			n := g[1] - g[0]
			series := make([]float64, n)
			for k := 0; k < n; k++ {
				v, ok := get(rows[g[0]+k])
				series[k] = naf(ok, v)
			}
			// Row k covers rows max(0,k-4)..k. gtk's windows are centered,
			// so a centered window of 9 read at the slice's last element
			// spans the whole trailing slice of up to 5 values.
			m := make([]float64, n)
			s := make([]float64, n)
			for k := 0; k < n; k++ {
				win := series[max(0, k-4) : k+1]
				last := len(win) - 1
				m[k] = gtk.RollingMean(win, 9)[last]
				s[k] = gtk.RollingStd(win, 9)[last]
			}
			copy(mean[g[0]:g[1]], m)
			copy(std[g[0]:g[1]], s)
		}
		result[name] = rollingSet{mean: mean, std: std}
	}
	return result
}
