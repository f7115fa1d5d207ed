package pipeline

import (
	"math"

	"github.com/kosssst/fleetms/gtk"
)

// reconstructGPSSpeed runs steps 2-4 per trip group: plateau backfill,
// step-differencing fallback + robust smoothing, and physics rejection.
// It mutates rows in place, setting gpsSpeedRaw/hasGPSSpeedRaw and
// gpsSpeedSmooth/hasGPSSpeedSmooth.
func reconstructGPSSpeed(rows []row, groups [][2]int, cfg Config) {
	for _, g := range groups {
		plateauBackfill(rows, g, cfg)
		fallbackAndSmooth(rows, g, cfg)
		physicsReject(rows, g, cfg)
	}
}

// plateauBackfill is step 2: anchor i, advance j while displacement from i
// stays within gps_same_eps_m; on exceeding it, if the elapsed time falls
// within (gps_min_span_s, gps_max_span_s], assign the average speed across
// (i,j] retroactively.
func plateauBackfill(rows []row, g [2]int, cfg Config) {
	i := g[0]
	for i < g[1]-1 {
		j := i + 1
		for j < g[1] && gtk.HaversineMeters(rows[i].lat, rows[i].lon, rows[j].lat, rows[j].lon) <= cfg.GPSSameEpsM {
			j++
		}
		if j >= g[1] {
			// unresolved tail: no exceeding sample found, leave NaN.
			break
		}
		dt := rows[j].tSeconds - rows[i].tSeconds
		if dt > cfg.GPSMinSpanS && dt <= cfg.GPSMaxSpanS {
			dist := gtk.HaversineMeters(rows[i].lat, rows[i].lon, rows[j].lat, rows[j].lon)
			speedKmh := (dist / dt) * 3.6
			for k := i + 1; k <= j; k++ {
				rows[k].gpsSpeedRaw, rows[k].hasGPSSpeedRaw = speedKmh, true
			}
		}
		i = j
	}
}

// fallbackAndSmooth is step 3: where plateau backfill produced no value,
// differences against the previous sample; then robust_rolling(w=5) over
// the combined raw series, clipped at vmax_kmh both before and after
// smoothing.
func fallbackAndSmooth(rows []row, g [2]int, cfg Config) {
	for k := g[0]; k < g[1]; k++ {
		if rows[k].hasGPSSpeedRaw {
			continue
		}
		if k == g[0] {
			continue
		}
		dt := rows[k].tSeconds - rows[k-1].tSeconds
		if dt <= 0 || dt > cfg.GapS {
			continue
		}
		dist := gtk.HaversineMeters(rows[k-1].lat, rows[k-1].lon, rows[k].lat, rows[k].lon)
		rows[k].gpsSpeedRaw = (dist / dt) * 3.6
		rows[k].hasGPSSpeedRaw = true
	}

	n := g[1] - g[0]
	raw := make([]float64, n)
	for k := 0; k < n; k++ {
		raw[k] = naf(rows[g[0]+k].hasGPSSpeedRaw, rows[g[0]+k].gpsSpeedRaw)
		if !math.IsNaN(raw[k]) && raw[k] > cfg.VMaxKmh {
			raw[k] = cfg.VMaxKmh
		}
	}
	smooth := gtk.RobustRolling(raw, 5)
	for k := 0; k < n; k++ {
		if math.IsNaN(smooth[k]) {
			continue
		}
		v := smooth[k]
		if v > cfg.VMaxKmh {
			v = cfg.VMaxKmh
		}
		rows[g[0]+k].gpsSpeedSmooth, rows[g[0]+k].hasGPSSpeedSmooth = v, true
	}
}

// physicsReject is step 4: reject a smoothed GPS sample whose implied
// acceleration from the previous reference speed exceeds physically
// admissible bounds.
func physicsReject(rows []row, g [2]int, cfg Config) {
	for k := g[0] + 1; k < g[1]; k++ {
		if !rows[k].hasGPSSpeedSmooth {
			continue
		}
		dt := rows[k].tSeconds - rows[k-1].tSeconds
		if dt <= 0 {
			continue
		}
		vPrev, ok := referencePrevSpeed(rows, k)
		if !ok {
			continue
		}
		lower := math.Max(0, vPrev-cfg.ADecelMaxMs2*dt*3.6) - cfg.PhysMarginKmh
		upper := vPrev + cfg.AAccelMaxMs2*dt*3.6 + cfg.PhysMarginKmh
		v := rows[k].gpsSpeedSmooth
		if v < lower || v > upper {
			rows[k].hasGPSSpeedSmooth = false
		}
	}
}

// referencePrevSpeed is v_obd_prev, falling back to the previous sample's
// smoothed GPS speed.
func referencePrevSpeed(rows []row, k int) (float64, bool) {
	if rows[k-1].hasOBDSpeed {
		return rows[k-1].obdSpeedKmh, true
	}
	if rows[k-1].hasGPSSpeedSmooth {
		return rows[k-1].gpsSpeedSmooth, true
	}
	return 0, false
}
