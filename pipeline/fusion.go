package pipeline

import "math"

// fuseSpeed is step 5: complementary fusion of OBD and GPS speeds with a
// data-dependent weight alpha, falling back to whichever source is present
// when the other is missing.
func fuseSpeed(rows []row, cfg Config) {
	for k := range rows {
		r := &rows[k]
		obd, hasOBD := r.obdSpeedKmh, r.hasOBDSpeed
		gps, hasGPS := r.gpsSpeedSmooth, r.hasGPSSpeedSmooth

		switch {
		case hasOBD && hasGPS:
			alpha := cfg.Alpha
			if math.Abs(obd-gps) > cfg.MismatchKmh {
				alpha = math.Max(alpha, 0.75)
			}
			v := alpha*obd + (1-alpha)*gps
			r.speedKmh, r.hasSpeedKmh = clip(v, cfg.VMaxKmh), true
		case hasOBD:
			r.speedKmh, r.hasSpeedKmh = clip(obd, cfg.VMaxKmh), true
		case hasGPS:
			// alpha=0.85 base weight toward OBD is moot with OBD absent;
			// GPS-only rows pass through directly per the spec's GPS-NaN
			// fallback rule.
			r.speedKmh, r.hasSpeedKmh = clip(gps, cfg.VMaxKmh), true
		default:
			r.hasSpeedKmh = false
		}
	}
}

func clip(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}
