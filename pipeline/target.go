package pipeline

// prepareTarget is step 6 (training mode only): drop rows missing
// fuelConsumptionRate, then optionally drop idle rows (speed and fuel both
// below their idle thresholds).
func prepareTarget(rows []row, cfg Config) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if !r.hasFuel {
			continue
		}
		if cfg.DropIdle && r.hasSpeedKmh && r.speedKmh < cfg.IdleSpeedKmh && r.fuelMLs < cfg.IdleFuelMLs {
			continue
		}
		out = append(out, r)
	}
	return out
}
