package export

import "time"

// CanonicalSample represents one global message 20 (record) sample row
// decoded from a FIT file.
type CanonicalSample struct {
	TSUTCISO     string    `json:"ts_utc_iso"`
	Timestamp    time.Time `json:"-"`
	ElapsedS     float64   `json:"elapsed_s"`
	PowerW       *float64  `json:"power_w,omitempty"`
	HRBPM        *float64  `json:"hr_bpm,omitempty"`
	CadenceRPM   *float64  `json:"cadence_rpm,omitempty"`
	SpeedMPS     *float64  `json:"speed_mps,omitempty"`
	DistanceM    *float64  `json:"distance_m,omitempty"`
	AltitudeM    *float64  `json:"altitude_m,omitempty"`
	TemperatureC *float64  `json:"temperature_c,omitempty"`
	GradePct     *float64  `json:"grade_pct,omitempty"`
	ValidPower   bool      `json:"valid_power"`
	ValidHR      bool      `json:"valid_hr"`
	ValidCadence bool      `json:"valid_cadence"`
	FileOffset   int64     `json:"file_offset"`
	RecordIndex  int       `json:"record_index"`
}
