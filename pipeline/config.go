// Package pipeline implements the Feature Pipeline: the deterministic
// transform from raw, irregularly sampled multi-sensor telemetry to a
// model-ready Feature Frame, in both training and inference mode.
package pipeline

// FeatureColumns is the fixed, ordered list of engineered feature names
// that define the model's input contract. Order matters: it's written to
// feature_columns.json at fit time and must be reproduced exactly by the
// inference-mode variant.
var FeatureColumns = []string{
	"speedKmh",
	"accel_ms2",
	"obd_rpm",
	"obd_throttle",
	"coolantC",
	"intakeC",
	"speedKmh_mean5",
	"speedKmh_std5",
	"accel_ms2_mean5",
	"accel_ms2_std5",
	"obd_rpm_mean5",
	"obd_rpm_std5",
	"obd_throttle_mean5",
	"obd_throttle_std5",
	"grade",
}

// Config holds every tunable of the Feature Pipeline. Every field is
// independently overridable by environment for the trainer (see
// internal/config); zero value of Config is not valid on its own — use
// DefaultConfig.
type Config struct {
	MinSpeedKmh float64
	GapS        float64
	Alpha       float64
	DropIdle    bool
	IdleSpeedKmh float64
	IdleFuelMLs  float64
	MismatchKmh  float64
	AAccelMaxMs2 float64
	ADecelMaxMs2 float64
	PhysMarginKmh float64
	GPSSameEpsM  float64
	GPSMinSpanS  float64
	GPSMaxSpanS  float64
	VMaxKmh      float64

	// BreakS is accepted for manifest/config compatibility but never read
	// by any pipeline step. Reserved, per spec's open question.
	BreakS float64
}

// DefaultConfig returns the training-mode default tunables from spec §4.2.
func DefaultConfig() Config {
	return Config{
		MinSpeedKmh:   0.0,
		GapS:          6.0,
		Alpha:         0.6,
		DropIdle:      false,
		IdleSpeedKmh:  0.05,
		IdleFuelMLs:   0.005,
		MismatchKmh:   15.0,
		AAccelMaxMs2:  6.0,
		ADecelMaxMs2:  6.0,
		PhysMarginKmh: 5.0,
		GPSSameEpsM:   2.0,
		GPSMinSpanS:   1.5,
		GPSMaxSpanS:   15.0,
		VMaxKmh:       160.0,
	}
}

// DefaultInferenceConfig returns the inference-mode defaults: identical to
// DefaultConfig except Alpha, which defaults to 0.7 reflecting PR's heavier
// trust in GPS (spec §4.2 inference-mode variant).
func DefaultInferenceConfig() Config {
	c := DefaultConfig()
	c.Alpha = 0.7
	return c
}
