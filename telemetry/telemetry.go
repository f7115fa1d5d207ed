// Package telemetry defines the semantic Sample/Trip view shared by the
// store, feature pipeline, trainer, and predictor: one flat row per
// telemetry tick regardless of how a sample is nested in its source
// document.
package telemetry

import "time"

// Sample is one telemetry tick belonging to a trip.
type Sample struct {
	TripID    string    `bson:"tripId" json:"tripId"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	Latitude  *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Altitude  *float64 `bson:"altitude,omitempty" json:"altitude,omitempty"`

	VehicleSpeedKmh     *float64 `bson:"vehicleSpeed,omitempty" json:"vehicleSpeed,omitempty"`
	EngineRPM           *float64 `bson:"engineRpm,omitempty" json:"engineRpm,omitempty"`
	AcceleratorPosition *float64 `bson:"acceleratorPosition,omitempty" json:"acceleratorPosition,omitempty"`
	EngineCoolantTempC  *float64 `bson:"engineCoolantTemp,omitempty" json:"engineCoolantTemp,omitempty"`
	IntakeAirTempC      *float64 `bson:"intakeAirTemp,omitempty" json:"intakeAirTemp,omitempty"`

	// FuelConsumptionRateMLs is the target signal, mL/s. Populated by
	// Flatten from either the nested OBD block or the document root,
	// OBD taking precedence per the glossary's sample-store path note.
	FuelConsumptionRateMLs *float64 `bson:"-" json:"fuelConsumptionRate,omitempty"`
}

// RawOBD mirrors the nested OBD sub-document a sample may carry on the wire.
// FuelConsumptionRate here wins over RawSample.FuelConsumptionRate.
type RawOBD struct {
	VehicleSpeed            *float64 `bson:"vehicleSpeed,omitempty"`
	EngineRpm               *float64 `bson:"engineRpm,omitempty"`
	AcceleratorPosition     *float64 `bson:"acceleratorPosition,omitempty"`
	EngineCoolantTemp       *float64 `bson:"engineCoolantTemp,omitempty"`
	IntakeAirTemp           *float64 `bson:"intakeAirTemp,omitempty"`
	FuelConsumptionRate     *float64 `bson:"fuelConsumptionRate,omitempty"`
}

// RawSample is the on-the-wire/on-disk shape a Sample may be stored as:
// OBD fields may be nested under "obd", or, for fuelConsumptionRate only,
// present at the document root as a legacy fallback.
type RawSample struct {
	TripID                  string    `bson:"tripId"`
	Timestamp               time.Time `bson:"timestamp"`
	Latitude                *float64  `bson:"latitude,omitempty"`
	Longitude               *float64  `bson:"longitude,omitempty"`
	Altitude                *float64  `bson:"altitude,omitempty"`
	OBD                     *RawOBD   `bson:"obd,omitempty"`
	FuelConsumptionRateRoot *float64  `bson:"fuelConsumptionRate,omitempty"`
}

// Flatten converts a RawSample into the flat semantic Sample view, resolving
// the OBD-nested-first/root-fallback ambiguity for fuelConsumptionRate.
func Flatten(raw RawSample) Sample {
	s := Sample{
		TripID:    raw.TripID,
		Timestamp: raw.Timestamp,
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
		Altitude:  raw.Altitude,
	}
	if raw.OBD != nil {
		s.VehicleSpeedKmh = raw.OBD.VehicleSpeed
		s.EngineRPM = raw.OBD.EngineRpm
		s.AcceleratorPosition = raw.OBD.AcceleratorPosition
		s.EngineCoolantTempC = raw.OBD.EngineCoolantTemp
		s.IntakeAirTempC = raw.OBD.IntakeAirTemp
		if raw.OBD.FuelConsumptionRate != nil {
			s.FuelConsumptionRateMLs = raw.OBD.FuelConsumptionRate
		}
	}
	if s.FuelConsumptionRateMLs == nil {
		s.FuelConsumptionRateMLs = raw.FuelConsumptionRateRoot
	}
	return s
}

// FlattenAll flattens a batch and is the normal entry point for store reads.
func FlattenAll(raws []RawSample) []Sample {
	out := make([]Sample, len(raws))
	for i, r := range raws {
		out[i] = Flatten(r)
	}
	return out
}

// PredictionSummary is the result PR upserts onto a trip document. Pointer
// fields for MAE/RMSE/R2 are nil when no ground-truth fuelConsumptionRate
// was available on the trip's samples.
type PredictionSummary struct {
	FuelUsedL      float64  `bson:"fuelUsedL" json:"fuelUsedL"`
	AvgFuelRateLph float64  `bson:"avgFuelRateLph" json:"avgFuelRateLph"`
	MAE            *float64 `bson:"mae,omitempty" json:"mae,omitempty"`
	RMSE           *float64 `bson:"rmse,omitempty" json:"rmse,omitempty"`
	R2             *float64 `bson:"r2,omitempty" json:"r2,omitempty"`
}

// Trip is a document keyed by its identifier, owning a set of samples.
// It is mutated only to add PredictionSummary.
type Trip struct {
	ID                 string              `bson:"_id" json:"id"`
	PredictionSummary  *PredictionSummary  `bson:"predictionSummary,omitempty" json:"predictionSummary,omitempty"`
}

// ManifestStatus enumerates the Model Manifest lifecycle states.
type ManifestStatus string

const (
	ManifestPending   ManifestStatus = "pending"
	ManifestTraining  ManifestStatus = "training"
	ManifestCompleted ManifestStatus = "completed"
	ManifestFailed    ManifestStatus = "failed"
)

// ManifestMetrics holds the evaluation metrics TR persists on completion.
type ManifestMetrics struct {
	MAE  float64 `bson:"mae" json:"mae"`
	RMSE float64 `bson:"rmse" json:"rmse"`
	R2   float64 `bson:"r2" json:"r2"`
}

// ManifestArtifacts records where TR wrote the Model Artifact.
type ManifestArtifacts struct {
	ModelPath          string `bson:"modelPath" json:"modelPath"`
	FeatureColumnsPath string `bson:"featureColumnsPath" json:"featureColumnsPath"`
	MetricsPath        string `bson:"metricsPath" json:"metricsPath"`
}

// Manifest is the Model Manifest document describing a training job.
type Manifest struct {
	ID            string             `bson:"_id" json:"id"`
	VehicleID     string             `bson:"vehicleId" json:"vehicleId"`
	Version       string             `bson:"version" json:"version"`
	TrainTripIDs  []string           `bson:"trainTripsIds" json:"trainTripsIds"`
	ValTripIDs    []string           `bson:"valTripsIds" json:"valTripsIds"`
	Status        ManifestStatus     `bson:"status" json:"status"`
	Metrics       *ManifestMetrics   `bson:"metrics,omitempty" json:"metrics,omitempty"`
	Artifacts     *ManifestArtifacts `bson:"artifacts,omitempty" json:"artifacts,omitempty"`
	Error         string             `bson:"error,omitempty" json:"error,omitempty"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AllTripIDs returns the union of train and validation trip identifiers,
// the full training corpus the manifest references.
func (m Manifest) AllTripIDs() []string {
	seen := make(map[string]struct{}, len(m.TrainTripIDs)+len(m.ValTripIDs))
	out := make([]string, 0, len(m.TrainTripIDs)+len(m.ValTripIDs))
	for _, ids := range [][]string{m.TrainTripIDs, m.ValTripIDs} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
