// Package model implements the Model Artifact contract (spec §4.3): a
// persisted {fitted regressor, feature-column list, metadata} triple
// shared between the trainer and the predictor, plus the feed-forward
// regressor that backs it.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by Load/Loader.Load when either required file
// (model.joblib or feature_columns.json) is missing for (vehicleId,version).
var ErrNotFound = errors.New("model artifact: not found")

// Metrics holds the held-out evaluation metrics persisted alongside a
// fitted model.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// Meta is the optional meta.json sidecar.
type Meta struct {
	VehicleID string    `json:"vehicleId"`
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trainedAt"`
}

// payload is the on-disk shape of model.joblib: despite the filename
// (kept for contract compatibility with the reference implementation)
// this implementation serializes as JSON, which is a defensible choice
// for a Go-native regressor — there is no joblib-equivalent format in
// this ecosystem worth depending on for a single opaque blob.
type payload struct {
	Standardizer Standardizer    `json:"standardizer"`
	WeightsJSON  [][][]float64   `json:"weights"`
	BiasesJSON   [][]float64     `json:"biases"`
	LogTarget    bool            `json:"logTarget"`
}

// Artifact is the in-memory form of a loaded/fitted Model Artifact.
type Artifact struct {
	Net            *Network
	Standardizer   Standardizer
	FeatureColumns []string
	Metrics        Metrics
	LogTarget      bool
}

// Predict standardizes X, runs the network, applies expm1 if the target
// was fit in log1p space, then clamps to [0, +inf) per the MA contract.
func (a *Artifact) Predict(x [][]float64) []float64 {
	xs := a.Standardizer.Transform(x)
	raw := a.Net.Predict(xs)
	out := make([]float64, len(raw))
	for i, v := range raw {
		if a.LogTarget {
			v = expm1(v)
		}
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}

// Dir returns the artifact directory for (vehicleId, version) under root.
func Dir(root, vehicleID, version string) string {
	return filepath.Join(root, vehicleID, version)
}

// Save writes model.joblib, feature_columns.json, metrics.txt and
// meta.json under dir, creating it if necessary.
func Save(dir string, a *Artifact, meta Meta) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	exportWeights(a.Net)
	p := payload{
		Standardizer: a.Standardizer,
		WeightsJSON:  a.Net.WeightsJSON,
		BiasesJSON:   a.Net.BiasesJSON,
		LogTarget:    a.LogTarget,
	}
	if err := writeJSON(filepath.Join(dir, "model.joblib"), p); err != nil {
		return fmt.Errorf("write model.joblib: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "feature_columns.json"), a.FeatureColumns); err != nil {
		return fmt.Errorf("write feature_columns.json: %w", err)
	}
	if err := writeMetricsText(filepath.Join(dir, "metrics.txt"), a.Metrics); err != nil {
		return fmt.Errorf("write metrics.txt: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "meta.json"), meta); err != nil {
		return fmt.Errorf("write meta.json: %w", err)
	}
	return nil
}

// Load reads an Artifact from dir. Returns ErrNotFound if either required
// file is missing.
func Load(dir string) (*Artifact, error) {
	modelPath := filepath.Join(dir, "model.joblib")
	colsPath := filepath.Join(dir, "feature_columns.json")

	if _, err := os.Stat(modelPath); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if _, err := os.Stat(colsPath); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}

	var p payload
	if err := readJSON(modelPath, &p); err != nil {
		return nil, fmt.Errorf("read model.joblib: %w", err)
	}
	var cols []string
	if err := readJSON(colsPath, &cols); err != nil {
		return nil, fmt.Errorf("read feature_columns.json: %w", err)
	}

	net := &Network{WeightsJSON: p.WeightsJSON, BiasesJSON: p.BiasesJSON}
	importWeights(net)

	metrics, _ := readMetricsText(filepath.Join(dir, "metrics.txt"))

	return &Artifact{
		Net:            net,
		Standardizer:   p.Standardizer,
		FeatureColumns: cols,
		Metrics:        metrics,
		LogTarget:      p.LogTarget,
	}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeMetricsText(path string, m Metrics) error {
	content := fmt.Sprintf("mae=%.6f\nrmse=%.6f\nr2=%.6f\n", m.MAE, m.RMSE, m.R2)
	return os.WriteFile(path, []byte(content), 0o644)
}

func readMetricsText(path string) (Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metrics{}, err
	}
	var m Metrics
	_, err = fmt.Sscanf(string(data), "mae=%f\nrmse=%f\nr2=%f\n", &m.MAE, &m.RMSE, &m.R2)
	return m, err
}
