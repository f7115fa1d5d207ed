// Package trainer implements the model-train job consumer: it turns a
// pending Model Manifest into a fitted Model Artifact on the shared model
// volume.
package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kosssst/fleetms/internal/obslog"
	"github.com/kosssst/fleetms/model"
	"github.com/kosssst/fleetms/pipeline"
	"github.com/kosssst/fleetms/store"
	"github.com/kosssst/fleetms/telemetry"
)

// Failure reasons persisted to manifest.error; short and machine-readable,
// matching the error-kind taxonomy.
const (
	ReasonNoSamples  = "no_samples"
	ReasonNoFeatures = "no_features"
	ReasonInternal   = "internal_error"
)

// splitSeed fixes the group-aware shuffle split so re-training a manifest
// (after a crash, before it reaches completed) reproduces the same split.
const splitSeed = 42

// Payload is the model-train queue's message body.
type Payload struct {
	ModelID   string `json:"modelId,omitempty"`
	VehicleID string `json:"vehicleId,omitempty"`
	Version   string `json:"version,omitempty"`
}

// Trainer consumes model-train jobs.
type Trainer struct {
	Store     *store.Store
	ModelRoot string
	Pipeline  pipeline.Config
	Log       *logrus.Logger
	Metrics   *obslog.Metrics
}

// New builds a Trainer with the training-mode default Feature Pipeline
// config; callers may override Pipeline afterward.
func New(st *store.Store, modelRoot string, log *logrus.Logger, metrics *obslog.Metrics) *Trainer {
	return &Trainer{Store: st, ModelRoot: modelRoot, Pipeline: pipeline.DefaultConfig(), Log: log, Metrics: metrics}
}

// OnJob handles one model-train delivery. It never returns an error that
// would cause the caller to nack: every failure path either logs-and-
// acknowledges (manifest missing, not pending) or marks the manifest
// failed and acknowledges, per the poison-message policy.
func (t *Trainer) OnJob(ctx context.Context, body []byte) error {
	start := time.Now()
	defer func() {
		if t.Metrics != nil {
			t.Metrics.JobDuration.WithLabelValues("trainer").Observe(time.Since(start).Seconds())
		}
	}()

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Log.WithError(err).Warn("model-train: payload not JSON")
		t.fail(t.Metrics, "payload_invalid")
		return nil
	}

	manifest, err := t.lookup(ctx, payload)
	if err == store.ErrManifestNotFound {
		t.Log.WithField("payload", payload).Info("model-train: manifest not found, acknowledging")
		return nil
	}
	if err != nil {
		t.Log.WithError(err).Error("model-train: manifest lookup failed")
		t.fail(t.Metrics, "lookup_error")
		return nil
	}

	claimed, err := t.Store.Manifests.ClaimForTraining(ctx, manifest.ID)
	if err == store.ErrClaimConflict {
		t.Log.WithField("manifestId", manifest.ID).Info("model-train: manifest not pending, acknowledging")
		return nil
	}
	if err != nil {
		t.Log.WithError(err).Error("model-train: claim failed")
		t.fail(t.Metrics, "claim_error")
		return nil
	}

	if err := t.run(ctx, claimed); err != nil {
		t.Log.WithError(err).WithField("manifestId", claimed.ID).Error("model-train: job failed")
		if ferr := t.failManifest(ctx, claimed.ID, ReasonInternal); ferr != nil {
			t.Log.WithError(ferr).WithField("manifestId", claimed.ID).Error("model-train: job failed")
		}
		t.fail(t.Metrics, "run_error")
		return nil
	}
	if t.Metrics != nil {
		t.Metrics.JobsProcessed.WithLabelValues("trainer").Inc()
	}
	return nil
}

func (t *Trainer) fail(m *obslog.Metrics, reason string) {
	if m != nil {
		m.JobsFailed.WithLabelValues("trainer", reason).Inc()
	}
}

func (t *Trainer) lookup(ctx context.Context, p Payload) (telemetry.Manifest, error) {
	if p.ModelID != "" {
		return t.Store.Manifests.Get(ctx, p.ModelID)
	}
	return t.Store.Manifests.GetByVehicleVersion(ctx, p.VehicleID, p.Version)
}

func (t *Trainer) run(ctx context.Context, manifest telemetry.Manifest) error {
	corpus := manifest.AllTripIDs()
	byTrip, err := t.Store.Samples.ByTrips(ctx, corpus)
	if err != nil {
		return fmt.Errorf("trainer: loading samples: %w", err)
	}

	var all []telemetry.Sample
	for _, id := range corpus {
		all = append(all, byTrip[id]...)
	}
	if len(all) == 0 {
		return t.failManifest(ctx, manifest.ID, ReasonNoSamples)
	}

	frame, featureCols := pipeline.Run(all, t.Pipeline)
	if frame.NumRows() == 0 {
		return t.failManifest(ctx, manifest.ID, ReasonNoFeatures)
	}
	if t.Metrics != nil {
		t.Metrics.RowsRetained.Set(float64(frame.NumRows()))
	}

	trainTrips, valTrips := groupSplit(corpus, splitSeed)
	if err := t.Store.Manifests.SetSplit(ctx, manifest.ID, trainTrips, valTrips); err != nil {
		return fmt.Errorf("trainer: persisting split: %w", err)
	}

	trainIdx, valIdx := splitRows(frame.TripID, trainTrips, valTrips)
	trainX, trainYLog := subset(frame, trainIdx, true)
	valX, valY := subset(frame, valIdx, false)
	valSpeedKmh := speedColumn(valX)

	std := model.FitStandardizer(trainX)
	trainXs := std.Transform(trainX)

	net, _ := model.Fit(trainXs, trainYLog, model.DefaultFitConfig())

	artifact := &model.Artifact{
		Net:            net,
		Standardizer:   std,
		FeatureColumns: featureCols,
		LogTarget:      true,
	}

	// artifact.Predict standardizes internally; valX must stay raw or the
	// network sees doubly-standardized inputs it was never trained on.
	valPred := artifact.Predict(valX)
	metrics := model.Evaluate(valPred, valY)
	artifact.Metrics = metrics

	dir := model.Dir(t.ModelRoot, manifest.VehicleID, manifest.Version)
	if err := model.Save(dir, artifact, model.Meta{VehicleID: manifest.VehicleID, Version: manifest.Version, TrainedAt: time.Now()}); err != nil {
		return fmt.Errorf("trainer: saving artifact: %w", err)
	}
	if err := os.MkdirAll(dir+"/plots", 0o755); err != nil {
		return fmt.Errorf("trainer: creating plots dir: %w", err)
	}
	if err := model.WriteDiagnostics(dir+"/plots/diagnostics.parquet", valY, valPred, valSpeedKmh); err != nil {
		return fmt.Errorf("trainer: writing diagnostics: %w", err)
	}
	if err := pipeline.DumpParquet(dir+"/plots/feature_frame.parquet", frame); err != nil {
		return fmt.Errorf("trainer: dumping feature frame: %w", err)
	}

	return t.Store.Manifests.Complete(ctx, manifest.ID,
		telemetry.ManifestMetrics{MAE: metrics.MAE, RMSE: metrics.RMSE, R2: metrics.R2},
		telemetry.ManifestArtifacts{
			ModelPath:          dir + "/model.joblib",
			FeatureColumnsPath: dir + "/feature_columns.json",
			MetricsPath:        dir + "/metrics.txt",
		},
	)
}

func (t *Trainer) failManifest(ctx context.Context, id, reason string) error {
	if err := t.Store.Manifests.Fail(ctx, id, reason); err != nil {
		return fmt.Errorf("trainer: marking failed (%s): %w", reason, err)
	}
	return nil
}

// groupSplit partitions tripIDs into an 80/20 train/val set using a fixed
// seed, so no trip appears in both halves and re-splitting the same corpus
// is reproducible.
func groupSplit(tripIDs []string, seed int64) (train, val []string) {
	shuffled := append([]string(nil), tripIDs...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	cut := int(float64(len(shuffled)) * 0.8)
	if len(shuffled) > 0 && cut == 0 {
		cut = 1
	}
	if cut > len(shuffled) {
		cut = len(shuffled)
	}
	return shuffled[:cut], shuffled[cut:]
}

// splitRows maps a Feature Frame's rows to the train/val trip sets,
// preserving row order within each half.
func splitRows(tripIDs []string, trainTrips, valTrips []string) (trainIdx, valIdx []int) {
	trainSet := toSet(trainTrips)
	valSet := toSet(valTrips)
	for i, id := range tripIDs {
		if _, ok := trainSet[id]; ok {
			trainIdx = append(trainIdx, i)
		} else if _, ok := valSet[id]; ok {
			valIdx = append(valIdx, i)
		}
	}
	return trainIdx, valIdx
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// speedColumn extracts FeatureColumns[0] (speedKmh) from a feature matrix,
// for the diagnostic dump's speed-histogram column.
func speedColumn(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = row[0]
	}
	return out
}

// subset extracts rows at idx from frame, log1p-transforming the target
// when asLog is true (training half only; evaluation compares in natural
// units).
func subset(frame pipeline.Frame, idx []int, asLog bool) ([][]float64, []float64) {
	x := make([][]float64, len(idx))
	y := make([]float64, len(idx))
	for n, i := range idx {
		x[n] = frame.Row(i)
		v := frame.Y[i]
		if asLog {
			v = math.Log1p(v)
		}
		y[n] = v
	}
	return x, y
}
