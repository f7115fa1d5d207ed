// Package predictor implements the predict.trip job consumer: it applies a
// completed Model Artifact to one trip's samples and writes back a
// predictionSummary.
package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kosssst/fleetms/internal/obslog"
	"github.com/kosssst/fleetms/model"
	"github.com/kosssst/fleetms/pipeline"
	"github.com/kosssst/fleetms/store"
	"github.com/kosssst/fleetms/telemetry"
)

// Payload is the predict.trip queue's message body; all fields required.
type Payload struct {
	TripID    string `json:"tripId"`
	VehicleID string `json:"vehicleId"`
	Version   string `json:"version"`
}

// Predictor consumes predict.trip jobs.
type Predictor struct {
	Store    *store.Store
	Models   *model.Loader
	Pipeline pipeline.Config
	Log      *logrus.Logger
	Metrics  *obslog.Metrics
}

// New builds a Predictor with the inference-mode default Feature Pipeline
// config (alpha=0.7) and a Loader rooted at modelRoot.
func New(st *store.Store, modelRoot string, log *logrus.Logger, metrics *obslog.Metrics) *Predictor {
	return &Predictor{
		Store:    st,
		Models:   model.NewLoader(modelRoot),
		Pipeline: pipeline.DefaultInferenceConfig(),
		Log:      log,
		Metrics:  metrics,
	}
}

// OnJob handles one predict.trip delivery. Every failure path logs and
// returns nil so the caller acknowledges: a stuck trip/model pairing
// would otherwise wedge the queue on redelivery.
func (p *Predictor) OnJob(ctx context.Context, body []byte) error {
	start := time.Now()
	defer func() {
		if p.Metrics != nil {
			p.Metrics.JobDuration.WithLabelValues("predictor").Observe(time.Since(start).Seconds())
		}
	}()

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		p.Log.WithError(err).Warn("predict.trip: payload not JSON")
		p.fail("payload_invalid")
		return nil
	}
	if payload.TripID == "" || payload.VehicleID == "" || payload.Version == "" {
		p.Log.WithField("payload", payload).Warn("predict.trip: missing required field")
		p.fail("payload_invalid")
		return nil
	}

	if err := p.run(ctx, payload); err != nil {
		p.Log.WithError(err).WithField("tripId", payload.TripID).Error("predict.trip: job failed")
		p.fail("run_error")
		return nil
	}
	if p.Metrics != nil {
		p.Metrics.JobsProcessed.WithLabelValues("predictor").Inc()
	}
	return nil
}

func (p *Predictor) fail(reason string) {
	if p.Metrics != nil {
		p.Metrics.JobsFailed.WithLabelValues("predictor", reason).Inc()
	}
}

func (p *Predictor) run(ctx context.Context, payload Payload) error {
	trip, err := p.Store.Trips.Get(ctx, payload.TripID)
	if err != nil {
		return fmt.Errorf("predictor: fetching trip: %w", err)
	}

	samples, err := p.Store.Samples.ByTrip(ctx, trip.ID)
	if err != nil {
		return fmt.Errorf("predictor: fetching samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("predictor: trip %s has no samples", trip.ID)
	}

	artifact, err := p.Models.Load(payload.VehicleID, payload.Version)
	if err != nil {
		return fmt.Errorf("predictor: loading model artifact: %w", err)
	}

	frame, warnings := pipeline.RunInference(samples, p.Pipeline, artifact.FeatureColumns)
	for _, w := range warnings {
		p.Log.WithField("tripId", trip.ID).Warn("predict.trip: " + w)
	}

	x := make([][]float64, frame.NumRows())
	for i := 0; i < frame.NumRows(); i++ {
		x[i] = frame.Row(i)
	}
	yPred := artifact.Predict(x)

	summary := integrate(frame.Timestamp, yPred)

	if mae, rmse, r2, ok := groundTruthMetrics(samples, frame.Timestamp, yPred); ok {
		summary.MAE = &mae
		summary.RMSE = &rmse
		summary.R2 = &r2
	}

	if err := p.Store.Trips.SetPredictionSummary(ctx, trip.ID, summary); err != nil {
		return fmt.Errorf("predictor: writing prediction summary: %w", err)
	}
	return nil
}

// integrate computes fuelUsedL and avgFuelRateLph from predicted mL/s
// values over the (possibly irregular) sample timestamps: dt[0]=0,
// dt[i]=max(0, t[i]-t[i-1]) for i>0.
func integrate(timestamps []time.Time, yPred []float64) telemetry.PredictionSummary {
	var fuelML float64
	var rateSum float64
	for i, y := range yPred {
		var dt float64
		if i > 0 {
			dt = timestamps[i].Sub(timestamps[i-1]).Seconds()
			if dt < 0 {
				dt = 0
			}
		}
		fuelML += y * dt
		rateSum += y
	}
	avgRateMLs := 0.0
	if len(yPred) > 0 {
		avgRateMLs = rateSum / float64(len(yPred))
	}
	return telemetry.PredictionSummary{
		FuelUsedL:      round2(fuelML / 1000),
		AvgFuelRateLph: round2(avgRateMLs * 3.6),
	}
}

// groundTruthMetrics reports MAE/RMSE/R2 over the finite-mask subset where a
// ground-truth fuelConsumptionRate is present. Matched by timestamp rather
// than position since normalization may have dropped rows (missing
// lat/lon) that survive in the raw sample sequence.
func groundTruthMetrics(samples []telemetry.Sample, timestamps []time.Time, yPred []float64) (mae, rmse, r2 float64, ok bool) {
	actualByTime := make(map[int64]float64, len(samples))
	for _, s := range samples {
		if s.FuelConsumptionRateMLs == nil {
			continue
		}
		v := *s.FuelConsumptionRateMLs
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		actualByTime[s.Timestamp.UnixNano()] = v
	}

	var actual, predicted []float64
	for i, ts := range timestamps {
		v, found := actualByTime[ts.UnixNano()]
		if !found {
			continue
		}
		actual = append(actual, v)
		predicted = append(predicted, yPred[i])
	}
	if len(actual) == 0 {
		return 0, 0, 0, false
	}
	m := model.Evaluate(predicted, actual)
	return round2(m.MAE), round2(m.RMSE), round2(m.R2), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
