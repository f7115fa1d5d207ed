package model

import (
	"math"
	"path/filepath"
	"testing"
)

func TestStandardizerRoundTrip(t *testing.T) {
	x := [][]float64{{1, 10}, {2, 20}, {3, 30}}
	s := FitStandardizer(x)
	out := s.Transform(x)
	mean := 0.0
	for _, row := range out {
		mean += row[0]
	}
	mean /= float64(len(out))
	if math.Abs(mean) > 1e-9 {
		t.Fatalf("expected standardized column mean ~0, got %v", mean)
	}
}

func TestNetworkPredictShape(t *testing.T) {
	net := NewNetwork(5, 42)
	x := [][]float64{{1, 2, 3, 4, 5}, {0, 0, 0, 0, 0}}
	y := net.Predict(x)
	if len(y) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(y))
	}
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("expected finite prediction, got %v", v)
		}
	}
}

func TestFitRunsAndKeepsTrainLossBounded(t *testing.T) {
	x := make([][]float64, 40)
	y := make([]float64, 40)
	for i := range x {
		v := float64(i) / 10
		x[i] = []float64{v, v * 2, v - 1, v + 1, v}
		y[i] = math.Log1p(v)
	}
	cfg := DefaultFitConfig()
	cfg.MaxIter = 50
	net, diag := Fit(x, y, cfg)
	if diag.IterationsRun == 0 {
		t.Fatalf("expected at least one training iteration")
	}
	pred := net.Predict(x)
	if mse(pred, y) > 10 {
		t.Fatalf("expected training loss to stay bounded, got %v", mse(pred, y))
	}
}

func TestArtifactPredictClampsNonNegative(t *testing.T) {
	net := NewNetwork(3, 1)
	// Force a negative bias on the output layer so raw output goes negative.
	out := net.Layers[len(net.Layers)-1]
	_, cols := out.B.Dims()
	for c := 0; c < cols; c++ {
		out.B.Set(0, c, -1000)
	}
	a := &Artifact{
		Net:          net,
		Standardizer: FitStandardizer([][]float64{{1, 1, 1}, {2, 2, 2}}),
		LogTarget:    false,
	}
	preds := a.Predict([][]float64{{1, 1, 1}})
	for _, p := range preds {
		if p < 0 {
			t.Fatalf("expected clamped non-negative prediction, got %v", p)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	net := NewNetwork(3, 7)
	a := &Artifact{
		Net:            net,
		Standardizer:   FitStandardizer([][]float64{{1, 1, 1}, {2, 2, 2}}),
		FeatureColumns: []string{"a", "b", "c"},
		Metrics:        Metrics{MAE: 0.1, RMSE: 0.2, R2: 0.9},
		LogTarget:      true,
	}
	if err := Save(dir, a, Meta{VehicleID: "v1", Version: "1"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.FeatureColumns) != 3 {
		t.Fatalf("expected 3 feature columns, got %d", len(loaded.FeatureColumns))
	}
	if !loaded.LogTarget {
		t.Fatalf("expected LogTarget true")
	}
	want := a.Predict([][]float64{{1, 2, 3}})
	got := loaded.Predict([][]float64{{1, 2, 3}})
	if math.Abs(want[0]-got[0]) > 1e-9 {
		t.Fatalf("expected identical predictions after round-trip, want %v got %v", want[0], got[0])
	}
}

func TestLoadMissingReturnsErrNotFound(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	_, err := Load(dir)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoaderCaches(t *testing.T) {
	root := t.TempDir()
	dir := Dir(root, "veh-1", "v1")
	a := &Artifact{
		Net:            NewNetwork(2, 1),
		Standardizer:   FitStandardizer([][]float64{{1, 1}, {2, 2}}),
		FeatureColumns: []string{"a", "b"},
	}
	if err := Save(dir, a, Meta{VehicleID: "veh-1", Version: "v1"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	l := NewLoader(root)
	first, err := l.Load("veh-1", "v1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	second, err := l.Load("veh-1", "v1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached artifact pointer to be reused")
	}
}

func TestEvaluatePerfectPredictions(t *testing.T) {
	actual := []float64{1, 2, 3, 4}
	m := Evaluate(actual, actual)
	if m.MAE != 0 || m.RMSE != 0 || m.R2 != 1 {
		t.Fatalf("expected perfect metrics, got %+v", m)
	}
}
