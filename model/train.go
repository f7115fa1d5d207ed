package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// FitConfig mirrors the trainer contract from spec §4.4: Adam optimizer,
// L2-regularized, early-stopped feed-forward regressor.
type FitConfig struct {
	LearningRate       float64
	L2Weight           float64
	MaxIter            int
	ValidationFraction float64
	NIterNoChange      int
	Seed               int64
}

// DefaultFitConfig returns the spec's literal hyperparameters.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		LearningRate:       1e-3,
		L2Weight:           1e-4,
		MaxIter:            300,
		ValidationFraction: 0.1,
		NIterNoChange:      10,
		Seed:               42,
	}
}

// FitDiagnostics records what happened during fit. It is returned to the
// caller only; nothing in metrics.txt or the artifact persists it.
type FitDiagnostics struct {
	IterationsRun int
	FinalTrainMSE float64
	FinalValMSE   float64
	StoppedEarly  bool
}

// adamState holds first/second moment estimates for one layer's weights
// and biases.
type adamState struct {
	mW, vW *mat.Dense
	mB, vB *mat.Dense
}

// Fit trains a Network on X (already standardized) against a log1p-
// transformed target y, with Adam + early stopping on a held-out
// validation slice carved out of the training rows (fixed seed, so the
// held-out slice is reproducible).
func Fit(x [][]float64, yLog []float64, cfg FitConfig) (*Network, FitDiagnostics) {
	n := len(x)
	rng := rand.New(rand.NewSource(cfg.Seed))
	perm := rng.Perm(n)
	valN := int(float64(n) * cfg.ValidationFraction)
	if valN < 1 && n > 1 {
		valN = 1
	}
	trainIdx := perm[valN:]
	valIdx := perm[:valN]

	xTrain, yTrain := subsetRows(x, yLog, trainIdx)
	xVal, yVal := subsetRows(x, yLog, valIdx)

	net := NewNetwork(len(x[0]), cfg.Seed)
	states := make([]adamState, len(net.Layers))
	for i, l := range net.Layers {
		inR, outR := l.W.Dims()
		states[i] = adamState{
			mW: mat.NewDense(inR, outR, nil), vW: mat.NewDense(inR, outR, nil),
			mB: mat.NewDense(1, outR, nil), vB: mat.NewDense(1, outR, nil),
		}
	}

	xTrainM := toDense(xTrain)
	yTrainM := mat.NewDense(len(yTrain), 1, yTrain)

	const beta1, beta2, eps = 0.9, 0.999, 1e-8
	bestValMSE := math.Inf(1)
	noImprove := 0
	diag := FitDiagnostics{}

	for iter := 1; iter <= cfg.MaxIter; iter++ {
		activations, preacts := net.forward(xTrainM)
		pred := activations[len(activations)-1]

		grads := backward(net, activations, preacts, pred, yTrainM, cfg.L2Weight)
		adamStep(net, states, grads, iter, cfg.LearningRate, beta1, beta2, eps)

		diag.IterationsRun = iter
		diag.FinalTrainMSE = mse(net.Predict(xTrain), yTrain)

		if len(xVal) > 0 {
			valMSE := mse(net.Predict(xVal), yVal)
			diag.FinalValMSE = valMSE
			if valMSE < bestValMSE-1e-9 {
				bestValMSE = valMSE
				noImprove = 0
			} else {
				noImprove++
				if noImprove >= cfg.NIterNoChange {
					diag.StoppedEarly = true
					break
				}
			}
		}
	}
	return net, diag
}

type layerGrad struct {
	dW *mat.Dense
	dB *mat.Dense
}

// backward computes MSE-loss gradients with L2 weight decay via the
// standard backprop chain rule for a ReLU-hidden, linear-output network.
func backward(net *Network, activations, preacts []*mat.Dense, pred, yTrue *mat.Dense, l2 float64) []layerGrad {
	nLayers := len(net.Layers)
	grads := make([]layerGrad, nLayers)

	rows, _ := pred.Dims()
	delta := mat.NewDense(rows, 1, nil)
	for r := 0; r < rows; r++ {
		delta.Set(r, 0, 2*(pred.At(r, 0)-yTrue.At(r, 0))/float64(rows))
	}

	for i := nLayers - 1; i >= 0; i-- {
		aPrev := activations[i]
		w := net.Layers[i].W
		wRows, wCols := w.Dims()

		dW := mat.NewDense(wRows, wCols, nil)
		dW.Mul(aPrev.T(), delta)
		addL2(dW, w, l2)

		_, outCols := delta.Dims()
		dB := mat.NewDense(1, outCols, nil)
		sumRowsInto(dB, delta)

		grads[i] = layerGrad{dW: dW, dB: dB}

		if i > 0 {
			inRows, _ := w.Dims()
			prevDelta := mat.NewDense(rows, inRows, nil)
			prevDelta.Mul(delta, w.T())
			z := preacts[i-1]
			zr, zc := z.Dims()
			for r := 0; r < zr; r++ {
				for c := 0; c < zc; c++ {
					prevDelta.Set(r, c, prevDelta.At(r, c)*reluGrad(z.At(r, c)))
				}
			}
			delta = prevDelta
		}
	}
	return grads
}

func addL2(dW, w *mat.Dense, l2 float64) {
	r, c := w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dW.Set(i, j, dW.At(i, j)+l2*w.At(i, j))
		}
	}
}

func sumRowsInto(dst *mat.Dense, m *mat.Dense) {
	rows, cols := m.Dims()
	for c := 0; c < cols; c++ {
		var sum float64
		for r := 0; r < rows; r++ {
			sum += m.At(r, c)
		}
		dst.Set(0, c, sum)
	}
}

func adamStep(net *Network, states []adamState, grads []layerGrad, t int, lr, beta1, beta2, eps float64) {
	bc1 := 1 - math.Pow(beta1, float64(t))
	bc2 := 1 - math.Pow(beta2, float64(t))
	for i, l := range net.Layers {
		st := &states[i]
		updateMoment(st.mW, st.vW, grads[i].dW, l.W, beta1, beta2, lr, bc1, bc2, eps)
		updateMoment(st.mB, st.vB, grads[i].dB, l.B, beta1, beta2, lr, bc1, bc2, eps)
	}
}

func updateMoment(m, v, grad, param *mat.Dense, beta1, beta2, lr, bc1, bc2, eps float64) {
	r, c := grad.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			g := grad.At(i, j)
			mv := beta1*m.At(i, j) + (1-beta1)*g
			vv := beta2*v.At(i, j) + (1-beta2)*g*g
			m.Set(i, j, mv)
			v.Set(i, j, vv)
			mHat := mv / bc1
			vHat := vv / bc2
			param.Set(i, j, param.At(i, j)-lr*mHat/(math.Sqrt(vHat)+eps))
		}
	}
}

func subsetRows(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, ix := range idx {
		xs[i] = x[ix]
		ys[i] = y[ix]
	}
	return xs, ys
}

func mse(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	var sum float64
	for i := range pred {
		d := pred[i] - actual[i]
		sum += d * d
	}
	return sum / float64(len(pred))
}
