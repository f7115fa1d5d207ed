package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// HiddenLayers is the fixed architecture required by the training
// contract: three hidden layers of widths 64, 32, 16 with ReLU
// activations and a single linear output unit.
var HiddenLayers = []int{64, 32, 16}

// layer holds one fully-connected layer's weights (in x out) and biases.
type layer struct {
	W *mat.Dense
	B *mat.Dense // 1 x out
}

// Network is a small feed-forward regressor: Linear -> ReLU for each
// hidden layer, then a final linear layer producing one output.
type Network struct {
	Layers []layer `json:"-"`

	// Serializable form of Layers, filled by exportWeights before saving and
	// read back into Layers by importWeights after loading.
	WeightsJSON [][][]float64 `json:"weights"`
	BiasesJSON  [][]float64   `json:"biases"`
}

// NewNetwork builds an untrained network for the given input width with
// weights initialized via a seeded He-style scheme for reproducibility.
func NewNetwork(inputWidth int, seed int64) *Network {
	rng := rand.New(rand.NewSource(seed))
	widths := append(append([]int{inputWidth}, HiddenLayers...), 1)
	net := &Network{}
	for i := 0; i < len(widths)-1; i++ {
		in, out := widths[i], widths[i+1]
		w := mat.NewDense(in, out, nil)
		scale := math.Sqrt(2.0 / float64(in))
		for r := 0; r < in; r++ {
			for c := 0; c < out; c++ {
				w.Set(r, c, rng.NormFloat64()*scale)
			}
		}
		b := mat.NewDense(1, out, nil)
		net.Layers = append(net.Layers, layer{W: w, B: b})
	}
	return net
}

// forward runs X (n x inputWidth) through the network, returning the
// pre-activation and post-activation matrix of every layer (needed by
// backprop) plus the final n x 1 output.
func (n *Network) forward(x *mat.Dense) (activations []*mat.Dense, preacts []*mat.Dense) {
	activations = make([]*mat.Dense, len(n.Layers)+1)
	preacts = make([]*mat.Dense, len(n.Layers))
	activations[0] = x
	cur := x
	for i, l := range n.Layers {
		rows, _ := cur.Dims()
		_, out := l.W.Dims()
		z := mat.NewDense(rows, out, nil)
		z.Mul(cur, l.W)
		addBiasRow(z, l.B)
		preacts[i] = z

		a := mat.NewDense(rows, out, nil)
		if i == len(n.Layers)-1 {
			a.Copy(z) // linear output layer
		} else {
			a.Apply(func(_, _ int, v float64) float64 { return relu(v) }, z)
		}
		activations[i+1] = a
		cur = a
	}
	return activations, preacts
}

// Predict runs a forward pass and returns the n-length output vector.
func (n *Network) Predict(x [][]float64) []float64 {
	xm := toDense(x)
	activations, _ := n.forward(xm)
	out := activations[len(activations)-1]
	rows, _ := out.Dims()
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		y[r] = out.At(r, 0)
	}
	return y
}

func relu(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func reluGrad(v float64) float64 {
	if v > 0 {
		return 1
	}
	return 0
}

func addBiasRow(z *mat.Dense, b *mat.Dense) {
	rows, cols := z.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			z.Set(r, c, z.At(r, c)+b.At(0, c))
		}
	}
}

// exportWeights flattens net.Layers into the JSON-serializable
// WeightsJSON/BiasesJSON fields.
func exportWeights(net *Network) {
	net.WeightsJSON = make([][][]float64, len(net.Layers))
	net.BiasesJSON = make([][]float64, len(net.Layers))
	for i, l := range net.Layers {
		rows, cols := l.W.Dims()
		w := make([][]float64, rows)
		for r := 0; r < rows; r++ {
			row := make([]float64, cols)
			for c := 0; c < cols; c++ {
				row[c] = l.W.At(r, c)
			}
			w[r] = row
		}
		net.WeightsJSON[i] = w

		_, bCols := l.B.Dims()
		b := make([]float64, bCols)
		for c := 0; c < bCols; c++ {
			b[c] = l.B.At(0, c)
		}
		net.BiasesJSON[i] = b
	}
}

// importWeights rebuilds net.Layers from WeightsJSON/BiasesJSON, the
// inverse of exportWeights, used after deserializing a saved artifact.
func importWeights(net *Network) {
	net.Layers = make([]layer, len(net.WeightsJSON))
	for i, w := range net.WeightsJSON {
		rows := len(w)
		cols := 0
		if rows > 0 {
			cols = len(w[0])
		}
		wm := mat.NewDense(rows, cols, nil)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				wm.Set(r, c, w[r][c])
			}
		}
		bm := mat.NewDense(1, len(net.BiasesJSON[i]), nil)
		for c, v := range net.BiasesJSON[i] {
			bm.Set(0, c, v)
		}
		net.Layers[i] = layer{W: wm, B: bm}
	}
}

func expm1(v float64) float64 { return math.Expm1(v) }

func toDense(x [][]float64) *mat.Dense {
	if len(x) == 0 {
		return mat.NewDense(0, 0, nil)
	}
	rows, cols := len(x), len(x[0])
	data := make([]float64, 0, rows*cols)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(rows, cols, data)
}
