package neuralnet

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
)

// GradientCheck compares the weight gradients accumulated by Backward under
// MSE with central finite differences of the loss, and returns the largest
// relative difference found. Up to neuronsPerLayer evenly spaced neurons of
// each layer are checked (0 checks all of them). Pending gradients are
// discarded.
//
// The neuron delta carries a factor 2 that compounds once per layer below the
// output, so layer i's accumulator is 2^(L-1-i) times the true gradient; the
// check divides it back out.
func GradientCheck(nn *NeuralNet, input, target []float64, neuronsPerLayer int) (float64, error) {
	if len(target) != nn.OutputSize() {
		return 0, shapeError("target", len(target), nn.OutputSize())
	}
	var loss MSE

	nn.PrepareBackprop()
	defer nn.PrepareBackprop()
	out, err := nn.Forward(input, true)
	if err != nil {
		return 0, err
	}
	if err := nn.Backward(loss.Error(out, target), 1); err != nil {
		return 0, err
	}

	var worst float64
	depth := len(nn.layers)
	for i, layer := range nn.layers {
		scale := math.Pow(2, float64(depth-1-i))
		for _, j := range spread(layer.Size(), neuronsPerLayer) {
			neuron := layer.neurons[j]
			dw, _, _ := neuron.Accumulated()

			orig := neuron.Weights()
			var ferr error
			f := func(w []float64) float64 {
				if err := neuron.SetParams(w, neuron.bias); err != nil {
					ferr = err
					return math.NaN()
				}
				o, err := nn.Forward(input, false)
				if err != nil {
					ferr = err
					return math.NaN()
				}
				return loss.Compute(o, target)
			}
			numeric := fd.Gradient(nil, f, orig, &fd.Settings{Formula: fd.Central})
			neuron.SetParams(orig, neuron.bias)
			if ferr != nil {
				return 0, errors.Wrapf(ferr, "layer %d neuron %d", i, j)
			}

			for k := range numeric {
				analytic := -dw[k] / scale
				denom := math.Max(math.Abs(analytic)+math.Abs(numeric[k]), 1e-8)
				worst = math.Max(worst, math.Abs(analytic-numeric[k])/denom)
			}
		}
	}
	return worst, nil
}

// spread picks up to k evenly spaced indices out of n; k <= 0 picks all.
func spread(n, k int) []int {
	if k <= 0 || k >= n {
		k = n
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i * n / k
	}
	return idx
}
