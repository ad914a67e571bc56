package neuralnet

import (
	"gonum.org/v1/gonum/floats"
)

// Neuron owns its weights and bias plus the gradient accumulators of the
// current round. Weights and bias only change in PerRoundBackprop.
type Neuron struct {
	weights    []float64
	bias       float64
	activation Activation
	average    bool

	// cache of the last training forward pass
	primed    bool
	lastInput []float64
	lastZ     float64

	dw      []float64
	da      []float64
	db      float64
	nbEvals int
}

// NewNeuron builds a neuron with inputs weights, all drawn from init.
// When average is set, accumulated gradients are divided by the number of
// examples folded into them before being applied.
func NewNeuron(inputs int, act Activation, average bool, init Initializer) *Neuron {
	n := &Neuron{
		weights:    make([]float64, inputs),
		activation: act,
		average:    average,
	}
	for i := range n.weights {
		n.weights[i] = init.Gen()
	}
	n.bias = init.Gen()
	n.PrepareBackprop()
	return n
}

func (n *Neuron) Weights() []float64 {
	return append([]float64(nil), n.weights...)
}

func (n *Neuron) Bias() float64 {
	return n.bias
}

// SetParams overwrites weights and bias. The weight count may not change.
func (n *Neuron) SetParams(weights []float64, bias float64) error {
	if len(weights) != len(n.weights) {
		return shapeError("neuron weights", len(weights), len(n.weights))
	}
	copy(n.weights, weights)
	n.bias = bias
	return nil
}

// Forward returns activation(bias + weights·inputs). With forTraining set the
// pre-activation and a copy of inputs are kept for the next PerEvalBackprop.
func (n *Neuron) Forward(inputs []float64, forTraining bool) (float64, error) {
	if len(inputs) != len(n.weights) {
		return 0, shapeError("neuron input", len(inputs), len(n.weights))
	}
	z := n.bias + floats.Dot(n.weights, inputs)
	if forTraining {
		n.lastZ = z
		n.lastInput = append(n.lastInput[:0], inputs...)
		n.primed = true
	}
	return n.activation.Value(z), nil
}

// PrepareBackprop zeroes every accumulator.
func (n *Neuron) PrepareBackprop() {
	if len(n.dw) != len(n.weights) {
		n.dw = make([]float64, len(n.weights))
		n.da = make([]float64, len(n.weights))
	} else {
		for i := range n.dw {
			n.dw[i] = 0
			n.da[i] = 0
		}
	}
	n.db = 0
	n.nbEvals = 0
}

// PerEvalBackprop folds one example into the accumulators and returns that
// example's error contribution for each neuron of the previous layer
// (delta * weights[i], not scaled by the learning rate).
// Once a round holds more than one example this differs from the round's da
// accumulator, which Accumulated returns.
//
// e is the error for this neuron's output, already carried through downstream
// layers. It panics with ErrNotPrimed unless a training Forward ran since the
// last call.
func (n *Neuron) PerEvalBackprop(e, learningRate float64) []float64 {
	if !n.primed {
		panic(ErrNotPrimed)
	}
	delta := 2 * e * n.activation.Derivative(n.lastZ)

	out := make([]float64, len(n.weights))
	n.db += delta * learningRate
	for i, w := range n.weights {
		n.dw[i] += delta * n.lastInput[i] * learningRate
		out[i] = delta * w
		n.da[i] += out[i]
	}
	n.nbEvals++
	n.primed = false
	return out
}

// PerRoundBackprop applies the accumulated gradients and starts a new round.
// Averaging over zero evaluations is a no-op.
func (n *Neuron) PerRoundBackprop() {
	denominator := 1.0
	if n.average {
		denominator = float64(n.nbEvals)
	}
	if denominator > 0 {
		n.bias += n.db / denominator
		floats.AddScaled(n.weights, 1/denominator, n.dw)
	}
	n.PrepareBackprop()
}

// Evals is the number of examples accumulated since the last reset.
func (n *Neuron) Evals() int {
	return n.nbEvals
}

// Accumulated returns copies of the current round's accumulators.
func (n *Neuron) Accumulated() (dw, da []float64, db float64) {
	return append([]float64(nil), n.dw...), append([]float64(nil), n.da...), n.db
}
