package neuralnet

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Layer is a fixed set of neurons fed the same input vector.
type Layer struct {
	neurons []*Neuron
	inputs  int
}

func newLayer(inputs, size int, act Activation, average bool, init Initializer) *Layer {
	l := &Layer{neurons: make([]*Neuron, size), inputs: inputs}
	for j := range l.neurons {
		l.neurons[j] = NewNeuron(inputs, act, average, init)
	}
	return l
}

func (l *Layer) Neurons() []*Neuron {
	return l.neurons
}

func (l *Layer) Size() int {
	return len(l.neurons)
}

func (l *Layer) Inputs() int {
	return l.inputs
}

func (l *Layer) forward(input []float64, forTraining bool) ([]float64, error) {
	out := make([]float64, len(l.neurons))
	for j, neuron := range l.neurons {
		v, err := neuron.Forward(input, forTraining)
		if err != nil {
			return nil, errors.Wrapf(err, "neuron %d", j)
		}
		out[j] = v
	}
	return out, nil
}

// backward runs one example's backprop on every neuron and returns the
// fan-in error for the previous layer: the index-wise sum of the returned
// contributions. Without fanIn nothing is summed and nil is returned.
func (l *Layer) backward(errs []float64, learningRate float64, fanIn bool) []float64 {
	var prev []float64
	if fanIn {
		prev = make([]float64, l.inputs)
	}
	for j, neuron := range l.neurons {
		contrib := neuron.PerEvalBackprop(errs[j], learningRate)
		if fanIn {
			floats.Add(prev, contrib)
		}
	}
	return prev
}

func (l *Layer) prepareBackprop() {
	for _, neuron := range l.neurons {
		neuron.PrepareBackprop()
	}
}

func (l *Layer) applyGradients() {
	for _, neuron := range l.neurons {
		neuron.PerRoundBackprop()
	}
}

// Weights returns a Size x Inputs snapshot of the layer's weights.
func (l *Layer) Weights() *mat.Dense {
	w := mat.NewDense(len(l.neurons), l.inputs, nil)
	for j, neuron := range l.neurons {
		w.SetRow(j, neuron.weights)
	}
	return w
}

// Biases returns a snapshot of the layer's biases.
func (l *Layer) Biases() *mat.VecDense {
	b := mat.NewVecDense(len(l.neurons), nil)
	for j, neuron := range l.neurons {
		b.SetVec(j, neuron.bias)
	}
	return b
}

func (l *Layer) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("weights:\n%v\n", mat.Formatted(l.Weights(), mat.Squeeze())))
	sb.WriteString(fmt.Sprintf("biases:\n%v\n", mat.Formatted(l.Biases().T(), mat.Squeeze())))
	return sb.String()
}
